package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Extract flattens a workbook into text: one line per row, cells joined with
// tabs, sheets separated by their names. Empty rows are dropped.
func Extract(r io.Reader, filename string) (string, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open workbook %s: %w", filename, err)
	}
	defer workbook.Close()

	var b strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s of %s: %w", sheet, filename, err)
		}

		wroteHeader := false
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			if !wroteHeader {
				fmt.Fprintf(&b, "# %s\n", sheet)
				wroteHeader = true
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String()), nil
}
