package plaintext

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Extract reads the whole document and returns its trimmed text. Markdown and
// any other UTF-8 text format pass through unchanged.
func Extract(r io.Reader, filename string) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("not a text document: %s", filename)
	}
	return strings.TrimSpace(string(raw)), nil
}
