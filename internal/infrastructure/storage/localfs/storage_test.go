package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpenNestedKey(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key := "uploads/build-1/guide.md"
	if err := storage.Save(context.Background(), key, strings.NewReader("hello")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	r, err := storage.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(raw) != "hello" {
		t.Fatalf("object content = %q, want hello", raw)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, key := range []string{"../escape.txt", "/etc/passwd", "a/../../b"} {
		if err := storage.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("Save(%q) must reject traversal", key)
		}
	}
}

func TestOpenMissingObject(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := storage.Open(context.Background(), "absent.txt"); err == nil {
		t.Fatal("expected error for missing object")
	}
}
