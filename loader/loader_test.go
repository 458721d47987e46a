package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vexrag/vexrag/errs"
)

func TestLoadPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("# hello\n\nworld"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := New().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Format != "md" {
		t.Errorf("Format = %q, want md", doc.Format)
	}
	if doc.Content != "# hello\n\nworld" {
		t.Errorf("Content = %q", doc.Content)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	if err := os.WriteFile(path, []byte("not really a png"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New().Load(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if kind, ok := errs.Of(err); !ok || kind != errs.UnsupportedFormat {
		t.Errorf("kind = %v, ok = %v, want UnsupportedFormat", kind, ok)
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("   \n\t"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New().Load(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for empty document")
	}
	if kind, ok := errs.Of(err); !ok || kind != errs.EmptyDocument {
		t.Errorf("kind = %v, ok = %v, want EmptyDocument", kind, ok)
	}
}
