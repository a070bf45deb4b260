package home

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultsToUserHome(t *testing.T) {
	d, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if filepath.Base(d.Path()) != DefaultDirName {
		t.Errorf("expected default dir name %s, got %s", DefaultDirName, d.Path())
	}
}

func TestEnsureExists(t *testing.T) {
	d, err := New(filepath.Join(t.TempDir(), "fhome"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if d.Exists() {
		t.Fatal("home should not exist yet")
	}
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !d.Exists() {
		t.Error("home should exist after EnsureExists")
	}
	for _, p := range []string{d.SessionPath(), d.DownloadsPath(), d.InvoicesPath()} {
		if filepath.Dir(p) != d.Path() {
			t.Errorf("expected %s under %s", p, d.Path())
		}
	}
}

func TestInvoicePath(t *testing.T) {
	d, err := New("/tmp/fhome")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	got := d.InvoicePath(day, "cursor", "usuario")
	want := filepath.Join("/tmp/fhome", InvoicesDirName, "2025_06_05_cursor_usuario.pdf")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
