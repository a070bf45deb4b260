package home

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultDirName is the default name for the facturador home directory.
	DefaultDirName = ".facturador"

	// SessionDirName holds persisted browser session state.
	SessionDirName = "session"

	// DownloadsDirName is the scratch area the browser downloads into
	// before artifacts are moved to their final path.
	DownloadsDirName = "downloads"

	// InvoicesDirName is where verified invoice PDFs end up.
	InvoicesDirName = "invoices"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the facturador home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.facturador).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// SessionPath returns the directory for persisted browser state.
func (d *Dir) SessionPath() string {
	return filepath.Join(d.path, SessionDirName)
}

// CookiesPath returns the file the browser session cookies are saved to.
func (d *Dir) CookiesPath() string {
	return filepath.Join(d.SessionPath(), "cookies.json")
}

// DownloadsPath returns the scratch download directory.
func (d *Dir) DownloadsPath() string {
	return filepath.Join(d.path, DownloadsDirName)
}

// InvoicesPath returns the directory for saved invoice PDFs.
func (d *Dir) InvoicesPath() string {
	return filepath.Join(d.path, InvoicesDirName)
}

// InvoicePath returns the final path for an invoice dated day, tagged with
// the source and user aliases: {YYYY_MM_DD}_{source}_{user}.pdf.
func (d *Dir) InvoicePath(day time.Time, source, user string) string {
	name := fmt.Sprintf("%04d_%02d_%02d_%s_%s.pdf", day.Year(), day.Month(), day.Day(), source, user)
	return filepath.Join(d.InvoicesPath(), name)
}

// EnsureExists creates the home directory tree if it doesn't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.SessionPath(), d.DownloadsPath(), d.InvoicesPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
