package portal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"facturador/internal/browser"
	"facturador/internal/dates"
)

// primaryDownloadSelector is the download button recent portals render.
const primaryDownloadSelector = "[data-testid='download-invoice-pdf-button']"

// downloadLabels are button captions tried when the test id is absent.
var downloadLabels = []string{
	"Descargar factura",
	"Download invoice",
	"Download",
	"Descargar",
	"Descargar PDF",
}

// fallbackDownloadSelectors are last-resort probes, including the
// combined invoice-and-receipt button some portals use.
var fallbackDownloadSelectors = []string{
	"[data-testid='download-invoice-receipt-pdf-button']",
	"[aria-label*='Download']",
	"[aria-label*='Descargar']",
}

// renameFile is swapped in tests to exercise the relocation fallback.
var renameFile = os.Rename

type itemResult struct {
	path    string
	date    time.Time
	skipped bool
}

// processItem opens one invoice page, settles its date from the
// document itself, and downloads and files the PDF. Items whose
// authoritative date falls outside the window are skipped, which is an
// expected outcome for speculatively queued entries.
func (f *Fetcher) processItem(ctx context.Context, item Item, r Range, req Request) (itemResult, error) {
	err := retry.Do(
		func() error {
			return f.Page.Navigate(item.Entry.Href, f.Config.NavigateTimeout())
		},
		retry.Attempts(uint(f.Config.DownloadRetries)),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return itemResult{}, fmt.Errorf("failed to open invoice page: %w", err)
	}
	f.Page.WaitIdle(5 * time.Second)

	// The invoice document is authoritative; the listing date is only a
	// planning hint. Documents without a recognizable date are filed
	// under today.
	day, ok := dates.Parse(f.Page.BodyText())
	if !ok {
		day = truncateDay(f.now())
	}
	if !r.Contains(day) {
		return itemResult{date: day, skipped: true}, nil
	}

	tmp, err := f.download(f.Page)
	if err != nil {
		return itemResult{date: day}, err
	}

	target := f.Home.InvoicePath(day, req.Source, req.User)
	if err := savePDF(tmp, target); err != nil {
		return itemResult{date: day}, err
	}

	if pages, err := pdfapi.PageCountFile(target); err != nil || pages == 0 {
		f.Log.Warn("downloaded file failed PDF verification", "path", target, "err", err)
	}

	return itemResult{path: target, date: day}, nil
}

// download tries each download strategy in turn and returns the path of
// the temporary artifact Chrome produced.
func (f *Fetcher) download(page browser.Page) (string, error) {
	timeout := f.Config.DownloadTimeout()

	if page.WaitSelectorVisible(primaryDownloadSelector, 1200*time.Millisecond) {
		if ctrls := page.Controls(primaryDownloadSelector); len(ctrls) > 0 {
			if path, err := page.ExpectDownload(clicker(ctrls[0]), timeout); err == nil {
				return path, nil
			}
		}
	}

	for _, label := range downloadLabels {
		ctrl, ok := page.FindControl(label, 1200*time.Millisecond)
		if !ok {
			continue
		}
		if path, err := page.ExpectDownload(clicker(ctrl), timeout); err == nil {
			return path, nil
		}
	}

	for _, sel := range fallbackDownloadSelectors {
		ctrls := page.Controls(sel)
		if len(ctrls) == 0 {
			continue
		}
		if path, err := page.ExpectDownload(clicker(ctrls[0]), timeout); err == nil {
			return path, nil
		}
	}

	return "", errors.New("no download control produced a file")
}

func clicker(ctrl browser.Control) func() error {
	return func() error { return ctrl.Click(2 * time.Second) }
}

// savePDF moves the downloaded artifact into place. When the rename
// fails (downloads and invoices may sit on different filesystems) the
// bytes are copied instead; the item only fails if both paths do.
func savePDF(tmp, target string) error {
	renameErr := renameFile(tmp, target)
	if renameErr == nil {
		return nil
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return fmt.Errorf("failed to relocate download after rename error %v: %w", renameErr, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to relocate download after rename error %v: %w", renameErr, err)
	}
	_ = os.Remove(tmp)
	return nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
