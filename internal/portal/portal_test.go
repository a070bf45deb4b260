package portal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"facturador/internal/config"
	"facturador/internal/home"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testHome(t *testing.T) *home.Dir {
	t.Helper()
	h, err := home.New(filepath.Join(t.TempDir(), "facturador"))
	require.NoError(t, err)
	require.NoError(t, h.EnsureExists())
	return h
}

func testFetcher(t *testing.T, f *fakeBrowser) *Fetcher {
	t.Helper()
	h := testHome(t)
	f.downloadDir = h.DownloadsPath()
	return New(f, h, config.DefaultConfig().Portal, nil)
}

func TestBuildQueueOrdersAndFilters(t *testing.T) {
	entries := []Entry{
		{Href: "i/1", Text: "1 Jul 2025"},
		{Href: "i/2", Text: "Factura pendiente"},
		{Href: "i/3", Text: "5 Jun 2025"},
		{Href: "i/4", Text: "30 May 2025"},
		{Href: "i/5", Text: "20 Jun 2025"},
	}
	r := Range{From: day(2025, time.June, 1), To: day(2025, time.June, 30)}

	queue := buildQueue(entries, r)
	require.Len(t, queue, 3)
	require.Equal(t, "i/3", queue[0].Entry.Href)
	require.Equal(t, "i/5", queue[1].Entry.Href)
	// Undated entries are queued speculatively, after every dated one.
	require.Equal(t, "i/2", queue[2].Entry.Href)
	require.False(t, queue[2].Dated)
}

func TestBuildQueueStableAmongUndated(t *testing.T) {
	entries := []Entry{
		{Href: "i/a", Text: "sin fecha a"},
		{Href: "i/b", Text: "sin fecha b"},
		{Href: "i/c", Text: "sin fecha c"},
	}
	queue := buildQueue(entries, Range{})
	require.Len(t, queue, 3)
	require.Equal(t, "i/a", queue[0].Entry.Href)
	require.Equal(t, "i/b", queue[1].Entry.Href)
	require.Equal(t, "i/c", queue[2].Entry.Href)
}

func TestBuildQueueInvertedWindowMatchesNothing(t *testing.T) {
	entries := []Entry{{Href: "i/1", Text: "5 Jun 2025"}}
	r := Range{From: day(2025, time.July, 1), To: day(2025, time.June, 1)}
	queue := buildQueue(entries, r)
	require.Empty(t, queue)
}

func TestExpandCandidate(t *testing.T) {
	// Verbose captions are fine as long as they carry an expand label;
	// only bare glyphs and the forbidden vocabulary disqualify.
	require.True(t, expandCandidate("Ver más"))
	require.True(t, expandCandidate("Load more invoices from history"))
	require.False(t, expandCandidate("más"))
	require.False(t, expandCandidate("More payment options"))
	require.False(t, expandCandidate("Siguiente página"))
}

func TestRevealAllStopsOnPlateau(t *testing.T) {
	f := newFakeBrowser(t.TempDir())
	f.addDated(day(2025, time.June, 5))
	f.addDated(day(2025, time.May, 30))
	f.endlessMore = true // clicks keep landing but reveal nothing

	entries := revealAll(f, "invoice.stripe.com/i/", 25)
	require.Len(t, entries, 2)
	require.Equal(t, 1, f.moreClicks, "one unproductive click should end the loop")
}

func TestRevealAllTerminatesAtRoundBudget(t *testing.T) {
	// A listing that grows by one entry per click must still terminate.
	f := newFakeBrowser(t.TempDir())
	f.addDated(day(2025, time.June, 5))
	for i := 0; i < 100; i++ {
		f.addHidden("Factura pendiente")
	}

	entries := revealAll(f, "invoice.stripe.com/i/", 5)
	require.Equal(t, 5, f.moreClicks)
	require.Len(t, entries, 6)
}

func TestBackfillStopsOnceWindowEdgeCrossed(t *testing.T) {
	f := newFakeBrowser(t.TempDir())
	f.addDated(day(2025, time.June, 5))
	f.addHidden("30 May 2025")
	f.addHidden("20 Apr 2025")

	entries := backfill(f, "invoice.stripe.com/i/", day(2025, time.June, 1), 40)
	require.Equal(t, 1, f.moreClicks, "should stop as soon as an older entry proves coverage")
	require.Len(t, entries, 2)
}

func TestBackfillWithoutDatesRunsToCeiling(t *testing.T) {
	// When no entry ever shows a recognizable date the loop cannot
	// prove coverage; the round budget is the only thing that stops it.
	f := newFakeBrowser(t.TempDir())
	f.addUndated("sin fecha")
	for i := 0; i < 100; i++ {
		f.addHidden("Factura pendiente")
	}

	backfill(f, "invoice.stripe.com/i/", day(2025, time.June, 1), 4)
	require.Equal(t, 4, f.moreClicks)
}

func TestBackfillStopsWhenHistoryExhausted(t *testing.T) {
	f := newFakeBrowser(t.TempDir())
	f.addDated(day(2025, time.June, 5)) // still inside the window, no older entries

	entries := backfill(f, "invoice.stripe.com/i/", day(2025, time.June, 1), 40)
	require.Equal(t, 0, f.moreClicks)
	require.Len(t, entries, 1)
}

func TestRunSingleMonth(t *testing.T) {
	f := newFakeBrowser(t.TempDir())
	f.addDated(day(2025, time.May, 30))
	f.addDated(day(2025, time.June, 5))
	f.addDated(day(2025, time.June, 20))
	f.addDated(day(2025, time.July, 1))
	// Undated in the listing; its invoice page settles on July 2, which
	// is outside the window, so it must be skipped, not failed.
	f.addUndated("Emitida el 2 de julio de 2025")

	fetcher := testFetcher(t, f)
	summary, err := fetcher.Run(context.Background(), Request{From: "2025-06", To: "2025-06"})
	require.NoError(t, err)

	require.Equal(t, StatusOK, summary.Status)
	require.Equal(t, 2, summary.Downloaded)
	require.Equal(t, 1, summary.Skipped)
	require.Empty(t, summary.Errors)
	require.Equal(t, "2025-06-01", summary.Filter.From)
	require.Equal(t, "2025-06-30", summary.Filter.To)
	require.NotEmpty(t, summary.RunID)

	for _, name := range []string{"2025_06_05_cursor_usuario.pdf", "2025_06_20_cursor_usuario.pdf"} {
		_, err := os.Stat(filepath.Join(fetcher.Home.InvoicesPath(), name))
		require.NoError(t, err, name)
	}
}

func TestRunProceedsWhenListingUnconfirmed(t *testing.T) {
	// Neither the heading nor any structural selector shows up, but the
	// anchors are there. The listing wait is advisory; the run must
	// still harvest and download.
	f := newFakeBrowser(t.TempDir())
	f.noHeading = true
	f.addDated(day(2025, time.June, 5))
	f.addDated(day(2025, time.June, 20))

	fetcher := testFetcher(t, f)
	summary, err := fetcher.Run(context.Background(), Request{From: "2025-06", To: "2025-06"})
	require.NoError(t, err)
	require.Equal(t, StatusOK, summary.Status)
	require.Equal(t, 2, summary.Downloaded)
}

func TestRunEmptyWindow(t *testing.T) {
	f := newFakeBrowser(t.TempDir())
	f.addDated(day(2025, time.June, 5))

	fetcher := testFetcher(t, f)
	summary, err := fetcher.Run(context.Background(), Request{From: "2024-01", To: "2024-01"})
	require.NoError(t, err)
	require.Equal(t, StatusOK, summary.Status)
	require.Equal(t, "no invoices in range", summary.Message)
	require.Zero(t, summary.Downloaded)
}

func TestRunItemFailureContinues(t *testing.T) {
	f := newFakeBrowser(t.TempDir())
	broken := f.addDated(day(2025, time.June, 5))
	f.addDated(day(2025, time.June, 20))
	f.invoices[broken].noButton = true

	fetcher := testFetcher(t, f)
	summary, err := fetcher.Run(context.Background(), Request{From: "2025-06", To: "2025-06"})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Downloaded)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, "2025-06-05", summary.Errors[0].Reference)
	require.True(t, summary.Failed())
}

func TestRunListingLossIsFatal(t *testing.T) {
	f := newFakeBrowser(t.TempDir())
	f.addDated(day(2025, time.June, 5))
	f.addDated(day(2025, time.June, 20))
	f.failNavTo = f.listingURL

	fetcher := testFetcher(t, f)
	summary, err := fetcher.Run(context.Background(), Request{From: "2025-06", To: "2025-06"})
	require.Error(t, err)
	require.Equal(t, StatusError, summary.Status)
	// The first item completed before the listing was lost.
	require.Equal(t, 1, summary.Downloaded)
}

func TestRunFinalItemNeedsNoReturn(t *testing.T) {
	// After the last queue item there is nothing left on the listing to
	// go back for, so losing it then must not fail the run.
	f := newFakeBrowser(t.TempDir())
	f.addDated(day(2025, time.June, 5))
	f.failNavTo = f.listingURL

	fetcher := testFetcher(t, f)
	summary, err := fetcher.Run(context.Background(), Request{From: "2025-06", To: "2025-06"})
	require.NoError(t, err)
	require.Equal(t, StatusOK, summary.Status)
	require.Equal(t, 1, summary.Downloaded)
}

func TestRunInvalidBound(t *testing.T) {
	f := newFakeBrowser(t.TempDir())
	fetcher := testFetcher(t, f)

	_, err := fetcher.Run(context.Background(), Request{From: "junk"})
	require.Error(t, err)
}

func TestSavePDFFallsBackToCopy(t *testing.T) {
	orig := renameFile
	renameFile = func(string, string) error { return errors.New("cross-device link") }
	defer func() { renameFile = orig }()

	dir := t.TempDir()
	tmp := filepath.Join(dir, "tmp-artifact")
	target := filepath.Join(dir, "2025_06_05_cursor_usuario.pdf")
	require.NoError(t, os.WriteFile(tmp, []byte("%PDF-1.4 fake"), 0o644))

	require.NoError(t, savePDF(tmp, target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(data))
	_, err = os.Stat(tmp)
	require.True(t, os.IsNotExist(err), "temporary artifact should be removed")
}

func TestSavePDFFailsWhenBothPathsFail(t *testing.T) {
	orig := renameFile
	renameFile = func(string, string) error { return errors.New("cross-device link") }
	defer func() { renameFile = orig }()

	err := savePDF(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "out.pdf"))
	require.Error(t, err)
}
