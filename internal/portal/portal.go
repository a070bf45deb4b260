package portal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"facturador/internal/browser"
	"facturador/internal/config"
	"facturador/internal/dates"
	"facturador/internal/home"
)

// Fetcher runs invoice retrieval against an open billing portal page.
type Fetcher struct {
	Page   browser.Page
	Home   *home.Dir
	Config config.PortalCfg
	Log    *slog.Logger
	// Now is the clock used to file invoices without a readable date.
	// Nil means time.Now.
	Now func() time.Time
}

// New builds a Fetcher over an open portal page.
func New(page browser.Page, h *home.Dir, cfg config.PortalCfg, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{Page: page, Home: h, Config: cfg, Log: log}
}

// Request describes one retrieval run. From and To accept YYYY-MM-DD or
// YYYY-MM; empty bounds are open. Source and User name the files.
type Request struct {
	From   string
	To     string
	All    bool
	Source string
	User   string
}

// Run discovers the invoice listing, reveals enough history to cover
// the requested window, and downloads every invoice in it. Individual
// invoice failures are collected into the summary; only run-level
// failures return an error.
func (f *Fetcher) Run(ctx context.Context, req Request) (*Summary, error) {
	if f.Log == nil {
		f.Log = slog.Default()
	}
	if req.Source == "" {
		req.Source = "cursor"
	}
	if req.User == "" {
		req.User = "usuario"
	}

	from, err := dates.ParseBound(req.From, false)
	if err != nil {
		return nil, fmt.Errorf("invalid from bound: %w", err)
	}
	to, err := dates.ParseBound(req.To, true)
	if err != nil {
		return nil, fmt.Errorf("invalid to bound: %w", err)
	}
	// Inverted windows are allowed through; they simply match nothing.
	r := Range{From: from, To: to, All: req.All}

	summary := &Summary{
		Status: StatusOK,
		RunID:  uuid.NewString(),
		Filter: filterEcho(r),
		Folder: f.Home.InvoicesPath(),
	}
	log := f.Log.With("run_id", summary.RunID)

	listing := findListingSurface(f.Page, f.Config.FrameKeywords)
	if focusInvoiceTab(listing) {
		listing.Pause(1200 * time.Millisecond)
	}
	// The listing wait is advisory: some portals render the table with no
	// recognizable heading or structure, yet the anchors are harvestable.
	if !waitForListing(listing, 10*time.Second) {
		log.Warn("invoice listing not confirmed, proceeding with whatever is visible")
	}

	pattern := f.Config.InvoiceLinkPattern
	entries := revealAll(listing, pattern, f.Config.MaxRevealRounds)
	log.Info("initial reveal complete", "entries", len(entries))

	switch {
	case !r.From.IsZero():
		entries = backfill(listing, pattern, r.From, f.Config.BackfillRounds)
		log.Info("backfill complete", "entries", len(entries))
	case r.All && !r.Bounded():
		entries = revealAll(listing, pattern, f.Config.DeepRevealRounds)
		log.Info("deep reveal complete", "entries", len(entries))
	}

	queue := buildQueue(entries, r)
	if len(queue) == 0 {
		summary.Message = "no invoices in range"
		return summary, nil
	}
	log.Info("queue built", "items", len(queue))

	listingAddr := f.Page.Address()
	for i, item := range queue {
		if err := ctx.Err(); err != nil {
			summary.Status = StatusError
			summary.Message = "run cancelled"
			return summary, err
		}

		res, err := f.processItem(ctx, item, r, req)
		switch {
		case err != nil:
			log.Warn("invoice failed", "reference", itemRef(item), "err", err)
			summary.Errors = append(summary.Errors, ItemError{
				Reference: itemRef(item),
				Message:   err.Error(),
			})
		case res.skipped:
			log.Info("invoice out of range, skipped", "date", dates.Format(res.date))
			summary.Skipped++
		default:
			log.Info("invoice downloaded", "date", dates.Format(res.date), "path", res.path)
			summary.Downloaded++
		}

		// Losing the listing strands every remaining item; after the last
		// one there is nothing left to strand.
		if i < len(queue)-1 {
			if err := f.Page.Navigate(listingAddr, f.Config.NavigateTimeout()); err != nil {
				summary.Status = StatusError
				summary.Message = "could not return to the invoice listing"
				return summary, fmt.Errorf("could not return to the invoice listing: %w", err)
			}
			f.Page.WaitIdle(5 * time.Second)
		}
	}

	summary.Message = fmt.Sprintf("downloaded %d of %d invoices", summary.Downloaded, len(queue))
	return summary, nil
}

// itemRef names an item in error reports: its listing date when known,
// otherwise its link.
func itemRef(item Item) string {
	if item.Dated {
		return dates.Format(item.Date)
	}
	return item.Entry.Href
}

func (f *Fetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now().UTC()
}
