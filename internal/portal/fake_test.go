package portal

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"facturador/internal/browser"
	"facturador/internal/dates"
)

// fakeInvoice is one invoice page behind a listing link.
type fakeInvoice struct {
	body string
	// noButton hides every download control, failing the item.
	noButton bool
}

// fakeBrowser scripts a whole portal: a listing page with incremental
// reveal and the invoice pages behind its links. It implements
// browser.Page; the listing is the top document, with no iframes.
type fakeBrowser struct {
	listingURL string
	current    string

	visible        []browser.Anchor
	hidden         []browser.Anchor
	revealPerClick int
	// noHeading drops the listing's recognizable heading, leaving only
	// the anchors themselves.
	noHeading bool
	// endlessMore keeps the load-more control present even when there
	// is nothing left to reveal.
	endlessMore bool
	moreClicks  int

	invoices    map[string]*fakeInvoice
	failNavTo   string
	downloadDir string
	downloads   int
}

func newFakeBrowser(downloadDir string) *fakeBrowser {
	return &fakeBrowser{
		listingURL:     "https://billing.stripe.example/p/session/abc",
		revealPerClick: 1,
		invoices:       map[string]*fakeInvoice{},
		downloadDir:    downloadDir,
	}
}

// addDated adds a visible listing entry and its invoice page, both
// carrying the given date.
func (f *fakeBrowser) addDated(day time.Time) string {
	href := fmt.Sprintf("https://invoice.stripe.com/i/%03d", len(f.visible)+len(f.hidden)+1)
	f.visible = append(f.visible, browser.Anchor{Href: href, Text: day.Format("2 Jan 2006")})
	f.invoices[href] = &fakeInvoice{body: "Invoice\nIssued " + day.Format("January 2, 2006")}
	return href
}

// addUndated adds a visible entry whose listing text has no date; the
// invoice page behind it carries bodyDate.
func (f *fakeBrowser) addUndated(bodyDate string) string {
	href := fmt.Sprintf("https://invoice.stripe.com/i/%03d", len(f.visible)+len(f.hidden)+1)
	f.visible = append(f.visible, browser.Anchor{Href: href, Text: "Factura pendiente"})
	f.invoices[href] = &fakeInvoice{body: "Invoice\n" + bodyDate}
	return href
}

// addHidden queues an entry revealed only by load-more clicks.
func (f *fakeBrowser) addHidden(text string) {
	href := fmt.Sprintf("https://invoice.stripe.com/i/%03d", len(f.visible)+len(f.hidden)+1)
	f.hidden = append(f.hidden, browser.Anchor{Href: href, Text: text})
	f.invoices[href] = &fakeInvoice{body: "Invoice\n" + text}
}

func (f *fakeBrowser) onListing() bool {
	return f.current == "" || f.current == f.listingURL
}

func (f *fakeBrowser) bodyText() string {
	if f.onListing() {
		var parts []string
		if !f.noHeading {
			parts = append(parts, "Invoice history")
		}
		for _, a := range f.visible {
			parts = append(parts, a.Text)
		}
		return strings.Join(parts, "\n")
	}
	if inv, ok := f.invoices[f.current]; ok {
		return inv.body
	}
	return ""
}

func (f *fakeBrowser) moreAvailable() bool {
	return f.onListing() && (len(f.hidden) > 0 || f.endlessMore)
}

func (f *fakeBrowser) clickMore() error {
	f.moreClicks++
	n := f.revealPerClick
	if n > len(f.hidden) {
		n = len(f.hidden)
	}
	f.visible = append(f.visible, f.hidden[:n]...)
	f.hidden = f.hidden[n:]
	return nil
}

// Surface

func (f *fakeBrowser) Address() string {
	if f.current == "" {
		return f.listingURL
	}
	return f.current
}

func (f *fakeBrowser) Children() []browser.Surface { return nil }

func (f *fakeBrowser) WaitTextVisible(pattern string, _ time.Duration) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false
	}
	return re.MatchString(f.bodyText())
}

func (f *fakeBrowser) WaitSelectorVisible(string, time.Duration) bool { return false }

func (f *fakeBrowser) FindControl(label string, _ time.Duration) (browser.Control, bool) {
	norm := dates.Normalize(label)
	if f.onListing() {
		if f.moreAvailable() && strings.Contains("ver mas", norm) {
			return &fakeControl{text: "Ver más", onClick: f.clickMore}, true
		}
		return nil, false
	}
	inv, ok := f.invoices[f.current]
	if !ok || inv.noButton {
		return nil, false
	}
	if strings.Contains(dates.Normalize("Download invoice"), norm) || norm == "download" {
		return &fakeControl{text: "Download invoice"}, true
	}
	return nil, false
}

func (f *fakeBrowser) Controls(string) []browser.Control { return nil }

func (f *fakeBrowser) Anchors(sub string) []browser.Anchor {
	var out []browser.Anchor
	for _, a := range f.visible {
		if strings.Contains(a.Href, sub) {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeBrowser) ScrollBy(int) browser.ScrollResult {
	return browser.ScrollResult{Advanced: false, NearBottom: true}
}

func (f *fakeBrowser) BodyText() string { return f.bodyText() }

func (f *fakeBrowser) Pause(time.Duration) {}

func (f *fakeBrowser) WaitIdle(time.Duration) bool { return true }

// Page

func (f *fakeBrowser) Navigate(url string, _ time.Duration) error {
	if f.failNavTo != "" && url == f.failNavTo {
		return fmt.Errorf("navigation to %s failed", url)
	}
	f.current = url
	return nil
}

func (f *fakeBrowser) ExpectDownload(trigger func() error, _ time.Duration) (string, error) {
	if err := trigger(); err != nil {
		return "", err
	}
	f.downloads++
	path := filepath.Join(f.downloadDir, fmt.Sprintf("tmp-%d", f.downloads))
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeControl struct {
	text    string
	onClick func() error
}

func (c *fakeControl) Text() string { return c.text }

func (c *fakeControl) Click(time.Duration) error {
	if c.onClick != nil {
		return c.onClick()
	}
	return nil
}
