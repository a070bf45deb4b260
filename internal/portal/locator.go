package portal

import (
	"strings"
	"time"

	"facturador/internal/browser"
)

// listingTextProbe matches headings the invoice listing renders in
// either language.
const listingTextProbe = "invoice history|historial de facturas|facturas|invoices"

// invoiceTabLabels are the tab captions that switch the portal to its
// invoice listing, tried in order.
var invoiceTabLabels = []string{
	"Facturas",
	"Invoices",
	"Invoice history",
	"Historial de facturas",
	"Billing history",
	"Historial",
	"Payments",
	"Pagos",
	"Statements",
	"View all invoices",
	"Ver todas las facturas",
}

// listingSelectors are structural fallbacks for portals that render the
// listing without any recognizable heading.
var listingSelectors = []string{
	"[data-testid='hip-invoice-list']",
	"table",
	"[role='table']",
	"ul",
}

// findListingSurface locates the browsing context that hosts the
// invoice listing: an iframe whose URL carries a billing keyword, then
// any frame where listing text shows up, then the top page itself.
func findListingSurface(page browser.Surface, keywords []string) browser.Surface {
	frames := flatten(page)

	for _, frame := range frames[1:] {
		addr := strings.ToLower(frame.Address())
		for _, kw := range keywords {
			if strings.Contains(addr, kw) {
				return frame
			}
		}
	}

	for _, frame := range frames[1:] {
		if frame.WaitTextVisible(listingTextProbe, 800*time.Millisecond) {
			return frame
		}
	}

	return page
}

// flatten returns the surface and all nested frames, top first.
func flatten(s browser.Surface) []browser.Surface {
	out := []browser.Surface{s}
	for _, child := range s.Children() {
		out = append(out, flatten(child)...)
	}
	return out
}

// focusInvoiceTab clicks the invoice tab if the portal shows one. At
// most one click; portals that open on the listing need none.
func focusInvoiceTab(s browser.Surface) bool {
	for _, label := range invoiceTabLabels {
		ctrl, ok := s.FindControl(label, 1500*time.Millisecond)
		if !ok {
			continue
		}
		if err := ctrl.Click(1500 * time.Millisecond); err == nil {
			return true
		}
	}
	return false
}

// waitForListing waits for the invoice listing to render, first by its
// text, then by structure.
func waitForListing(s browser.Surface, timeout time.Duration) bool {
	if s.WaitTextVisible(listingTextProbe, timeout/2) {
		return true
	}
	for _, sel := range listingSelectors {
		if s.WaitSelectorVisible(sel, timeout/2) {
			return true
		}
	}
	return false
}
