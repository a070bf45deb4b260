// Package browser abstracts the live browsing session behind small
// interfaces so the invoice-discovery logic can be exercised against
// scripted fakes as well as a real Chrome.
package browser

import "time"

// Anchor is a link as rendered in a browsing context, in document order.
type Anchor struct {
	Href string
	Text string
}

// ScrollResult reports what a scroll step observed.
type ScrollResult struct {
	// Advanced is true if the scroll position actually moved.
	Advanced bool
	// NearBottom is true if the context is scrolled close to its end.
	NearBottom bool
}

// Control is a clickable element found on a Surface.
type Control interface {
	// Text returns the element's visible text, empty if unavailable.
	Text() string
	// Click scrolls the element into view and clicks it.
	Click(timeout time.Duration) error
}

// Surface is one browsing context: the top document or an iframe inside
// it. All probing methods are best-effort and never fail; absence of a
// match is reported through return values.
type Surface interface {
	// Address returns the context's URL, empty if it cannot be read.
	Address() string

	// Children returns the nested sub-contexts (iframes) of this surface.
	Children() []Surface

	// WaitTextVisible reports whether text matching the (case-insensitive)
	// regular expression becomes visible within the timeout.
	WaitTextVisible(pattern string, timeout time.Duration) bool

	// WaitSelectorVisible reports whether an element matching the CSS
	// selector becomes visible within the timeout.
	WaitSelectorVisible(selector string, timeout time.Duration) bool

	// FindControl probes for a clickable element whose text contains the
	// label, waiting up to timeout for it to become visible.
	FindControl(label string, timeout time.Duration) (Control, bool)

	// Controls returns all elements matching the CSS selector, in
	// document order, without waiting.
	Controls(selector string) []Control

	// Anchors returns every link whose href contains the substring, in
	// document order. Extraction failures yield an empty slice.
	Anchors(hrefSubstring string) []Anchor

	// ScrollBy scrolls the context down by px pixels.
	ScrollBy(px int) ScrollResult

	// BodyText returns the rendered text of the whole context.
	BodyText() string

	// Pause blocks for roughly d, giving the portal time to react.
	Pause(d time.Duration)
}

// Page is a surface that can also navigate and produce downloads. Only
// the top document of a session is a Page; iframes are plain Surfaces.
type Page interface {
	Surface

	// Navigate loads the URL and waits for the content-loaded signal.
	Navigate(url string, timeout time.Duration) error

	// WaitIdle waits for network activity to settle. This is advisory:
	// false means the page may still be loading, not that it failed.
	WaitIdle(timeout time.Duration) bool

	// ExpectDownload runs trigger and waits for a download to begin,
	// returning the path of the completed temporary artifact.
	ExpectDownload(trigger func() error, timeout time.Duration) (string, error)
}
