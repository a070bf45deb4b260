// Package portal drives a Stripe-style billing portal: it locates the
// invoice listing, reveals entries incrementally, selects the ones in
// the requested date range and downloads each invoice PDF.
package portal

import (
	"time"

	"facturador/internal/dates"
)

// Entry is one invoice link discovered in the listing, with the
// rendered text of its surroundings.
type Entry struct {
	Href string
	Text string
}

// Item is a queued entry with its provisional date. Undated items are
// queued speculatively; the invoice page itself settles their date.
type Item struct {
	Entry Entry
	Date  time.Time
	Dated bool
}

// sortKey orders undated items after every dated one.
func (it Item) sortKey() time.Time {
	if !it.Dated {
		return dates.Max
	}
	return it.Date
}

// Range is the requested date window. Zero bounds are open. All asks
// for the portal's full history when no bounds are given.
type Range struct {
	From time.Time
	To   time.Time
	All  bool
}

// Bounded reports whether at least one bound is set.
func (r Range) Bounded() bool {
	return !r.From.IsZero() || !r.To.IsZero()
}

// Contains reports whether d falls inside the window.
func (r Range) Contains(d time.Time) bool {
	return dates.InRange(d, r.From, r.To)
}
