package portal

import (
	"time"

	"facturador/internal/browser"
	"facturador/internal/dates"
)

// oldestKnown returns the earliest date recognizable among the entries.
// Undated entries carry no ordering information and are ignored.
func oldestKnown(entries []Entry) (time.Time, bool) {
	var oldest time.Time
	found := false
	for _, e := range entries {
		d, ok := dates.Parse(e.Text)
		if !ok {
			continue
		}
		if !found || d.Before(oldest) {
			oldest = d
			found = true
		}
	}
	return oldest, found
}

// backfill keeps revealing history until an entry older than from is
// visible, proving the window's lower edge has been crossed. A listing
// that never shows a recognizable date keeps the loop running to its
// round budget, so the budget is a hard ceiling, not a hint.
func backfill(s browser.Surface, linkPattern string, from time.Time, maxRounds int) []Entry {
	entries := collectEntries(s, linkPattern)
	for round := 0; round < maxRounds; round++ {
		if oldest, ok := oldestKnown(entries); ok && oldest.Before(from) {
			break
		}

		quickScroll(s)
		autoScroll(s)
		if !clickMore(s) {
			// History is exhausted.
			break
		}
		s.Pause(800 * time.Millisecond)

		entries = collectEntries(s, linkPattern)
	}
	return entries
}
