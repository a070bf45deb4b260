package portal

import (
	"sort"

	"facturador/internal/dates"
)

// buildQueue turns revealed entries into an ordered work queue. Dated
// entries outside the window are dropped. Undated entries are kept
// speculatively; the invoice page itself decides their fate. The queue
// is sorted oldest first with undated items at the end, preserving
// listing order among ties.
func buildQueue(entries []Entry, r Range) []Item {
	var queue []Item
	for _, e := range entries {
		d, ok := dates.Parse(e.Text)
		if ok && !r.Contains(d) {
			continue
		}
		queue = append(queue, Item{Entry: e, Date: d, Dated: ok})
	}

	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].sortKey().Before(queue[j].sortKey())
	})
	return queue
}
