package portal

import (
	"strings"
	"time"

	"facturador/internal/browser"
	"facturador/internal/dates"
)

// expandLabels are the captions of load-more controls, tried in order.
var expandLabels = []string{
	"ver más", "ver mas",
	"mostrar más", "mostrar mas",
	"view more", "load more", "see more",
	"more",
}

// forbiddenWords disqualify a control: "more payment options" and
// friends match the probes but expand the wrong thing.
var forbiddenWords = []string{
	"option", "options", "opcion", "opciones",
	"predeterminada", "método", "metodo", "payment",
}

// controlScanSelector covers the elements a load-more control can be.
const controlScanSelector = "button, a, [role='button']"

// collectEntries returns the invoice links currently revealed, in
// document order, deduplicated by href.
func collectEntries(s browser.Surface, linkPattern string) []Entry {
	seen := make(map[string]bool)
	var entries []Entry
	for _, a := range s.Anchors(linkPattern) {
		if seen[a.Href] {
			continue
		}
		seen[a.Href] = true
		entries = append(entries, Entry{Href: a.Href, Text: a.Text})
	}
	return entries
}

// expandCandidate reports whether a control's text identifies a genuine
// load-more control: it must carry an expand label, be more than a bare
// glyph, and avoid the forbidden vocabulary.
func expandCandidate(text string) bool {
	t := dates.Normalize(text)
	if len(t) <= 3 {
		return false
	}
	for _, w := range forbiddenWords {
		if strings.Contains(t, w) {
			return false
		}
	}
	for _, label := range expandLabels {
		if strings.Contains(t, dates.Normalize(label)) {
			return true
		}
	}
	return false
}

// clickMore attempts one click on a load-more control. It probes each
// label first, then falls back to scanning every button-like element.
func clickMore(s browser.Surface) bool {
	for _, label := range expandLabels {
		ctrl, ok := s.FindControl(label, 800*time.Millisecond)
		if !ok {
			continue
		}
		if !expandCandidate(ctrl.Text()) {
			continue
		}
		if ctrl.Click(800*time.Millisecond) == nil {
			return true
		}
	}

	for _, ctrl := range s.Controls(controlScanSelector) {
		if !expandCandidate(ctrl.Text()) {
			continue
		}
		if ctrl.Click(800*time.Millisecond) == nil {
			return true
		}
	}
	return false
}

// quickScroll jumps most of a screenful down in one step.
func quickScroll(s browser.Surface) {
	s.ScrollBy(3000)
	s.Pause(150 * time.Millisecond)
}

// autoScroll steps to the bottom of the listing. It gives up after two
// consecutive steps that fail to advance.
func autoScroll(s browser.Surface) {
	stuck := 0
	for stuck < 2 {
		res := s.ScrollBy(2000)
		if res.NearBottom {
			return
		}
		if res.Advanced {
			stuck = 0
		} else {
			stuck++
		}
		s.Pause(120 * time.Millisecond)
	}
}

// revealAll scrolls and clicks load-more until the listing stops
// growing or the round budget runs out. It returns the entries visible
// at the end.
func revealAll(s browser.Surface, linkPattern string, rounds int) []Entry {
	entries := collectEntries(s, linkPattern)
	for round := 0; round < rounds; round++ {
		before := len(entries)

		quickScroll(s)
		autoScroll(s)
		clicked := clickMore(s)
		if clicked {
			s.Pause(800 * time.Millisecond)
		}

		entries = collectEntries(s, linkPattern)
		if len(entries) == before {
			// Plateau: nothing new appeared, clicked or not.
			break
		}
	}
	return entries
}
