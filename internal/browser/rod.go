package browser

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// textProbeSelector covers the elements a label probe may land on.
// Containers are included on purpose: portals frequently wrap tab and
// button text in spans or divs.
const textProbeSelector = "a, button, [role='button'], [role='tab'], [role='link'], span"

// rodSurface adapts a rod page (the top document or an iframe's page)
// to the Surface interface.
type rodSurface struct {
	page    *rod.Page
	browser *rod.Browser
	// downloadDir is where Chrome drops artifacts; only set on the top page.
	downloadDir string
}

// NewPage wraps a rod page as a Page. Downloads land in downloadDir.
func NewPage(b *rod.Browser, p *rod.Page, downloadDir string) Page {
	return &rodSurface{page: p, browser: b, downloadDir: downloadDir}
}

func (s *rodSurface) Address() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *rodSurface) Children() []Surface {
	iframes, err := s.page.Elements("iframe")
	if err != nil {
		return nil
	}
	var children []Surface
	for _, el := range iframes {
		frame, err := el.Frame()
		if err != nil {
			continue
		}
		children = append(children, &rodSurface{page: frame, browser: s.browser})
	}
	return children
}

func (s *rodSurface) WaitTextVisible(pattern string, timeout time.Duration) bool {
	el, err := s.page.Timeout(timeout).ElementR(textProbeSelector, jsRegex(pattern))
	if err != nil {
		return false
	}
	return el.Timeout(timeout).WaitVisible() == nil
}

func (s *rodSurface) WaitSelectorVisible(selector string, timeout time.Duration) bool {
	el, err := s.page.Timeout(timeout).Element(selector)
	if err != nil {
		return false
	}
	return el.Timeout(timeout).WaitVisible() == nil
}

func (s *rodSurface) FindControl(label string, timeout time.Duration) (Control, bool) {
	el, err := s.page.Timeout(timeout).ElementR(textProbeSelector, jsRegex(regexp.QuoteMeta(label)))
	if err != nil {
		return nil, false
	}
	if err := el.Timeout(timeout).WaitVisible(); err != nil {
		return nil, false
	}
	return &rodControl{el: el}, true
}

func (s *rodSurface) Controls(selector string) []Control {
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil
	}
	controls := make([]Control, 0, len(els))
	for _, el := range els {
		controls = append(controls, &rodControl{el: el})
	}
	return controls
}

func (s *rodSurface) Anchors(hrefSubstring string) []Anchor {
	html, err := s.page.HTML()
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(s.Address())
	var anchors []Anchor
	doc.Find(fmt.Sprintf("a[href*=%q]", hrefSubstring)).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		anchors = append(anchors, Anchor{Href: href, Text: sel.Text()})
	})
	return anchors
}

func (s *rodSurface) ScrollBy(px int) ScrollResult {
	obj, err := s.page.Eval(fmt.Sprintf(`
		() => {
			const el = document.scrollingElement || document.documentElement || document.body;
			const before = el.scrollTop;
			el.scrollBy(0, %d);
			const after = el.scrollTop;
			const nearBottom = (el.scrollHeight - (after + el.clientHeight)) < 5;
			return { advanced: after > before, nearBottom };
		}
	`, px))
	if err != nil {
		return ScrollResult{}
	}
	return ScrollResult{
		Advanced:   obj.Value.Get("advanced").Bool(),
		NearBottom: obj.Value.Get("nearBottom").Bool(),
	}
}

func (s *rodSurface) BodyText() string {
	el, err := s.page.Element("body")
	if err != nil {
		return ""
	}
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return text
}

func (s *rodSurface) Pause(d time.Duration) {
	time.Sleep(d)
}

func (s *rodSurface) Navigate(rawURL string, timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	if err := p.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", rawURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("page %s did not finish loading: %w", rawURL, err)
	}
	return nil
}

func (s *rodSurface) WaitIdle(timeout time.Duration) bool {
	return s.page.Timeout(timeout).WaitIdle(timeout) == nil
}

func (s *rodSurface) ExpectDownload(trigger func() error, timeout time.Duration) (string, error) {
	wait := s.browser.WaitDownload(s.downloadDir)
	if err := trigger(); err != nil {
		return "", err
	}

	done := make(chan *proto.PageDownloadWillBegin, 1)
	go func() { done <- wait() }()

	select {
	case info := <-done:
		if info == nil {
			return "", errors.New("download did not begin")
		}
		return filepath.Join(s.downloadDir, info.GUID), nil
	case <-time.After(timeout):
		return "", errors.New("timed out waiting for download to begin")
	}
}

// rodControl adapts a rod element to Control.
type rodControl struct {
	el *rod.Element
}

func (c *rodControl) Text() string {
	text, err := c.el.Text()
	if err != nil {
		return ""
	}
	return text
}

func (c *rodControl) Click(timeout time.Duration) error {
	// Best effort: the element may be clickable without being scrollable.
	_ = c.el.ScrollIntoView()
	return c.el.Timeout(timeout).Click(proto.InputMouseButtonLeft, 1)
}

// jsRegex wraps a pattern as the case-insensitive JS regex literal rod
// expects for ElementR.
func jsRegex(pattern string) string {
	return "/" + pattern + "/i"
}
