package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// SessionOptions configures the browser session.
type SessionOptions struct {
	// ChromeBin is the Chrome binary to launch; empty uses rod's default.
	ChromeBin string
	// Headless hides the browser window. Login generally requires a
	// visible window, so this defaults to false.
	Headless bool
	// CookiesPath is the file session cookies are loaded from and saved to.
	CookiesPath string
	// DownloadDir is the scratch directory Chrome downloads into.
	DownloadDir string
	// DashboardURL is the vendor dashboard entry point.
	DashboardURL string
	// LoginTimeout bounds the manual-login wait.
	LoginTimeout time.Duration
	// Logger receives session events; nil uses slog.Default.
	Logger *slog.Logger
}

// Session owns one Chrome instance and its persisted authentication
// state. All work in a run happens on its single top page.
type Session struct {
	opts     SessionOptions
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	log      *slog.Logger
}

// Open launches Chrome, restores saved cookies if present, and prepares
// the top page.
func Open(opts SessionOptions) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.LoginTimeout == 0 {
		opts.LoginTimeout = 5 * time.Minute
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage")
	if opts.ChromeBin != "" {
		l = l.Bin(opts.ChromeBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &Session{opts: opts, launcher: l, browser: b, log: log}
	if err := s.loadCookies(); err != nil {
		log.Warn("failed to restore session cookies", "err", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page
	return s, nil
}

// Page returns the session's top page.
func (s *Session) Page() Page {
	return NewPage(s.browser, s.page, s.opts.DownloadDir)
}

// Close shuts the browser down. Cookies are not saved here; callers
// save them at the points the run succeeds.
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.Warn("failed to close browser", "err", err)
		}
	}
	s.launcher.Cleanup()
}

// EnsureLoggedIn navigates to the dashboard and, when the restored
// session is not live, waits for the operator to complete the login
// (including any second factor) within the login timeout. Cookies are
// saved as soon as a live session is observed.
func (s *Session) EnsureLoggedIn(ctx context.Context) error {
	top := s.Page()

	if err := top.Navigate(s.opts.DashboardURL, 25*time.Second); err != nil {
		return err
	}
	top.WaitIdle(8 * time.Second)

	if s.sessionLive() {
		s.log.Info("restored session is live")
		return s.SaveCookies()
	}

	s.log.Info("waiting for manual login", "timeout", s.opts.LoginTimeout)
	deadline := time.Now().Add(s.opts.LoginTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1200 * time.Millisecond):
		}
		if s.loggedInURL() {
			s.log.Info("login detected")
			return s.SaveCookies()
		}
	}
	return errors.New("timed out waiting for login")
}

// sessionLive checks that the dashboard actually loaded rather than a
// login or verification page.
func (s *Session) sessionLive() bool {
	if !s.loggedInURL() {
		return false
	}
	body := strings.ToLower(s.Page().BodyText())
	return !strings.Contains(body, "can't verify")
}

func (s *Session) loggedInURL() bool {
	u := strings.ToLower(s.Page().Address())
	if !strings.Contains(u, "dashboard") {
		return false
	}
	for _, marker := range []string{"login", "sign", "authenticator"} {
		if strings.Contains(u, marker) {
			return false
		}
	}
	return true
}

// OpenBillingPortal clicks through the dashboard's billing section and
// the subscription-management button, capturing the portal page that
// opens (possibly as a popup, possibly in place).
func (s *Session) OpenBillingPortal(ctx context.Context, billingLabel string, manageLabels []string) (Page, error) {
	top := s.Page()

	if !s.clickByText(billingLabel, 6*time.Second) {
		if !s.clickAnyByScan(billingLabel) {
			return nil, fmt.Errorf("could not find %q in the dashboard", billingLabel)
		}
	}
	top.WaitIdle(15 * time.Second)

	var manage Control
	for _, label := range manageLabels {
		if ctrl, ok := top.FindControl(label, 3*time.Second); ok {
			manage = ctrl
			break
		}
	}
	if manage == nil {
		return nil, errors.New("could not find the subscription management button")
	}

	portal := s.capturePortalPage(manage)

	// Load waits on the portal are advisory; some portals never go idle.
	portal.WaitIdle(20 * time.Second)
	return portal, nil
}

// capturePortalPage clicks the manage control and hunts for the page
// the portal opened in: a proper popup first, then any page whose URL
// looks like a billing portal, then the current page as last resort.
func (s *Session) capturePortalPage(manage Control) Page {
	wait := s.page.WaitOpen()
	clickErr := manage.Click(5 * time.Second)

	type opened struct {
		page *rod.Page
		err  error
	}
	ch := make(chan opened, 1)
	go func() {
		p, err := wait()
		ch <- opened{page: p, err: err}
	}()

	select {
	case o := <-ch:
		if o.err == nil && o.page != nil {
			if err := o.page.Timeout(20 * time.Second).WaitLoad(); err != nil {
				s.log.Warn("portal popup load wait failed", "err", err)
			}
			return NewPage(s.browser, o.page, s.opts.DownloadDir)
		}
	case <-time.After(6 * time.Second):
	}

	if clickErr != nil {
		s.log.Warn("manage button click failed, scanning open pages anyway", "err", clickErr)
	}

	pages, err := s.browser.Pages()
	if err == nil {
		for i := len(pages) - 1; i >= 0; i-- {
			info, err := pages[i].Info()
			if err != nil {
				continue
			}
			u := strings.ToLower(info.URL)
			for _, marker := range []string{"billing.stripe", "invoice.stripe", "/p/session", "portal"} {
				if strings.Contains(u, marker) {
					return NewPage(s.browser, pages[i], s.opts.DownloadDir)
				}
			}
		}
	}
	return s.Page()
}

func (s *Session) clickByText(label string, timeout time.Duration) bool {
	ctrl, ok := s.Page().FindControl(label, timeout)
	if !ok {
		return false
	}
	return ctrl.Click(timeout) == nil
}

// clickAnyByScan walks every link-like element and clicks the first one
// whose text contains the label. Used when the text probe fails, e.g.
// when the label is split across nested elements.
func (s *Session) clickAnyByScan(label string) bool {
	obj, err := s.page.Eval(fmt.Sprintf(`
		() => {
			const txt = %q;
			for (const el of document.querySelectorAll('a,button,[role="link"],[role="button"]')) {
				if (el.innerText && el.innerText.includes(txt)) { el.click(); return true; }
			}
			return false;
		}
	`, label))
	if err != nil {
		return false
	}
	return obj.Value.Bool()
}

// SaveCookies persists the browser's cookies for the next run.
func (s *Session) SaveCookies() error {
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	if err := os.WriteFile(s.opts.CookiesPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies: %w", err)
	}
	return nil
}

func (s *Session) loadCookies() error {
	data, err := os.ReadFile(s.opts.CookiesPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("failed to decode cookies: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	return s.browser.SetCookies(params)
}
