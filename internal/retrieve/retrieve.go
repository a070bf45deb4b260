// Package retrieve runs complete invoice-retrieval sessions: browser
// launch, login, portal navigation, download, teardown. It is the one
// entry point the CLI, the HTTP server and the batch runners share.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"facturador/internal/browser"
	"facturador/internal/config"
	"facturador/internal/home"
	"facturador/internal/portal"
)

// Service runs retrieval sessions. Runs are serialized: each one owns a
// visible Chrome window and possibly the operator's attention for a
// manual login, so two can never usefully overlap.
type Service struct {
	cfg  *config.Manager
	home *home.Dir
	log  *slog.Logger

	mu sync.Mutex
}

// New creates a retrieval service.
func New(cfg *config.Manager, h *home.Dir, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, home: h, log: log}
}

// Fetch executes one retrieval run end to end and returns its summary.
// Item-level failures live inside the summary; an error means the run
// itself could not complete.
func (s *Service) Fetch(ctx context.Context, req portal.Request) (*portal.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg.Get()
	if err := s.home.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to prepare home directory: %w", err)
	}

	dashboardURL := cfg.ResolveDashboardURL()
	if dashboardURL == "" {
		return nil, fmt.Errorf("dashboard URL is not configured")
	}

	session, err := browser.Open(browser.SessionOptions{
		ChromeBin:    cfg.Browser.ChromeBin,
		Headless:     cfg.Browser.Headless,
		CookiesPath:  s.home.CookiesPath(),
		DownloadDir:  s.home.DownloadsPath(),
		DashboardURL: dashboardURL,
		LoginTimeout: cfg.Browser.LoginTimeout(),
		Logger:       s.log,
	})
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.EnsureLoggedIn(ctx); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	page, err := session.OpenBillingPortal(ctx, cfg.Dashboard.BillingLabel, cfg.Dashboard.ManageLabels)
	if err != nil {
		return nil, fmt.Errorf("could not reach the billing portal: %w", err)
	}

	fetcher := portal.New(page, s.home, cfg.Portal, s.log)
	summary, runErr := fetcher.Run(ctx, req)

	// Keep whatever session state the run produced, even on failure.
	if err := session.SaveCookies(); err != nil {
		s.log.Warn("failed to persist session cookies", "err", err)
	}

	return summary, runErr
}

// Home returns the service's home directory.
func (s *Service) Home() *home.Dir {
	return s.home
}
