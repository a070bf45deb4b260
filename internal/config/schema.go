package config

import "time"

// Config holds facturador configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Dashboard DashboardCfg `mapstructure:"dashboard" yaml:"dashboard"`
	Browser   BrowserCfg   `mapstructure:"browser" yaml:"browser"`
	Portal    PortalCfg    `mapstructure:"portal" yaml:"portal"`
	Server    ServerCfg    `mapstructure:"server" yaml:"server"`
	Sheets    SheetsCfg    `mapstructure:"sheets" yaml:"sheets"`
}

// DashboardCfg locates the vendor dashboard and the controls that lead
// from it to the billing portal.
type DashboardCfg struct {
	// URL is the dashboard entry point. Supports ${ENV_VAR} syntax.
	URL string `mapstructure:"url" yaml:"url"`
	// BillingLabel is the dashboard section that links to billing.
	BillingLabel string `mapstructure:"billing_label" yaml:"billing_label"`
	// ManageLabels are tried in order to find the button that opens the
	// subscription management portal.
	ManageLabels []string `mapstructure:"manage_labels" yaml:"manage_labels"`
}

// BrowserCfg configures the Chrome session.
type BrowserCfg struct {
	// ChromeBin overrides the Chrome binary; empty uses the default lookup.
	ChromeBin string `mapstructure:"chrome_bin" yaml:"chrome_bin"`
	// Headless hides the window. Manual login needs a visible window.
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// LoginTimeoutSeconds bounds the manual-login wait.
	LoginTimeoutSeconds int `mapstructure:"login_timeout_seconds" yaml:"login_timeout_seconds"`
}

// PortalCfg tunes invoice discovery inside the billing portal.
type PortalCfg struct {
	// InvoiceLinkPattern is the href fragment that identifies invoice links.
	InvoiceLinkPattern string `mapstructure:"invoice_link_pattern" yaml:"invoice_link_pattern"`
	// FrameKeywords mark iframe URLs that host the billing listing.
	FrameKeywords []string `mapstructure:"frame_keywords" yaml:"frame_keywords"`
	// MaxRevealRounds bounds the initial load-more loop.
	MaxRevealRounds int `mapstructure:"max_reveal_rounds" yaml:"max_reveal_rounds"`
	// DeepRevealRounds bounds the exhaustive loop used for full-history runs.
	DeepRevealRounds int `mapstructure:"deep_reveal_rounds" yaml:"deep_reveal_rounds"`
	// BackfillRounds bounds the loop that digs back to a from-date.
	BackfillRounds int `mapstructure:"backfill_rounds" yaml:"backfill_rounds"`
	// NavigateTimeoutSeconds bounds each invoice page load.
	NavigateTimeoutSeconds int `mapstructure:"navigate_timeout_seconds" yaml:"navigate_timeout_seconds"`
	// DownloadTimeoutSeconds bounds the wait for a PDF download to begin.
	DownloadTimeoutSeconds int `mapstructure:"download_timeout_seconds" yaml:"download_timeout_seconds"`
	// DownloadRetries is the retry budget for opening an invoice page.
	DownloadRetries int `mapstructure:"download_retries" yaml:"download_retries"`
}

// ServerCfg configures the HTTP API server.
type ServerCfg struct {
	Port string `mapstructure:"port" yaml:"port"`
}

// SheetsCfg configures batch runs driven by spreadsheets.
type SheetsCfg struct {
	// ServiceAccountFile is the Google service account credentials path.
	// Supports ${ENV_VAR} syntax.
	ServiceAccountFile string `mapstructure:"service_account_file" yaml:"service_account_file"`
	// InputSheet is the tab batch rows are read from.
	InputSheet string `mapstructure:"input_sheet" yaml:"input_sheet"`
	// LogSheet is the tab per-run log lines are appended to.
	LogSheet string `mapstructure:"log_sheet" yaml:"log_sheet"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Dashboard: DashboardCfg{
			URL:          "${FACTURADOR_DASHBOARD_URL}",
			BillingLabel: "Billing & Invoices",
			ManageLabels: []string{
				"Manage subscription",
				"Gestionar suscripción",
				"Manage",
				"Gestionar",
			},
		},
		Browser: BrowserCfg{
			Headless:            false,
			LoginTimeoutSeconds: 300,
		},
		Portal: PortalCfg{
			InvoiceLinkPattern:     "invoice.stripe.com/i/",
			FrameKeywords:          []string{"stripe", "billing", "invoice", "factura"},
			MaxRevealRounds:        25,
			DeepRevealRounds:       60,
			BackfillRounds:         40,
			NavigateTimeoutSeconds: 30,
			DownloadTimeoutSeconds: 8,
			DownloadRetries:        3,
		},
		Server: ServerCfg{
			Port: "8780",
		},
		Sheets: SheetsCfg{
			ServiceAccountFile: "${GOOGLE_APPLICATION_CREDENTIALS}",
			InputSheet:         "Entrada",
			LogSheet:           "Salida",
		},
	}
}

// LoginTimeout returns the manual-login wait as a duration.
func (c BrowserCfg) LoginTimeout() time.Duration {
	return time.Duration(c.LoginTimeoutSeconds) * time.Second
}

// NavigateTimeout returns the per-page navigation budget.
func (c PortalCfg) NavigateTimeout() time.Duration {
	return time.Duration(c.NavigateTimeoutSeconds) * time.Second
}

// DownloadTimeout returns the download-start budget.
func (c PortalCfg) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

// ResolveDashboardURL expands ${ENV_VAR} references in the dashboard URL.
func (c *Config) ResolveDashboardURL() string {
	return ResolveEnvVars(c.Dashboard.URL)
}

// ResolveServiceAccountFile expands ${ENV_VAR} references in the
// service account path.
func (c *Config) ResolveServiceAccountFile() string {
	return ResolveEnvVars(c.Sheets.ServiceAccountFile)
}
