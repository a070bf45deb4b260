package portal

import "facturador/internal/dates"

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ItemError records one invoice that could not be retrieved. The run
// continues past item errors; they are reported in the summary.
type ItemError struct {
	Reference string `json:"reference" yaml:"reference"`
	Message   string `json:"message" yaml:"message"`
}

// Filter echoes the effective date window of a run.
type Filter struct {
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to,omitempty" yaml:"to,omitempty"`
	All  bool   `json:"all,omitempty" yaml:"all,omitempty"`
}

// Summary is the outcome of one retrieval run.
type Summary struct {
	Status     string      `json:"status" yaml:"status"`
	Message    string      `json:"message" yaml:"message"`
	RunID      string      `json:"run_id" yaml:"run_id"`
	Downloaded int         `json:"downloaded" yaml:"downloaded"`
	Skipped    int         `json:"skipped" yaml:"skipped"`
	Errors     []ItemError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Filter     Filter      `json:"filter" yaml:"filter"`
	Folder     string      `json:"folder" yaml:"folder"`
}

// Failed reports whether any invoice in the run was lost.
func (s *Summary) Failed() bool {
	return s.Status != StatusOK || len(s.Errors) > 0
}

func filterEcho(r Range) Filter {
	f := Filter{All: r.All}
	if !r.From.IsZero() {
		f.From = dates.Format(r.From)
	}
	if !r.To.IsZero() {
		f.To = dates.Format(r.To)
	}
	return f
}
