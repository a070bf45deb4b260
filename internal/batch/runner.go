package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"facturador/internal/portal"
)

// Fetcher runs one retrieval; retrieve.Service satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req portal.Request) (*portal.Summary, error)
}

// Outcome summarizes one batch pass.
type Outcome struct {
	Total     int `json:"total" yaml:"total"`
	Triggered int `json:"triggered" yaml:"triggered"`
	Completed int `json:"completed" yaml:"completed"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Runner walks the input sheet and executes every triggered row.
type Runner struct {
	Source  Source
	Fetcher Fetcher
	Log     *slog.Logger
	// Now is the clock stamped into log lines. Nil means time.Now.
	Now func() time.Time
}

// Run claims and executes all triggered rows in sheet order. Row
// failures are written back to the sheet and do not stop the pass;
// only sheet access errors abort it.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	if r.Log == nil {
		r.Log = slog.Default()
	}

	rows, err := r.Source.Rows(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read batch rows: %w", err)
	}

	out := Outcome{Total: len(rows)}
	for _, row := range rows {
		if !row.Triggered() {
			continue
		}
		out.Triggered++

		if err := ctx.Err(); err != nil {
			return out, err
		}

		// Claim first so a concurrent pass skips the row.
		if err := r.Source.SetState(ctx, row.Index, StateClaimed, ""); err != nil {
			return out, fmt.Errorf("failed to claim row %d: %w", row.Index, err)
		}

		summary, runErr := r.Fetcher.Fetch(ctx, portal.Request{
			From:   NormalizePeriod(row.From),
			To:     NormalizePeriod(row.To),
			Source: SourceAlias(row.Entrada),
			User:   UserAlias(row.Usuario),
		})

		state, result := finalState(summary, runErr)
		if state == StateDone {
			out.Completed++
		} else {
			out.Failed++
		}

		if err := r.Source.SetState(ctx, row.Index, state, result); err != nil {
			return out, fmt.Errorf("failed to finalize row %d: %w", row.Index, err)
		}
		if err := r.Source.AppendLog(ctx, r.logLine(row, summary, result)); err != nil {
			r.Log.Warn("failed to append batch log line", "row", row.Index, "err", err)
		}

		r.Log.Info("batch row finished",
			"row", row.Index, "user", row.Usuario, "state", state)
	}

	return out, nil
}

// finalState decides what to write back for a finished row.
func finalState(summary *portal.Summary, runErr error) (state, result string) {
	switch {
	case runErr != nil:
		return StateFailed, runErr.Error()
	case summary.Failed():
		return StateFailed, fmt.Sprintf("%s (%d fallidas)", summary.Message, len(summary.Errors))
	default:
		return StateDone, summary.Message
	}
}

// logLine builds one run-log record: timestamp, row, user, run id,
// downloads, result.
func (r *Runner) logLine(row Row, summary *portal.Summary, result string) []string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	runID := ""
	downloaded := 0
	if summary != nil {
		runID = summary.RunID
		downloaded = summary.Downloaded
	}
	return []string{
		now().Format(time.RFC3339),
		strconv.Itoa(row.Index),
		row.Usuario,
		runID,
		strconv.Itoa(downloaded),
		result,
	}
}
