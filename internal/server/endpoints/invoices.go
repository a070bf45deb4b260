package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"facturador/internal/api"
	"facturador/internal/dates"
	"facturador/internal/portal"
	"facturador/internal/svcctx"
)

// DownloadRequest is the body of POST /api/invoices/download. Bounds
// accept YYYY-MM-DD or YYYY-MM; empty bounds are open. Full-history
// runs are a CLI-only affair and deliberately not exposed here.
type DownloadRequest struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	Source   string `json:"source,omitempty"`
	User     string `json:"user,omitempty"`
}

// InvoicesEndpoint handles POST /api/invoices/download.
type InvoicesEndpoint struct{}

func (e *InvoicesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/invoices/download", e.handler
}

func (e *InvoicesEndpoint) RequiresInit() bool { return true }

func (e *InvoicesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	// Reject malformed bounds before a browser is ever launched.
	if _, err := dates.ParseBound(req.DateFrom, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := dates.ParseBound(req.DateTo, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc := svcctx.RetrieverFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "retrieval service not ready")
		return
	}

	summary, err := svc.Fetch(r.Context(), portal.Request{
		From:   req.DateFrom,
		To:     req.DateTo,
		Source: req.Source,
		User:   req.User,
	})
	if err != nil {
		if errors.Is(err, dates.ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if summary != nil {
			// The run died partway; return what it managed to do.
			writeJSON(w, http.StatusInternalServerError, summary)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (e *InvoicesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req DownloadRequest

	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Trigger an invoice retrieval run on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var summary portal.Summary
			if err := client.Post(cmd.Context(), "/api/invoices/download", req, &summary); err != nil {
				return err
			}
			if err := api.Output(summary); err != nil {
				return err
			}
			if summary.Failed() {
				return fmt.Errorf("%d invoice(s) failed", len(summary.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.DateFrom, "from", "f", "", "start of the date window (YYYY-MM-DD or YYYY-MM)")
	cmd.Flags().StringVarP(&req.DateTo, "to", "t", "", "end of the date window (YYYY-MM-DD or YYYY-MM)")
	cmd.Flags().StringVar(&req.Source, "source", "", "source tag used in file names")
	cmd.Flags().StringVar(&req.User, "user", "", "user tag used in file names")

	return cmd
}
