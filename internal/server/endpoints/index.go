package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"facturador/internal/api"
	"facturador/version"
)

// IndexResponse describes the service to clients probing GET /.
type IndexResponse struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// IndexEndpoint handles GET /.
type IndexEndpoint struct{}

func (e *IndexEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{$}", e.handler
}

func (e *IndexEndpoint) RequiresInit() bool { return false }

func (e *IndexEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, IndexResponse{
		Service: "facturador",
		Version: version.GitRelease,
		Endpoints: []string{
			"GET /",
			"GET /health",
			"GET /ready",
			"POST /api/invoices/download",
		},
	})
}

func (e *IndexEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp IndexResponse
			if err := client.Get(cmd.Context(), "/", &resp); err != nil {
				return err
			}
			fmt.Printf("Service: %s (%s)\n", resp.Service, resp.Version)
			for _, ep := range resp.Endpoints {
				fmt.Printf("  %s\n", ep)
			}
			return nil
		},
	}
}
