package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"facturador/internal/api"
	"facturador/internal/portal"
)

var fetchReq portal.Request

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one invoice retrieval session",
	Long: `Fetch opens the browser, makes sure the dashboard session is live,
navigates to the billing portal and downloads every invoice in the
requested date window.

Date bounds accept YYYY-MM-DD or YYYY-MM; a month bound expands to the
first or last day of the month. With no bounds, only the invoices the
portal shows up front are taken; --all digs through the full history.

Examples:
  facturador fetch --from 2025-06 --to 2025-06
  facturador fetch --from 2025-01-15
  facturador fetch --all --source cursor --user maria`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := loadRetriever()
		if err != nil {
			return err
		}

		summary, runErr := svc.Fetch(cmd.Context(), fetchReq)
		if summary != nil {
			if err := api.Output(summary); err != nil {
				return err
			}
		}
		if runErr != nil {
			return runErr
		}
		if summary.Failed() {
			return fmt.Errorf("%d invoice(s) failed", len(summary.Errors))
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchReq.From, "from", "f", "", "start of the date window (YYYY-MM-DD or YYYY-MM)")
	fetchCmd.Flags().StringVarP(&fetchReq.To, "to", "t", "", "end of the date window (YYYY-MM-DD or YYYY-MM)")
	fetchCmd.Flags().BoolVar(&fetchReq.All, "all", false, "reveal and download the portal's full history")
	fetchCmd.Flags().StringVar(&fetchReq.Source, "source", "", "source tag used in file names (default \"cursor\")")
	fetchCmd.Flags().StringVar(&fetchReq.User, "user", "", "user tag used in file names (default \"usuario\")")

	rootCmd.AddCommand(fetchCmd)
}
