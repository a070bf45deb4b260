package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"facturador/internal/api"
	"facturador/internal/batch"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet <spreadsheet-id>",
	Short: "Run every triggered row of a Google Sheets spreadsheet",
	Long: `Sheet reads the "Entrada" sheet of a Google Sheets spreadsheet and
runs a retrieval session for every row whose Estado cell says
"Ejecutar". Outcomes are written back to the row and a log line is
appended to the "Salida" sheet.

Access uses a service account; point sheets.service_account_file (or
GOOGLE_APPLICATION_CREDENTIALS) at its JSON key and share the
spreadsheet with the service account's email.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, mgr, err := loadRetriever()
		if err != nil {
			return err
		}

		cfg := mgr.Get()
		creds := cfg.ResolveServiceAccountFile()
		if creds == "" {
			return fmt.Errorf("no service account file configured (set sheets.service_account_file or GOOGLE_APPLICATION_CREDENTIALS)")
		}

		src, err := batch.OpenSheets(cmd.Context(), creds, args[0], cfg.Sheets.InputSheet, cfg.Sheets.LogSheet)
		if err != nil {
			return err
		}

		runner := &batch.Runner{Source: src, Fetcher: svc, Log: newLogger()}
		out, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}
		if err := api.Output(out); err != nil {
			return err
		}
		if out.Failed > 0 {
			return fmt.Errorf("%d row(s) failed", out.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sheetCmd)
}
