package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"facturador/internal/api"
	"facturador/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch <workbook.xlsx>",
	Short: "Run every triggered row of an Excel workbook",
	Long: `Batch reads the "Entrada" sheet of a workbook and runs a retrieval
session for every row whose Estado cell says "Ejecutar". Outcomes are
written back to the row and a log line is appended to the "Salida"
sheet.

The sheet needs the columns Estado, Resultado, Usuario, Entrada,
"Periodo Inicio" and "Periodo Fin" (any order).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, mgr, err := loadRetriever()
		if err != nil {
			return err
		}

		sheets := mgr.Get().Sheets
		src, err := batch.OpenExcel(args[0], sheets.InputSheet, sheets.LogSheet)
		if err != nil {
			return err
		}
		defer src.Close()

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
	rootCmd.AddCommand(batchCmd)
}
