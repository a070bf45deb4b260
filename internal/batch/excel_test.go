package batch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Entrada"))
	header := []string{"Estado", "Resultado", "Usuario", "Entrada", "Periodo Inicio", "Periodo Fin"}
	for i, h := range header {
		cellName, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Entrada", cellName, h))
	}
	row := []string{"Ejecutar", "", "maria@example.com", "https://cursor.com", "2025-06", "2025-06"}
	for i, v := range row {
		cellName, err := excelize.CoordinatesToCellName(i+1, 2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Entrada", cellName, v))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestExcelSourceRoundTrip(t *testing.T) {
	path := writeWorkbook(t)
	ctx := context.Background()

	src, err := OpenExcel(path, "Entrada", "Salida")
	require.NoError(t, err)
	defer src.Close()

	rows, err := src.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].Index)
	require.True(t, rows[0].Triggered())
	require.Equal(t, "maria@example.com", rows[0].Usuario)
	require.Equal(t, "2025-06", rows[0].From)

	require.NoError(t, src.SetState(ctx, 2, StateDone, "downloaded 1 of 1 invoices"))
	require.NoError(t, src.AppendLog(ctx, []string{"2025-06-30T12:00:00Z", "2", "maria@example.com", "run-1", "1", "ok"}))

	// Reopen to prove the writes were persisted.
	again, err := OpenExcel(path, "Entrada", "Salida")
	require.NoError(t, err)
	defer again.Close()

	rows, err = again.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, StateDone, rows[0].Estado)

	logRows, err := again.file.GetRows("Salida")
	require.NoError(t, err)
	require.Len(t, logRows, 1)
	require.Equal(t, "run-1", logRows[0][3])
}

func TestOpenExcelRejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Entrada"))
	require.NoError(t, f.SetCellValue("Entrada", "A1", "Estado"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := OpenExcel(path, "Entrada", "Salida")
	require.Error(t, err)
}
