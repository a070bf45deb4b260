package batch

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelSource reads batch rows from a local .xlsx workbook.
type ExcelSource struct {
	file       *excelize.File
	path       string
	inputSheet string
	logSheet   string
	cols       map[string]int
}

// OpenExcel opens a workbook and validates the input sheet's header.
func OpenExcel(path, inputSheet, logSheet string) (*ExcelSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	rows, err := f.GetRows(inputSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %q: %w", inputSheet, err)
	}
	if len(rows) == 0 {
		f.Close()
		return nil, fmt.Errorf("sheet %q has no header row", inputSheet)
	}

	cols, err := columnIndex(rows[0])
	if err != nil {
		f.Close()
		return nil, err
	}

	return &ExcelSource{
		file:       f,
		path:       path,
		inputSheet: inputSheet,
		logSheet:   logSheet,
		cols:       cols,
	}, nil
}

// Close releases the workbook.
func (s *ExcelSource) Close() error {
	return s.file.Close()
}

// Rows returns every data row of the input sheet.
func (s *ExcelSource) Rows(ctx context.Context) ([]Row, error) {
	raw, err := s.file.GetRows(s.inputSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", s.inputSheet, err)
	}

	var out []Row
	for i, r := range raw[1:] {
		out = append(out, Row{
			Index:   i + 2, // 1-based, after the header
			Estado:  cell(r, s.cols["Estado"]),
			Usuario: cell(r, s.cols["Usuario"]),
			Entrada: cell(r, s.cols["Entrada"]),
			From:    cell(r, s.cols["Periodo Inicio"]),
			To:      cell(r, s.cols["Periodo Fin"]),
		})
	}
	return out, nil
}

// SetState writes the state and result cells of one row and saves the
// workbook, so progress survives a crash mid-pass.
func (s *ExcelSource) SetState(ctx context.Context, rowIndex int, state, result string) error {
	if err := s.setCell(rowIndex, s.cols["Estado"], state); err != nil {
		return err
	}
	if err := s.setCell(rowIndex, s.cols["Resultado"], result); err != nil {
		return err
	}
	if err := s.file.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// AppendLog adds one line to the log sheet, creating it on first use.
func (s *ExcelSource) AppendLog(ctx context.Context, fields []string) error {
	idx, err := s.file.GetSheetIndex(s.logSheet)
	if err != nil {
		return fmt.Errorf("failed to look up sheet %q: %w", s.logSheet, err)
	}
	if idx < 0 {
		if _, err := s.file.NewSheet(s.logSheet); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", s.logSheet, err)
		}
	}

	existing, err := s.file.GetRows(s.logSheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %q: %w", s.logSheet, err)
	}
	rowNum := len(existing) + 1

	for i, v := range fields {
		name, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := s.file.SetCellValue(s.logSheet, name, v); err != nil {
			return fmt.Errorf("failed to write log cell: %w", err)
		}
	}
	if err := s.file.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (s *ExcelSource) setCell(rowIndex, col int, value string) error {
	name, err := excelize.CoordinatesToCellName(col+1, rowIndex)
	if err != nil {
		return err
	}
	if err := s.file.SetCellValue(s.inputSheet, name, value); err != nil {
		return fmt.Errorf("failed to write cell %s: %w", name, err)
	}
	return nil
}
