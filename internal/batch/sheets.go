package batch

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads batch rows from a Google Sheets spreadsheet.
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string
	inputSheet    string
	logSheet      string
	cols          map[string]int
}

// OpenSheets connects to a spreadsheet with service account
// credentials and validates the input sheet's header.
func OpenSheets(ctx context.Context, credentialsFile, spreadsheetID, inputSheet, logSheet string) (*SheetsSource, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	s := &SheetsSource{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		inputSheet:    inputSheet,
		logSheet:      logSheet,
	}

	header, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", inputSheet)
	}
	cols, err := columnIndex(header[0])
	if err != nil {
		return nil, err
	}
	s.cols = cols

	if err := s.ensureLogSheet(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Rows returns every data row of the input sheet.
func (s *SheetsSource) Rows(ctx context.Context) ([]Row, error) {
	raw, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var out []Row
	for i, r := range raw[1:] {
		out = append(out, Row{
			Index:   i + 2,
			Estado:  cell(r, s.cols["Estado"]),
			Usuario: cell(r, s.cols["Usuario"]),
			Entrada: cell(r, s.cols["Entrada"]),
			From:    cell(r, s.cols["Periodo Inicio"]),
			To:      cell(r, s.cols["Periodo Fin"]),
		})
	}
	return out, nil
}

// SetState writes the state and result cells of one row.
func (s *SheetsSource) SetState(ctx context.Context, rowIndex int, state, result string) error {
	writes := []struct {
		col   int
		value string
	}{
		{s.cols["Estado"], state},
		{s.cols["Resultado"], result},
	}
	for _, w := range writes {
		rangeA1 := fmt.Sprintf("%s!%s%d", s.inputSheet, colName(w.col), rowIndex)
		vr := &sheets.ValueRange{Values: [][]any{{w.value}}}
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rangeA1, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", rangeA1, err)
		}
	}
	return nil
}

// AppendLog adds one line to the log sheet.
func (s *SheetsSource) AppendLog(ctx context.Context, fields []string) error {
	values := make([]any, len(fields))
	for i, f := range fields {
		values[i] = f
	}
	vr := &sheets.ValueRange{Values: [][]any{values}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.logSheet+"!A1", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append to %q: %w", s.logSheet, err)
	}
	return nil
}

// readAll fetches the input sheet as trimmed strings.
func (s *SheetsSource) readAll(ctx context.Context) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.inputSheet).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", s.inputSheet, err)
	}

	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		out = append(out, cells)
	}
	return out, nil
}

// ensureLogSheet creates the log tab if the spreadsheet lacks it.
func (s *SheetsSource) ensureLogSheet(ctx context.Context) error {
	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet metadata: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.logSheet {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: s.logSheet},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", s.logSheet, err)
	}
	return nil
}

// colName converts a zero-based column index to its A1 letter.
func colName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}
