// Package batch runs invoice retrieval for many accounts from a
// spreadsheet: each row names an account and a date window, and its
// status cell drives the trigger/claim/finalize protocol.
package batch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"facturador/internal/dates"
)

// Row states. A human writes the trigger; the runner owns the rest.
const (
	StateTrigger = "Ejecutar"
	StateClaimed = "Pendiente"
	StateDone    = "Ejecutado"
	StateFailed  = "Error"
)

// Column headers the input sheet must carry, in any order.
var requiredColumns = []string{
	"Estado",
	"Resultado",
	"Usuario",
	"Entrada",
	"Periodo Inicio",
	"Periodo Fin",
}

// Row is one batch request as read from the spreadsheet.
type Row struct {
	// Index is the 1-based spreadsheet row number, headers included.
	Index   int
	Estado  string
	Usuario string
	Entrada string
	From    string
	To      string
}

// Triggered reports whether a human has marked the row for execution.
func (r Row) Triggered() bool {
	return strings.EqualFold(strings.TrimSpace(r.Estado), StateTrigger)
}

// Source reads batch rows and writes their outcomes back.
type Source interface {
	// Rows returns every data row of the input sheet.
	Rows(ctx context.Context) ([]Row, error)

	// SetState writes the state and result cells of one row.
	SetState(ctx context.Context, rowIndex int, state, result string) error

	// AppendLog adds one line to the run log sheet.
	AppendLog(ctx context.Context, fields []string) error
}

// columnIndex maps a header row to column positions, verifying every
// required column is present. Matching is case-insensitive and ignores
// surrounding whitespace.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	out := make(map[string]int, len(requiredColumns))
	for _, col := range requiredColumns {
		i, ok := idx[strings.ToLower(col)]
		if !ok {
			return nil, fmt.Errorf("input sheet is missing the %q column", col)
		}
		out[col] = i
	}
	return out, nil
}

// cell returns the trimmed value at position i, tolerating short rows.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var (
	periodMonthRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	periodDayRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// NormalizePeriod canonicalizes a period cell to YYYY-MM or YYYY-MM-DD.
// Spreadsheets hand back slashes, unpadded months and locale-rendered
// dates; the retrieval request wants dashed ISO bounds.
func NormalizePeriod(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	if m := periodMonthRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-%02d", m[1], month)
	}
	if m := periodDayRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
	}
	if d, ok := dates.Parse(s); ok {
		return dates.Format(d)
	}
	return s
}
