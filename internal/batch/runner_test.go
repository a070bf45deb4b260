package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"facturador/internal/portal"
)

type fakeSource struct {
	rows   []Row
	states map[int][2]string
	log    [][]string
}

func newFakeSource(rows ...Row) *fakeSource {
	return &fakeSource{rows: rows, states: map[int][2]string{}}
}

func (s *fakeSource) Rows(context.Context) ([]Row, error) { return s.rows, nil }

func (s *fakeSource) SetState(_ context.Context, rowIndex int, state, result string) error {
	s.states[rowIndex] = [2]string{state, result}
	return nil
}

func (s *fakeSource) AppendLog(_ context.Context, fields []string) error {
	s.log = append(s.log, fields)
	return nil
}

type fakeFetcher struct {
	requests  []portal.Request
	summaries map[string]*portal.Summary
	errs      map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, req portal.Request) (*portal.Summary, error) {
	f.requests = append(f.requests, req)
	if err := f.errs[req.User]; err != nil {
		return nil, err
	}
	if s := f.summaries[req.User]; s != nil {
		return s, nil
	}
	return &portal.Summary{Status: portal.StatusOK, Message: "downloaded 1 of 1 invoices", Downloaded: 1}, nil
}

func TestRunnerExecutesTriggeredRows(t *testing.T) {
	src := newFakeSource(
		Row{Index: 2, Estado: "Ejecutar", Usuario: "maria@example.com", Entrada: "https://cursor.com", From: "2025-06", To: "2025-06"},
		Row{Index: 3, Estado: "Ejecutado", Usuario: "done@example.com"},
		Row{Index: 4, Estado: "", Usuario: "idle@example.com"},
	)
	fetcher := &fakeFetcher{}

	out, err := (&Runner{Source: src, Fetcher: fetcher}).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, Outcome{Total: 3, Triggered: 1, Completed: 1}, out)
	require.Len(t, fetcher.requests, 1)
	require.Equal(t, "2025-06", fetcher.requests[0].From)
	require.Equal(t, "cursor", fetcher.requests[0].Source)
	require.Equal(t, "maria", fetcher.requests[0].User)

	require.Equal(t, StateDone, src.states[2][0])
	require.Len(t, src.log, 1)
}

func TestRunnerTriggerIsCaseInsensitive(t *testing.T) {
	src := newFakeSource(Row{Index: 2, Estado: "  ejecutar ", Usuario: "maria@example.com"})
	fetcher := &fakeFetcher{}

	out, err := (&Runner{Source: src, Fetcher: fetcher}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, out.Triggered)
}

func TestRunnerMarksFailures(t *testing.T) {
	src := newFakeSource(
		Row{Index: 2, Estado: "Ejecutar", Usuario: "bad@example.com"},
		Row{Index: 3, Estado: "Ejecutar", Usuario: "good@example.com"},
	)
	fetcher := &fakeFetcher{
		errs: map[string]error{"bad": errors.New("login failed")},
	}

	out, err := (&Runner{Source: src, Fetcher: fetcher}).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, out.Triggered)
	require.Equal(t, 1, out.Completed)
	require.Equal(t, 1, out.Failed)
	require.Equal(t, StateFailed, src.states[2][0])
	require.Equal(t, "login failed", src.states[2][1])
	require.Equal(t, StateDone, src.states[3][0])
}

func TestRunnerMarksPartialRunsAsFailed(t *testing.T) {
	src := newFakeSource(Row{Index: 2, Estado: "Ejecutar", Usuario: "maria@example.com"})
	fetcher := &fakeFetcher{
		summaries: map[string]*portal.Summary{
			"maria": {
				Status:     portal.StatusOK,
				Message:    "downloaded 1 of 2 invoices",
				Downloaded: 1,
				Errors:     []portal.ItemError{{Reference: "2025-06-05", Message: "download failed"}},
			},
		},
	}

	_, err := (&Runner{Source: src, Fetcher: fetcher}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateFailed, src.states[2][0])
	require.Contains(t, src.states[2][1], "1 fallidas")
}

func TestColumnIndexRequiresAllColumns(t *testing.T) {
	_, err := columnIndex([]string{"Estado", "Resultado", "Usuario", "Entrada", "Periodo Inicio"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Periodo Fin")

	cols, err := columnIndex([]string{"periodo fin", "estado", "resultado", "usuario", "entrada", "Periodo Inicio"})
	require.NoError(t, err)
	require.Equal(t, 0, cols["Periodo Fin"])
	require.Equal(t, 1, cols["Estado"])
}

func TestNormalizePeriod(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"2025-06":     "2025-06",
		"2025/06":     "2025-06",
		"2025/6":      "2025-06",
		"2025-06-05":  "2025-06-05",
		"2025/06/05":  "2025-06-05",
		"2025-6-5":    "2025-06-05",
		"05/06/2025":  "2025-06-05",
		"5 jun 2025":  "2025-06-05",
		"sin periodo": "sin periodo",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, NormalizePeriod(in))
		})
	}
}
