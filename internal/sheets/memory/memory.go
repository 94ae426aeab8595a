package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fundcountdown/internal/core"
	"fundcountdown/internal/sheets"
)

var _ sheets.ReportWriter = (*Writer)(nil)

// Writer keeps report rows in memory, one per fund, in first-write order.
type Writer struct {
	mu    sync.Mutex
	order []int64
	rows  map[int64][]any
}

func New() *Writer {
	return &Writer{rows: map[int64][]any{}}
}

func (w *Writer) WriteReport(_ context.Context, r core.FundReport) (string, error) {
	if r.FundID <= 0 {
		return "", fmt.Errorf("write report: fund id %d: %w", r.FundID, core.ErrNotFound)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.rows[r.FundID]; !ok {
		w.order = append(w.order, r.FundID)
	}
	w.rows[r.FundID] = sheets.Row(r)
	// Row 1 is the header.
	return fmt.Sprintf("mem:%d", slices.Index(w.order, r.FundID)+2), nil
}

// Rows returns a copy of the rows in sheet order.
func (w *Writer) Rows() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]any, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, slices.Clone(w.rows[id]))
	}
	return out
}
