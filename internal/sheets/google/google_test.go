package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"fundcountdown/internal/core"

	"golang.org/x/text/currency"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheet serves the two Values endpoints the client uses.
type fakeSheet struct {
	mu    sync.Mutex
	cells map[int][]any
	gets  int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := strings.Index(r.URL.Path, "/values/")
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[i+len("/values/"):]

	switch r.Method {
	case http.MethodGet:
		f.gets++
		last := 0
		for row := range f.cells {
			last = max(last, row)
		}
		values := make([][]any, last)
		for row := 1; row <= last; row++ {
			if cells, ok := f.cells[row]; ok && len(cells) > 0 {
				values[row-1] = []any{cells[0]}
			} else {
				values[row-1] = []any{}
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": values})
	case http.MethodPut:
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		start := strings.Index(rng, "!A") + 2
		end := strings.Index(rng, ":")
		row, err := strconv.Atoi(rng[start:end])
		if err != nil {
			http.Error(w, "bad range "+rng, http.StatusBadRequest)
			return
		}
		f.cells[row] = body.Values[0]
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	default:
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, fake *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-1", "")
}

func report(id int64) core.FundReport {
	return core.FundReport{
		FundID:      id,
		Name:        "Fund " + strconv.FormatInt(id, 10),
		FullCost:    core.MoneyOf(100, currency.USD),
		GeneratedAt: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}
}

func TestWriteReportUpsertsRows(t *testing.T) {
	fake := &fakeSheet{cells: map[int][]any{}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.WriteReport(ctx, report(5))
	if err != nil {
		t.Fatalf("write report: %v", err)
	}
	if ref != "Funds!A2:L2" {
		t.Fatalf("ref = %q, want Funds!A2:L2", ref)
	}
	if fake.cells[1][0] != "Fund ID" {
		t.Fatalf("header not written: %v", fake.cells[1])
	}

	if ref, _ := c.WriteReport(ctx, report(9)); ref != "Funds!A3:L3" {
		t.Fatalf("second fund ref = %q", ref)
	}
	if ref, _ := c.WriteReport(ctx, report(5)); ref != "Funds!A2:L2" {
		t.Fatalf("rewrite ref = %q", ref)
	}
	if fake.gets != 1 {
		t.Fatalf("column A read %d times, want 1", fake.gets)
	}

	// A fresh client finds existing rows from column A.
	fresh := newTestClient(t, fake)
	if ref, _ := fresh.WriteReport(ctx, report(9)); ref != "Funds!A3:L3" {
		t.Fatalf("fresh client ref = %q, want Funds!A3:L3", ref)
	}
	if ref, _ := fresh.WriteReport(ctx, report(11)); ref != "Funds!A4:L4" {
		t.Fatalf("new fund ref = %q, want Funds!A4:L4", ref)
	}
}

func TestRowIndexExpires(t *testing.T) {
	fake := &fakeSheet{cells: map[int][]any{}}
	c := newTestClient(t, fake)
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	_, _ = c.WriteReport(ctx, report(1))
	now = now.Add(rowIndexTTL + time.Second)
	_, _ = c.WriteReport(ctx, report(1))
	if fake.gets != 2 {
		t.Fatalf("column A read %d times, want 2", fake.gets)
	}
}

func TestNewRequiresSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteReportWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Funds", now: time.Now}
	if _, err := c.WriteReport(context.Background(), report(1)); err == nil {
		t.Fatal("expected error without a service")
	}
}
