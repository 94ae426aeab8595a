package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fundcountdown/internal/cache"
	"fundcountdown/internal/core"
	"fundcountdown/internal/log"
	"fundcountdown/internal/services"
	"fundcountdown/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	svc := services.NewFundService(store,
		services.WithReportCache(cache.NewLRU[int64, core.FundReport](10, time.Minute)),
		services.WithClock(func() time.Time { return now }),
	)
	srv := NewServer(":0", svc, log.Discard())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

// do sends body as JSON and decodes the response into out when out is not nil.
func do(t *testing.T, srv *Server, method, path, body string, out any) int {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if out != nil && rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr.Code
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get(log.RequestIDHeader) == "" {
			t.Fatalf("%s: missing request id header", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s: missing security headers", path)
		}
	}
}

func TestFundLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var fund fundView
	if code := do(t, srv, http.MethodPost, "/api/funds",
		`{"name":"Wedding","currency":"USD","expected_date":"2027-04-16"}`, &fund); code != http.StatusCreated {
		t.Fatalf("create fund status=%d", code)
	}
	fundPath := "/api/funds/" + itoa(fund.ID)

	var expense expenseView
	if code := do(t, srv, http.MethodPost, fundPath+"/expenses",
		`{"name":"Venue","unit_price":"1000.00","occurrence":1}`, &expense); code != http.StatusCreated {
		t.Fatalf("create expense status=%d", code)
	}
	if expense.Amount.String() != "USD 1000.00" {
		t.Fatalf("expense amount = %s", expense.Amount)
	}
	expensePath := "/api/expenses/" + itoa(expense.ID)

	var cheap, dear quotationView
	if code := do(t, srv, http.MethodPost, expensePath+"/quotations",
		`{"name":"Barn","unit_price":{"amount":"800","currency":"USD"},"occurrence":1}`, &cheap); code != http.StatusCreated {
		t.Fatalf("create quotation status=%d", code)
	}
	if code := do(t, srv, http.MethodPost, expensePath+"/quotations",
		`{"name":"Hall","unit_price":950,"occurrence":1}`, &dear); code != http.StatusCreated {
		t.Fatalf("create quotation status=%d", code)
	}

	if code := do(t, srv, http.MethodGet, expensePath, "", &expense); code != http.StatusOK {
		t.Fatalf("get expense status=%d", code)
	}
	if expense.WinnerID != cheap.ID || expense.Amount.String() != "USD 800.00" {
		t.Fatalf("cheapest quotation should win, got winner %d amount %s", expense.WinnerID, expense.Amount)
	}

	if code := do(t, srv, http.MethodPost, expensePath+"/winner",
		`{"quotation_id":`+itoa(dear.ID)+`}`, &expense); code != http.StatusOK {
		t.Fatalf("set winner status=%d", code)
	}
	if expense.WinnerID != dear.ID || expense.Amount.String() != "USD 950.00" {
		t.Fatalf("winner = %d amount %s", expense.WinnerID, expense.Amount)
	}

	var errBody errorBody
	if code := do(t, srv, http.MethodPut, expensePath+"/unit_price", `{"unit_price":"10"}`, &errBody); code != http.StatusConflict {
		t.Fatalf("set unit price with quotations status=%d, want 409", code)
	}

	var account accountView
	if code := do(t, srv, http.MethodPost, fundPath+"/accounts",
		`{"name":"Savings","currency":"USD"}`, &account); code != http.StatusCreated {
		t.Fatalf("create account status=%d", code)
	}
	var input cashInputView
	if code := do(t, srv, http.MethodPost, "/api/accounts/"+itoa(account.ID)+"/inputs",
		`{"value":"250.50","description":"october"}`, &input); code != http.StatusCreated {
		t.Fatalf("record input status=%d", code)
	}
	if code := do(t, srv, http.MethodGet, "/api/accounts/"+itoa(account.ID), "", &account); code != http.StatusOK {
		t.Fatalf("get account status=%d", code)
	}
	if account.Balance == nil || account.Balance.String() != "USD 250.50" {
		t.Fatalf("balance = %v", account.Balance)
	}

	var report core.FundReport
	if code := do(t, srv, http.MethodGet, fundPath+"/report", "", &report); code != http.StatusOK {
		t.Fatalf("report status=%d", code)
	}
	if report.FullCost.String() != "USD 950.00" || report.Remaining.String() != "USD 699.50" {
		t.Fatalf("report = %+v", report)
	}

	var funds []fundView
	if code := do(t, srv, http.MethodGet, "/api/funds", "", &funds); code != http.StatusOK || len(funds) != 1 {
		t.Fatalf("list funds status=%d len=%d", code, len(funds))
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t)

	var cat categoryView
	if code := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Gifts"}`, &cat); code != http.StatusCreated {
		t.Fatalf("create category status=%d", code)
	}
	if code := do(t, srv, http.MethodGet, "/api/categories/"+itoa(cat.ID)+"?currency=EUR", "", &cat); code != http.StatusOK {
		t.Fatalf("get category status=%d", code)
	}
	if cat.Amount == nil || cat.Amount.String() != "EUR 0.00" {
		t.Fatalf("empty category amount = %v", cat.Amount)
	}

	var fund fundView
	do(t, srv, http.MethodPost, "/api/funds", `{"name":"Trip","currency":"BRL"}`, &fund)
	var account accountView
	do(t, srv, http.MethodPost, "/api/funds/"+itoa(fund.ID)+"/accounts", `{"name":"Box"}`, &account)
	for _, v := range []string{"10", "15.25"} {
		body := `{"value":"` + v + `","categories":[` + itoa(cat.ID) + `]}`
		if code := do(t, srv, http.MethodPost, "/api/accounts/"+itoa(account.ID)+"/inputs", body, nil); code != http.StatusCreated {
			t.Fatalf("record input status=%d", code)
		}
	}
	if code := do(t, srv, http.MethodGet, "/api/categories/"+itoa(cat.ID), "", &cat); code != http.StatusOK {
		t.Fatalf("get category status=%d", code)
	}
	if cat.Amount.String() != "BRL 25.25" {
		t.Fatalf("category amount = %s", cat.Amount)
	}
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)
	var fund fundView
	do(t, srv, http.MethodPost, "/api/funds", `{"name":"House","currency":"EUR"}`, &fund)
	fundPath := "/api/funds/" + itoa(fund.ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing fund", http.MethodGet, "/api/funds/999", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/funds/abc", "", http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/funds", `{"name":`, http.StatusBadRequest},
		{"empty name", http.MethodPost, "/api/funds", `{"name":"  "}`, http.StatusUnprocessableEntity},
		{"bad currency", http.MethodPost, "/api/funds", `{"name":"X","currency":"EURO"}`, http.StatusUnprocessableEntity},
		{"bad price", http.MethodPost, fundPath + "/expenses", `{"name":"Roof","unit_price":"abc"}`, http.StatusUnprocessableEntity},
		{"boolean price", http.MethodPost, fundPath + "/expenses", `{"name":"Roof","unit_price":true}`, http.StatusUnprocessableEntity},
		{"unknown partner", http.MethodPost, fundPath + "/expenses", `{"name":"Roof","partner_id":42}`, http.StatusUnprocessableEntity},
		{"foreign price", http.MethodPost, fundPath + "/expenses", `{"name":"Roof","unit_price":{"amount":"5","currency":"USD"}}`, http.StatusConflict},
		{"foreign account", http.MethodPost, fundPath + "/accounts", `{"name":"Dollars","currency":"USD"}`, http.StatusConflict},
		{"wrong method", http.MethodDelete, fundPath, "", http.StatusMethodNotAllowed},
		{"empty username", http.MethodPost, fundPath + "/partners", `{"username":""}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, srv, tt.method, tt.path, tt.body, nil); code != tt.want {
				t.Fatalf("status=%d, want %d", code, tt.want)
			}
		})
	}

	// Rejected writes leave the fund reportable.
	if code := do(t, srv, http.MethodGet, fundPath+"/report", "", nil); code != http.StatusOK {
		t.Fatalf("report status=%d, want 200", code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t)
	limited := false
	for range 61 {
		if code := do(t, srv, http.MethodPost, "/api/categories", `{"name":"C"}`, nil); code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatal("expected the 61st write to be rate limited")
	}
	if code := do(t, srv, http.MethodGet, "/healthz", "", nil); code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", code)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
