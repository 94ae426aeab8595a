package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fundcountdown/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

func TestMoneyValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    any
		wantErr error
	}{
		{"absent", ``, nil, nil},
		{"null", `null`, nil, nil},
		{"string", `"12,50"`, "12,50", nil},
		{"number", `12.5`, decimal.RequireFromString("12.5"), nil},
		{"object", `{"amount":"3.10","currency":"eur"}`, core.Money{Amount: decimal.RequireFromString("3.10"), Currency: currency.EUR}, nil},
		{"object without currency", `{"amount":7}`, core.Money{Amount: decimal.NewFromInt(7)}, nil},
		{"object bad amount", `{"amount":"x"}`, nil, core.ErrInvalidMoney},
		{"object bad currency", `{"amount":"1","currency":"ZZ"}`, nil, core.ErrInvalidCurrency},
		{"bool passes through", `true`, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := moneyValue(json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("moneyValue() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("moneyValue() error = %v", err)
			}
			switch want := tt.want.(type) {
			case decimal.Decimal:
				if d, ok := got.(decimal.Decimal); !ok || !d.Equal(want) {
					t.Fatalf("moneyValue() = %#v, want %s", got, want)
				}
			case core.Money:
				m, ok := got.(core.Money)
				if !ok || !m.Amount.Equal(want.Amount) || m.Currency != want.Currency {
					t.Fatalf("moneyValue() = %#v, want %v", got, want)
				}
			default:
				if got != tt.want {
					t.Fatalf("moneyValue() = %#v, want %#v", got, tt.want)
				}
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct{ Name string }
	tests := []struct {
		body    string
		wantErr bool
	}{
		{`{"name":"ok"}`, false},
		{``, true},
		{`{"name":`, true},
		{`{"name":"a"} {"name":"b"}`, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		if (err != nil) != tt.wantErr {
			t.Fatalf("decodeJSON(%q) error = %v, wantErr %v", tt.body, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errBadRequest) {
			t.Fatalf("decodeJSON(%q) error = %v, want errBadRequest", tt.body, err)
		}
	}
}

func TestPathID(t *testing.T) {
	for raw, ok := range map[string]bool{"1": true, "42": true, "0": false, "-3": false, "x": false} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.SetPathValue("id", raw)
		_, err := pathID(r, "id")
		if (err == nil) != ok {
			t.Fatalf("pathID(%q) error = %v", raw, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Caf\x00e\tbar \n"); got != "Cafe\tbar" {
		t.Fatalf("sanitizeInput() = %q", got)
	}
}
