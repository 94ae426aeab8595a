package core

import (
	"errors"
	"testing"

	"golang.org/x/text/currency"
)

func airfare() Expense {
	lower := Quotation{ID: 1, ExpenseID: 10, CostedItem: NewCostedItem("Lower Airlines", "Lower price", MoneyOf(1400, currency.USD), 2)}
	larger := Quotation{ID: 2, ExpenseID: 10, CostedItem: NewCostedItem("Larger Airlines", "Larger price", MoneyOf(2900.50, currency.USD), 1)}
	larger.PaymentRequired = false
	return Expense{
		ID:         10,
		CostedItem: NewCostedItem("Airfare", "Airfare for travel to place", Zero(currency.USD), 1),
		Quotations: []Quotation{lower, larger},
	}
}

func TestCostedItemNormalize(t *testing.T) {
	tests := []struct {
		name       string
		occurrence int
		price      float64
		wantOcc    int
		wantTotal  float64
	}{
		{"zero occurrence clamps", 0, 180, 1, 180},
		{"negative occurrence clamps", -3, 10, 1, 10},
		{"regular", 6, 150, 6, 900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CostedItem{Name: "x", UnitPrice: MoneyOf(tt.price, currency.USD), Occurrence: tt.occurrence}
			c.Normalize()
			if c.Occurrence != tt.wantOcc {
				t.Errorf("occurrence = %d, want %d", c.Occurrence, tt.wantOcc)
			}
			if !c.Total.Equal(MoneyOf(tt.wantTotal, currency.USD)) {
				t.Errorf("total = %s, want %v", c.Total, tt.wantTotal)
			}
		})
	}
}

func TestCostedItemSetUnitPrice(t *testing.T) {
	c := NewCostedItem("Home Rental", "Rent price for home", MoneyOf(150, currency.USD), 6)
	if err := c.SetUnitPrice(180); err != nil {
		t.Fatalf("SetUnitPrice: %v", err)
	}
	if !c.UnitPrice.Equal(MoneyOf(180, currency.USD)) {
		t.Fatalf("bare number should keep USD, got %s", c.UnitPrice)
	}

	err := c.SetUnitPrice("a lot")
	var invalid *InvalidMoneyError
	if !errors.As(err, &invalid) || invalid.Value != "a lot" {
		t.Fatalf("expected InvalidMoneyError carrying the value, got %v", err)
	}
	if err := c.SetUnitPrice(-1); !errors.Is(err, ErrInvalidMoney) {
		t.Fatalf("negative price should be rejected, got %v", err)
	}
	if err := c.SetUnitPrice(struct{}{}); !errors.Is(err, ErrCoercion) {
		t.Fatalf("expected generic coercion error, got %v", err)
	}
	if !c.UnitPrice.Equal(MoneyOf(180, currency.USD)) {
		t.Fatalf("failed assignments must not change the price, got %s", c.UnitPrice)
	}
}

func TestExpenseWithoutQuotations(t *testing.T) {
	home := Expense{CostedItem: NewCostedItem("Home Rental", "Rent price for home", MoneyOf(150, currency.USD), 6)}
	if home.HasQuotation() {
		t.Fatal("expense without quotations reports HasQuotation")
	}
	if !home.Value().Equal(MoneyOf(150, currency.USD)) {
		t.Fatalf("value = %s", home.Value())
	}
	if !home.Amount().Equal(MoneyOf(900, currency.USD)) {
		t.Fatalf("amount = %s", home.Amount())
	}
	if !home.PaymentRequired {
		t.Fatal("payment should be required by default")
	}

	home.Occurrence = 0
	if err := home.SetValue(180); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	home.Normalize()
	if home.Occurrence != 1 {
		t.Fatalf("occurrence = %d, want 1", home.Occurrence)
	}
	if !home.Amount().Equal(MoneyOf(180, currency.USD)) {
		t.Fatalf("amount = %s, want USD 180.00", home.Amount())
	}

	if _, err := home.SetWinner(1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("SetWinner without quotations should be unsupported, got %v", err)
	}
}

func TestExpenseWinnerIsCheapest(t *testing.T) {
	e := airfare()
	if !e.HasQuotation() {
		t.Fatal("expected HasQuotation")
	}
	w, ok := e.Winner()
	if !ok || w.ID != 1 {
		t.Fatalf("winner = %+v, want quotation 1", w)
	}
	if !e.Value().Equal(MoneyOf(1400, currency.USD)) {
		t.Fatalf("value = %s", e.Value())
	}
	if !e.Amount().Equal(MoneyOf(2800, currency.USD)) {
		t.Fatalf("amount = %s", e.Amount())
	}
	if err := e.SetValue(10); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("SetValue with quotations should be unsupported, got %v", err)
	}
}

func TestExpenseSetWinner(t *testing.T) {
	e := airfare()
	q, err := e.SetWinner(2)
	if err != nil {
		t.Fatalf("SetWinner: %v", err)
	}
	if !q.IsWinner || q.ID != 2 {
		t.Fatalf("returned quotation = %+v", q)
	}
	w, _ := e.Winner()
	if w.ID != 2 {
		t.Fatalf("winner = %d, want 2", w.ID)
	}
	if !e.Amount().Equal(MoneyOf(2900.50, currency.USD)) {
		t.Fatalf("amount = %s, want USD 2900.50", e.Amount())
	}

	if _, err := e.SetWinner(1); err != nil {
		t.Fatalf("SetWinner back: %v", err)
	}
	winners := 0
	for _, q := range e.Quotations {
		if q.IsWinner {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	if _, err := e.SetWinner(99); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}
}

func TestWinnerOf(t *testing.T) {
	q := func(id int64, total float64, winner bool) Quotation {
		return Quotation{ID: id, IsWinner: winner, CostedItem: NewCostedItem("q", "", MoneyOf(total, currency.USD), 1)}
	}
	tests := []struct {
		name   string
		in     []Quotation
		wantID int64
		wantOK bool
	}{
		{"empty", nil, 0, false},
		{"single", []Quotation{q(4, 10, false)}, 4, true},
		{"cheapest wins", []Quotation{q(1, 30, false), q(2, 10, false), q(3, 20, false)}, 2, true},
		{"tie goes to lowest id", []Quotation{q(7, 10, false), q(3, 10, false)}, 3, true},
		{"flag beats price", []Quotation{q(1, 10, false), q(2, 50, true)}, 2, true},
		{"first flagged by id", []Quotation{q(5, 10, true), q(2, 50, true)}, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WinnerOf(tt.in)
			if ok != tt.wantOK || got.ID != tt.wantID {
				t.Errorf("WinnerOf() = (%d, %v), want (%d, %v)", got.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestQuotationRoundTrip(t *testing.T) {
	q := Quotation{CostedItem: NewCostedItem("Super Market", "Yes! We have beer.", MoneyOf(100.49, currency.USD), 1)}
	if !q.Value().Equal(MoneyOf(100.49, currency.USD)) || !q.Amount().Equal(MoneyOf(100.49, currency.USD)) {
		t.Fatalf("value=%s amount=%s", q.Value(), q.Amount())
	}
	if q.IsWinner {
		t.Fatal("new quotation should not be a winner")
	}
	if q.String() != "Super Market" {
		t.Fatalf("String() = %q", q.String())
	}
}
