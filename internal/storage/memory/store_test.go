package memory

import (
	"context"
	"errors"
	"testing"

	"fundcountdown/internal/core"

	"golang.org/x/text/currency"
)

func TestStoreWinnerExclusive(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := core.Fund{Name: "Wedding", Currency: currency.USD}
	if err := s.CreateFund(ctx, &f); err != nil {
		t.Fatalf("create fund: %v", err)
	}
	venue := core.Expense{FundID: f.ID, CostedItem: core.NewCostedItem("Venue", "", core.Zero(currency.USD), 0)}
	cake := core.Expense{FundID: f.ID, CostedItem: core.NewCostedItem("Cake", "", core.Zero(currency.USD), 1)}
	for _, e := range []*core.Expense{&venue, &cake} {
		if err := s.SaveExpense(ctx, e); err != nil {
			t.Fatalf("save expense: %v", err)
		}
	}
	if venue.Occurrence != 1 {
		t.Fatalf("occurrence = %d, want 1", venue.Occurrence)
	}

	quote := func(expenseID int64, price float64) *core.Quotation {
		q := &core.Quotation{ExpenseID: expenseID, IsWinner: true,
			CostedItem: core.NewCostedItem("q", "", core.MoneyOf(price, currency.USD), 2)}
		if err := s.SaveQuotation(ctx, q); err != nil {
			t.Fatalf("save quotation: %v", err)
		}
		return q
	}
	first := quote(venue.ID, 5000)
	other := quote(cake.ID, 200)
	second := quote(venue.ID, 4000)

	got, err := s.GetExpense(ctx, venue.ID)
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	w, ok := got.Winner()
	if !ok || w.ID != second.ID {
		t.Fatalf("winner = %+v, want quotation %d", w, second.ID)
	}
	if q, _ := s.GetQuotation(ctx, first.ID); q.IsWinner {
		t.Fatal("first quotation still flagged")
	}
	if q, _ := s.GetQuotation(ctx, other.ID); !q.IsWinner {
		t.Fatal("winner of another expense was cleared")
	}
	if got.Amount().String() != "USD 8000.00" {
		t.Fatalf("amount = %s", got.Amount())
	}
}

func TestStoreCashFlowAndCategories(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := core.Fund{Name: "Car", Currency: currency.BRL}
	_ = s.CreateFund(ctx, &f)
	acc := core.Account{FundID: f.ID, Name: "Main", Currency: currency.BRL}
	if err := s.SaveAccount(ctx, &acc); err != nil {
		t.Fatalf("save account: %v", err)
	}
	cat := core.InputCategory{Name: "Salary"}
	_ = s.SaveCategory(ctx, &cat)

	in := core.CashInput{AccountID: acc.ID, Value: core.MoneyOf(330, currency.BRL), Categories: []int64{cat.ID}}
	if err := s.SaveCashInput(ctx, &in); err != nil {
		t.Fatalf("save input: %v", err)
	}
	if in.EntryDate.IsZero() {
		t.Fatal("entry date not defaulted")
	}
	bad := core.CashInput{AccountID: acc.ID, Value: core.MoneyOf(1, currency.BRL), Categories: []int64{999}}
	if err := s.SaveCashInput(ctx, &bad); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown category, got %v", err)
	}

	tagged, _ := s.InputsInCategory(ctx, cat.ID)
	if len(tagged) != 1 {
		t.Fatalf("tagged inputs = %d, want 1", len(tagged))
	}
	tagged[0].Categories[0] = 0
	again, _ := s.InputsInCategory(ctx, cat.ID)
	if len(again) != 1 {
		t.Fatal("caller mutation leaked into the store")
	}

	accounts, _ := s.AccountsOf(ctx, f.ID)
	if len(accounts) != 1 || len(accounts[0].Inputs) != 1 {
		t.Fatalf("accounts = %+v", accounts)
	}
}

func TestStorePartnersAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.GetFund(ctx, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.AddPartner(ctx, 1, &core.Partner{Username: "bob"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	f := core.Fund{Name: "House", Currency: currency.USD}
	_ = s.CreateFund(ctx, &f)
	a := core.Partner{Username: "bob"}
	b := core.Partner{Username: " bob"}
	_ = s.AddPartner(ctx, f.ID, &a)
	_ = s.AddPartner(ctx, f.ID, &b)
	if a.ID != b.ID {
		t.Fatalf("partner not reused: %d vs %d", a.ID, b.ID)
	}
	partners, _ := s.PartnersOf(ctx, f.ID)
	if len(partners) != 1 {
		t.Fatalf("partners = %v", partners)
	}
}
