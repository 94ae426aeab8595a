package core

import (
	"fmt"
	"slices"
)

// Quotation is one candidate price offer for an expense.
type Quotation struct {
	ID        int64
	ExpenseID int64
	FundID    int64
	PartnerID int64
	DueDate   Date
	IsWinner  bool
	CostedItem
}

// Expense is a planned cost toward a fund. When it has quotations its price
// is the price of the winning one.
type Expense struct {
	ID         int64
	FundID     int64
	PartnerID  int64
	DueDate    Date
	Quotations []Quotation
	CostedItem
}

var (
	_ Costed = Quotation{}
	_ Costed = Expense{}
)

func (q Quotation) Value() Money  { return q.UnitPrice }
func (q Quotation) Amount() Money { return q.Total }

// SetValue assigns the unit price of the quotation.
func (q *Quotation) SetValue(v any) error {
	return q.SetUnitPrice(v)
}

func (q Quotation) String() string {
	return q.Name
}

// WinnerOf picks the effective quotation: the first flagged winner in ID
// order, else the one with the lowest total (lowest ID on ties). It reports
// false for an empty set.
func WinnerOf(quotations []Quotation) (Quotation, bool) {
	if len(quotations) == 0 {
		return Quotation{}, false
	}
	ordered := slices.Clone(quotations)
	slices.SortStableFunc(ordered, func(a, b Quotation) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	for _, q := range ordered {
		if q.IsWinner {
			return q, true
		}
	}

	best := ordered[0]
	for _, q := range ordered[1:] {
		if q.Total.Cmp(best.Total) < 0 {
			best = q
		}
	}
	return best, true
}

func (e Expense) HasQuotation() bool {
	return len(e.Quotations) > 0
}

// Winner returns the effective quotation, or false when the expense is
// priced by its own fields.
func (e Expense) Winner() (Quotation, bool) {
	return WinnerOf(e.Quotations)
}

// Value is the effective unit price.
func (e Expense) Value() Money {
	if w, ok := e.Winner(); ok {
		return w.UnitPrice
	}
	return e.UnitPrice
}

// Amount is the effective total.
func (e Expense) Amount() Money {
	if w, ok := e.Winner(); ok {
		return w.Total
	}
	return e.Total
}

// SetValue assigns the expense's own unit price. It returns ErrUnsupported
// when the price comes from quotations.
func (e *Expense) SetValue(v any) error {
	if e.HasQuotation() {
		return ErrUnsupported
	}
	return e.SetUnitPrice(v)
}

// SetWinner flags the quotation with the given ID as winner and clears the
// flag on its siblings. The returned quotation is the one to persist.
func (e *Expense) SetWinner(quotationID int64) (Quotation, error) {
	if !e.HasQuotation() {
		return Quotation{}, ErrUnsupported
	}
	idx := slices.IndexFunc(e.Quotations, func(q Quotation) bool { return q.ID == quotationID })
	if idx < 0 {
		return Quotation{}, fmt.Errorf("%w: quotation %d, expense %d", ErrNotOwned, quotationID, e.ID)
	}
	for i := range e.Quotations {
		e.Quotations[i].IsWinner = i == idx
	}
	return e.Quotations[idx], nil
}

func (e Expense) String() string {
	return e.Name
}
