package core

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/currency"
)

type (
	// Account is a money-holding bucket contributing to a fund.
	Account struct {
		ID          int64
		FundID      int64
		Name        string
		Description string
		Currency    currency.Unit
		Inputs      []CashInput
	}

	// CashInput is one inflow of money into an account.
	CashInput struct {
		ID          int64
		AccountID   int64
		Description string
		Value       Money
		EntryDate   time.Time
		Categories  []int64
	}

	// InputCategory groups cash inputs for sub-totals.
	InputCategory struct {
		ID          int64
		Name        string
		Description string
	}
)

// Balance sums the account inputs. An account without inputs has a zero
// balance in its own currency.
func (a Account) Balance() (Money, error) {
	return Sum(Zero(a.Currency), a.Inputs, func(in CashInput) Money { return in.Value })
}

func (a Account) Validate() error {
	if err := validateName(a.Name, maxNameLength); err != nil {
		return err
	}
	return validateDescription(a.Description)
}

// InCategory reports whether the input is tagged with categoryID.
func (in CashInput) InCategory(categoryID int64) bool {
	return slices.Contains(in.Categories, categoryID)
}

func (in CashInput) Validate() error {
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if in.Value.Currency == (currency.Unit{}) {
		return ErrInvalidCurrency
	}
	if !fits(in.Value.Amount) {
		return &InvalidMoneyError{Value: in.Value.Amount.String()}
	}
	return nil
}

// Amount sums the values of the inputs tagged with this category. Inputs
// without the tag are ignored; no tagged input gives zero in cur.
func (c InputCategory) Amount(inputs []CashInput, cur currency.Unit) (Money, error) {
	tagged := slices.DeleteFunc(slices.Clone(inputs), func(in CashInput) bool {
		return !in.InCategory(c.ID)
	})
	return Sum(Zero(cur), tagged, func(in CashInput) Money { return in.Value })
}

func (c InputCategory) Validate() error {
	if err := validateName(c.Name, maxNameLength); err != nil {
		return err
	}
	return validateDescription(c.Description)
}

func (c InputCategory) String() string {
	return strings.TrimSpace(c.Name)
}
