package core

import (
	"golang.org/x/text/currency"
)

// Fund is a savings goal. Expenses make up its cost and accounts its
// progress.
type Fund struct {
	ID           int64
	Name         string
	Description  string
	ExpectedDate Date
	Currency     currency.Unit
	Partners     []Partner
	Expenses     []Expense
	Accounts     []Account
}

// FullCost sums the effective amounts of the fund's expenses.
func (f Fund) FullCost() (Money, error) {
	return Sum(Zero(f.Currency), f.Expenses, Expense.Amount)
}

// Amount sums the balances of the fund's accounts.
func (f Fund) Amount() (Money, error) {
	return SumFunc(Zero(f.Currency), f.Accounts, Account.Balance)
}

// HasPartner reports whether partnerID shares this fund.
func (f Fund) HasPartner(partnerID int64) bool {
	for _, p := range f.Partners {
		if p.ID == partnerID {
			return true
		}
	}
	return false
}

func (f Fund) Validate() error {
	if err := validateName(f.Name, maxFundNameLength); err != nil {
		return err
	}
	if err := validateDescription(f.Description); err != nil {
		return err
	}
	if f.Currency == (currency.Unit{}) {
		return ErrInvalidCurrency
	}
	return nil
}

func (f Fund) String() string {
	return f.Name
}
