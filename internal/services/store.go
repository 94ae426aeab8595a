package services

import (
	"context"

	"fundcountdown/internal/core"
)

// Store is the persistence contract of the fund service. Implementations
// assign IDs on insert, return core.ErrNotFound for missing records, and run
// the save hooks: SaveExpense and SaveQuotation normalize the costed item,
// and saving a winning quotation clears the flag on the other quotations of
// the same expense atomically.
type Store interface {
	CreateFund(ctx context.Context, f *core.Fund) error
	UpdateFund(ctx context.Context, f core.Fund) error
	GetFund(ctx context.Context, id int64) (core.Fund, error)
	ListFunds(ctx context.Context) ([]core.Fund, error)

	// AddPartner links the partner with the given username to the fund,
	// creating the partner when it does not exist yet.
	AddPartner(ctx context.Context, fundID int64, p *core.Partner) error
	PartnersOf(ctx context.Context, fundID int64) ([]core.Partner, error)

	SaveExpense(ctx context.Context, e *core.Expense) error
	// GetExpense and ExpensesOf return expenses with their quotations
	// ordered by ID.
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ExpensesOf(ctx context.Context, fundID int64) ([]core.Expense, error)

	SaveQuotation(ctx context.Context, q *core.Quotation) error
	GetQuotation(ctx context.Context, id int64) (core.Quotation, error)
	QuotationsOf(ctx context.Context, expenseID int64) ([]core.Quotation, error)

	SaveAccount(ctx context.Context, a *core.Account) error
	// GetAccount and AccountsOf return accounts with their inputs.
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	AccountsOf(ctx context.Context, fundID int64) ([]core.Account, error)

	SaveCashInput(ctx context.Context, in *core.CashInput) error
	InputsOf(ctx context.Context, accountID int64) ([]core.CashInput, error)

	SaveCategory(ctx context.Context, c *core.InputCategory) error
	GetCategory(ctx context.Context, id int64) (core.InputCategory, error)
	InputsInCategory(ctx context.Context, categoryID int64) ([]core.CashInput, error)

	Close() error
}
