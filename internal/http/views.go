package http

import (
	"time"

	"fundcountdown/internal/core"
)

// JSON shapes of the API resources.
type (
	partnerView struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}

	quotationView struct {
		ID              int64      `json:"id"`
		ExpenseID       int64      `json:"expense_id"`
		PartnerID       int64      `json:"partner_id,omitempty"`
		Name            string     `json:"name"`
		Description     string     `json:"description,omitempty"`
		PaymentRequired bool       `json:"payment_required"`
		UnitPrice       core.Money `json:"unit_price"`
		Occurrence      int        `json:"occurrence"`
		Total           core.Money `json:"total"`
		DueDate         core.Date  `json:"due_date"`
		IsWinner        bool       `json:"is_winner"`
	}

	expenseView struct {
		ID              int64           `json:"id"`
		FundID          int64           `json:"fund_id"`
		PartnerID       int64           `json:"partner_id,omitempty"`
		Name            string          `json:"name"`
		Description     string          `json:"description,omitempty"`
		PaymentRequired bool            `json:"payment_required"`
		UnitPrice       core.Money      `json:"unit_price"`
		Occurrence      int             `json:"occurrence"`
		Total           core.Money      `json:"total"`
		DueDate         core.Date       `json:"due_date"`
		Value           core.Money      `json:"value"`
		Amount          core.Money      `json:"amount"`
		WinnerID        int64           `json:"winner_id,omitempty"`
		Quotations      []quotationView `json:"quotations"`
	}

	cashInputView struct {
		ID          int64      `json:"id"`
		AccountID   int64      `json:"account_id"`
		Description string     `json:"description,omitempty"`
		Value       core.Money `json:"value"`
		EntryDate   time.Time  `json:"entry_date"`
		Categories  []int64    `json:"categories"`
	}

	accountView struct {
		ID          int64           `json:"id"`
		FundID      int64           `json:"fund_id"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Currency    string          `json:"currency"`
		Balance     *core.Money     `json:"balance,omitempty"`
		Inputs      []cashInputView `json:"inputs"`
	}

	categoryView struct {
		ID          int64       `json:"id"`
		Name        string      `json:"name"`
		Description string      `json:"description,omitempty"`
		Amount      *core.Money `json:"amount,omitempty"`
	}

	fundView struct {
		ID           int64         `json:"id"`
		Name         string        `json:"name"`
		Description  string        `json:"description,omitempty"`
		ExpectedDate core.Date     `json:"expected_date"`
		Currency     string        `json:"currency"`
		Partners     []partnerView `json:"partners"`
		Expenses     []expenseView `json:"expenses"`
		Accounts     []accountView `json:"accounts"`
	}
)

// mapSlice converts every element and never returns nil, so empty lists
// encode as [].
func mapSlice[T, V any](in []T, fn func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

func newPartnerView(p core.Partner) partnerView {
	return partnerView{ID: p.ID, Username: p.Username}
}

func newQuotationView(q core.Quotation) quotationView {
	return quotationView{
		ID:              q.ID,
		ExpenseID:       q.ExpenseID,
		PartnerID:       q.PartnerID,
		Name:            q.Name,
		Description:     q.Description,
		PaymentRequired: q.PaymentRequired,
		UnitPrice:       q.UnitPrice,
		Occurrence:      q.Occurrence,
		Total:           q.Total,
		DueDate:         q.DueDate,
		IsWinner:        q.IsWinner,
	}
}

func newExpenseView(e core.Expense) expenseView {
	v := expenseView{
		ID:              e.ID,
		FundID:          e.FundID,
		PartnerID:       e.PartnerID,
		Name:            e.Name,
		Description:     e.Description,
		PaymentRequired: e.PaymentRequired,
		UnitPrice:       e.UnitPrice,
		Occurrence:      e.Occurrence,
		Total:           e.Total,
		DueDate:         e.DueDate,
		Value:           e.Value(),
		Amount:          e.Amount(),
		Quotations:      mapSlice(e.Quotations, newQuotationView),
	}
	if w, ok := e.Winner(); ok {
		v.WinnerID = w.ID
	}
	return v
}

func newCashInputView(ci core.CashInput) cashInputView {
	categories := ci.Categories
	if categories == nil {
		categories = []int64{}
	}
	return cashInputView{
		ID:          ci.ID,
		AccountID:   ci.AccountID,
		Description: ci.Description,
		Value:       ci.Value,
		EntryDate:   ci.EntryDate,
		Categories:  categories,
	}
}

func newAccountView(a core.Account) accountView {
	return accountView{
		ID:          a.ID,
		FundID:      a.FundID,
		Name:        a.Name,
		Description: a.Description,
		Currency:    a.Currency.String(),
		Inputs:      mapSlice(a.Inputs, newCashInputView),
	}
}

func newCategoryView(c core.InputCategory) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Description: c.Description}
}

func newFundView(f core.Fund) fundView {
	return fundView{
		ID:           f.ID,
		Name:         f.Name,
		Description:  f.Description,
		ExpectedDate: f.ExpectedDate,
		Currency:     f.Currency.String(),
		Partners:     mapSlice(f.Partners, newPartnerView),
		Expenses:     mapSlice(f.Expenses, newExpenseView),
		Accounts:     mapSlice(f.Accounts, newAccountView),
	}
}
