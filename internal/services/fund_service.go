package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"fundcountdown/internal/amqp"
	"fundcountdown/internal/cache"
	"fundcountdown/internal/core"
	"fundcountdown/internal/log"

	"golang.org/x/text/currency"
)

// Publisher announces that a fund changed. *amqp.Client implements it.
type Publisher interface {
	PublishFundChanged(ctx context.Context, fundID int64, reason string) error
}

type (
	FundInput struct {
		Name         string    `json:"name"`
		Description  string    `json:"description"`
		ExpectedDate core.Date `json:"expected_date"`
		Currency     string    `json:"currency"`
	}

	// CostedInput carries the editable fields of an expense or a quotation.
	// UnitPrice accepts anything core.CoerceMoney does. On update, zero or
	// nil fields leave the stored value unchanged.
	CostedInput struct {
		Name            string    `json:"name"`
		Description     string    `json:"description"`
		PaymentRequired *bool     `json:"payment_required"`
		UnitPrice       any       `json:"-"`
		Occurrence      int       `json:"occurrence"`
		DueDate         core.Date `json:"due_date"`
		PartnerID       int64     `json:"partner_id"`
		IsWinner        *bool     `json:"is_winner"`
	}

	AccountInput struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Currency    string `json:"currency"`
	}

	CashInputInput struct {
		Description string    `json:"description"`
		Value       any       `json:"-"`
		EntryDate   time.Time `json:"entry_date"`
		Categories  []int64   `json:"categories"`
	}

	CategoryInput struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
)

// FundService runs the fund use cases on top of a Store. Reports are cached
// per fund and every mutation drops the cached report and publishes a
// FundChanged message.
type FundService struct {
	store     Store
	reports   cache.Cache[int64, core.FundReport]
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time

	expenseCurrency currency.Unit
	inputCurrency   currency.Unit
}

type Option func(*FundService)

func WithReportCache(c cache.Cache[int64, core.FundReport]) Option {
	return func(s *FundService) { s.reports = c }
}

// WithPublisher sets the change publisher. A nil publisher disables
// publishing.
func WithPublisher(p Publisher) Option {
	return func(s *FundService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *FundService) { s.logger = l.WithComponent(log.ComponentFund) }
}

func WithClock(now func() time.Time) Option {
	return func(s *FundService) { s.now = now }
}

// WithDefaultCurrencies sets the currencies used when a request names none:
// expense for new funds, input for category amounts.
func WithDefaultCurrencies(expense, input currency.Unit) Option {
	return func(s *FundService) {
		s.expenseCurrency = expense
		s.inputCurrency = input
	}
}

func NewFundService(store Store, opts ...Option) *FundService {
	s := &FundService{
		store:           store,
		logger:          log.Discard(),
		now:             time.Now,
		expenseCurrency: currency.USD,
		inputCurrency:   currency.BRL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FundService) CreateFund(ctx context.Context, in FundInput) (core.Fund, error) {
	cur, err := s.currencyOr(in.Currency, s.expenseCurrency)
	if err != nil {
		return core.Fund{}, fmt.Errorf("create fund: %w", err)
	}
	f := core.Fund{Name: in.Name, Description: in.Description, ExpectedDate: in.ExpectedDate, Currency: cur}
	if err := f.Validate(); err != nil {
		return core.Fund{}, fmt.Errorf("create fund: %w", err)
	}
	if err := s.store.CreateFund(ctx, &f); err != nil {
		return core.Fund{}, fmt.Errorf("create fund: %w", err)
	}
	s.changed(ctx, f.ID, amqp.ReasonFundCreated)
	return f, nil
}

// UpdateFund replaces the fund's own fields. The currency cannot change
// once expenses or accounts exist.
func (s *FundService) UpdateFund(ctx context.Context, id int64, in FundInput) (core.Fund, error) {
	f, err := s.GetFund(ctx, id)
	if err != nil {
		return core.Fund{}, err
	}
	cur, err := s.currencyOr(in.Currency, f.Currency)
	if err != nil {
		return core.Fund{}, fmt.Errorf("update fund: %w", err)
	}
	if cur != f.Currency && (len(f.Expenses) > 0 || len(f.Accounts) > 0) {
		return core.Fund{}, fmt.Errorf("update fund %d: change currency: %w", id, core.ErrUnsupported)
	}
	f.Name, f.Description, f.ExpectedDate, f.Currency = in.Name, in.Description, in.ExpectedDate, cur
	if err := f.Validate(); err != nil {
		return core.Fund{}, fmt.Errorf("update fund: %w", err)
	}
	if err := s.store.UpdateFund(ctx, f); err != nil {
		return core.Fund{}, fmt.Errorf("update fund: %w", err)
	}
	s.changed(ctx, f.ID, amqp.ReasonFundUpdated)
	return f, nil
}

// GetFund loads the fund with its partners, expenses and accounts.
func (s *FundService) GetFund(ctx context.Context, id int64) (core.Fund, error) {
	f, err := s.store.GetFund(ctx, id)
	if err != nil {
		return core.Fund{}, err
	}
	if f.Partners, err = s.store.PartnersOf(ctx, id); err != nil {
		return core.Fund{}, err
	}
	if f.Expenses, err = s.store.ExpensesOf(ctx, id); err != nil {
		return core.Fund{}, err
	}
	if f.Accounts, err = s.store.AccountsOf(ctx, id); err != nil {
		return core.Fund{}, err
	}
	return f, nil
}

// ListFunds returns the funds without their children.
func (s *FundService) ListFunds(ctx context.Context) ([]core.Fund, error) {
	funds, err := s.store.ListFunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	return funds, nil
}

func (s *FundService) AddPartner(ctx context.Context, fundID int64, username string) (core.Partner, error) {
	p := core.Partner{Username: username}
	if err := p.Validate(); err != nil {
		return core.Partner{}, fmt.Errorf("add partner: %w", err)
	}
	if _, err := s.store.GetFund(ctx, fundID); err != nil {
		return core.Partner{}, err
	}
	if err := s.store.AddPartner(ctx, fundID, &p); err != nil {
		return core.Partner{}, fmt.Errorf("add partner: %w", err)
	}
	s.changed(ctx, fundID, amqp.ReasonPartnerAdded)
	return p, nil
}

func (s *FundService) CreateExpense(ctx context.Context, fundID int64, in CostedInput) (core.Expense, error) {
	f, err := s.store.GetFund(ctx, fundID)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.checkPartner(ctx, fundID, in.PartnerID); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	e := core.Expense{FundID: fundID}
	e.UnitPrice = core.Zero(f.Currency)
	e.PaymentRequired = true
	if err := applyCosted(&e.CostedItem, &e.DueDate, &e.PartnerID, in); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if err := checkCurrency(e.UnitPrice, f.Currency); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if err := s.store.SaveExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.FieldFundID, fundID,
		log.FieldExpenseID, e.ID,
		log.FieldAmount, e.Total.String())
	s.changed(ctx, fundID, amqp.ReasonExpenseSaved)
	return e, nil
}

// UpdateExpense edits the expense's own fields. Changing the price of an
// expense priced by quotations fails with core.ErrUnsupported.
func (s *FundService) UpdateExpense(ctx context.Context, id int64, in CostedInput) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.checkPartner(ctx, e.FundID, in.PartnerID); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	if in.UnitPrice != nil && e.HasQuotation() {
		return core.Expense{}, fmt.Errorf("update expense %d: set unit price: %w", id, core.ErrUnsupported)
	}
	if err := applyCosted(&e.CostedItem, &e.DueDate, &e.PartnerID, in); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	if err := s.checkFundCurrency(ctx, e.FundID, e.UnitPrice); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	if err := s.store.SaveExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	s.changed(ctx, e.FundID, amqp.ReasonExpenseSaved)
	return e, nil
}

func (s *FundService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

// SetExpenseUnitPrice coerces v into the expense's own unit price.
func (s *FundService) SetExpenseUnitPrice(ctx context.Context, id int64, v any) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := e.SetValue(v); err != nil {
		return core.Expense{}, fmt.Errorf("set unit price of expense %d: %w", id, err)
	}
	if err := s.checkFundCurrency(ctx, e.FundID, e.UnitPrice); err != nil {
		return core.Expense{}, fmt.Errorf("set unit price of expense %d: %w", id, err)
	}
	if err := s.store.SaveExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("set unit price of expense %d: %w", id, err)
	}
	s.changed(ctx, e.FundID, amqp.ReasonExpenseSaved)
	return e, nil
}

func (s *FundService) CreateQuotation(ctx context.Context, expenseID int64, in CostedInput) (core.Quotation, error) {
	e, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Quotation{}, err
	}
	if err := s.checkPartner(ctx, e.FundID, in.PartnerID); err != nil {
		return core.Quotation{}, fmt.Errorf("create quotation: %w", err)
	}

	q := core.Quotation{ExpenseID: expenseID, FundID: e.FundID, IsWinner: in.IsWinner != nil && *in.IsWinner}
	q.UnitPrice = core.Zero(e.UnitPrice.Currency)
	q.PaymentRequired = true
	if err := applyCosted(&q.CostedItem, &q.DueDate, &q.PartnerID, in); err != nil {
		return core.Quotation{}, fmt.Errorf("create quotation: %w", err)
	}
	if err := checkCurrency(q.UnitPrice, e.UnitPrice.Currency); err != nil {
		return core.Quotation{}, fmt.Errorf("create quotation: %w", err)
	}
	if err := q.Validate(); err != nil {
		return core.Quotation{}, fmt.Errorf("create quotation: %w", err)
	}
	if err := s.store.SaveQuotation(ctx, &q); err != nil {
		return core.Quotation{}, fmt.Errorf("create quotation: %w", err)
	}

	s.logger.InfoContext(ctx, "Quotation created",
		log.FieldExpenseID, expenseID,
		log.FieldQuotationID, q.ID,
		log.FieldAmount, q.Total.String(),
		"winner", q.IsWinner)
	s.changed(ctx, e.FundID, amqp.ReasonQuotationSaved)
	return q, nil
}

// UpdateQuotation edits a quotation. A nil IsWinner keeps the flag; saving
// it as winner clears the flag on the other quotations of its expense.
func (s *FundService) UpdateQuotation(ctx context.Context, id int64, in CostedInput) (core.Quotation, error) {
	q, err := s.store.GetQuotation(ctx, id)
	if err != nil {
		return core.Quotation{}, err
	}
	e, err := s.store.GetExpense(ctx, q.ExpenseID)
	if err != nil {
		return core.Quotation{}, err
	}
	if err := s.checkPartner(ctx, e.FundID, in.PartnerID); err != nil {
		return core.Quotation{}, fmt.Errorf("update quotation %d: %w", id, err)
	}
	if err := applyCosted(&q.CostedItem, &q.DueDate, &q.PartnerID, in); err != nil {
		return core.Quotation{}, fmt.Errorf("update quotation %d: %w", id, err)
	}
	if err := checkCurrency(q.UnitPrice, e.UnitPrice.Currency); err != nil {
		return core.Quotation{}, fmt.Errorf("update quotation %d: %w", id, err)
	}
	if in.IsWinner != nil {
		q.IsWinner = *in.IsWinner
	}
	if err := q.Validate(); err != nil {
		return core.Quotation{}, fmt.Errorf("update quotation %d: %w", id, err)
	}
	if err := s.store.SaveQuotation(ctx, &q); err != nil {
		return core.Quotation{}, fmt.Errorf("update quotation %d: %w", id, err)
	}
	s.changed(ctx, e.FundID, amqp.ReasonQuotationSaved)
	return q, nil
}

// SetWinner makes quotationID the winner of the expense and returns the
// expense as stored afterwards.
func (s *FundService) SetWinner(ctx context.Context, expenseID, quotationID int64) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	w, err := e.SetWinner(quotationID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("set winner of expense %d: %w", expenseID, err)
	}
	if err := s.store.SaveQuotation(ctx, &w); err != nil {
		return core.Expense{}, fmt.Errorf("set winner of expense %d: %w", expenseID, err)
	}

	s.logger.InfoContext(ctx, "Winner set",
		log.FieldOperation, log.OpSetWinner,
		log.FieldExpenseID, expenseID,
		log.FieldQuotationID, quotationID)
	s.changed(ctx, e.FundID, amqp.ReasonWinnerChanged)
	return s.store.GetExpense(ctx, expenseID)
}

// CreateAccount opens an account in the fund's currency. Asking for any
// other currency fails with core.ErrCurrencyMismatch.
func (s *FundService) CreateAccount(ctx context.Context, fundID int64, in AccountInput) (core.Account, error) {
	f, err := s.store.GetFund(ctx, fundID)
	if err != nil {
		return core.Account{}, err
	}
	cur, err := s.currencyOr(in.Currency, f.Currency)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	if cur != f.Currency {
		return core.Account{}, fmt.Errorf("create account: %w: %s account in %s fund",
			core.ErrCurrencyMismatch, cur, f.Currency)
	}
	a := core.Account{FundID: fundID, Name: in.Name, Description: in.Description, Currency: cur}
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	if err := s.store.SaveAccount(ctx, &a); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.changed(ctx, fundID, amqp.ReasonAccountSaved)
	return a, nil
}

func (s *FundService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// AccountBalance sums the inputs of the account; an account without inputs
// has a zero balance in its currency.
func (s *FundService) AccountBalance(ctx context.Context, id int64) (core.Money, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Money{}, err
	}
	balance, err := a.Balance()
	if err != nil {
		return core.Money{}, fmt.Errorf("balance of account %d: %w", id, err)
	}
	return balance, nil
}

// RecordCashInput appends an input to the account. A bare number is taken
// in the account currency and every category must exist.
func (s *FundService) RecordCashInput(ctx context.Context, accountID int64, in CashInputInput) (core.CashInput, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.CashInput{}, err
	}
	value, err := core.CoerceMoney(in.Value, a.Currency)
	if err != nil {
		return core.CashInput{}, fmt.Errorf("record cash input: %w", err)
	}
	ci := core.CashInput{
		AccountID:   accountID,
		Description: in.Description,
		Value:       value,
		EntryDate:   in.EntryDate,
		Categories:  slices.Compact(slices.Sorted(slices.Values(in.Categories))),
	}
	if ci.EntryDate.IsZero() {
		ci.EntryDate = s.now()
	}
	if err := ci.Validate(); err != nil {
		return core.CashInput{}, fmt.Errorf("record cash input: %w", err)
	}
	for _, id := range ci.Categories {
		if _, err := s.store.GetCategory(ctx, id); err != nil {
			return core.CashInput{}, fmt.Errorf("record cash input: %w", err)
		}
	}
	if err := s.store.SaveCashInput(ctx, &ci); err != nil {
		return core.CashInput{}, fmt.Errorf("record cash input: %w", err)
	}

	s.logger.InfoContext(ctx, "Cash input recorded",
		log.FieldAccountID, accountID,
		log.FieldAmount, ci.Value.Amount.String(),
		log.FieldCurrency, ci.Value.Currency.String())
	s.changed(ctx, a.FundID, amqp.ReasonCashInputStored)
	return ci, nil
}

func (s *FundService) CreateCategory(ctx context.Context, in CategoryInput) (core.InputCategory, error) {
	c := core.InputCategory{Name: in.Name, Description: in.Description}
	if err := c.Validate(); err != nil {
		return core.InputCategory{}, fmt.Errorf("create category: %w", err)
	}
	if err := s.store.SaveCategory(ctx, &c); err != nil {
		return core.InputCategory{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *FundService) GetCategory(ctx context.Context, id int64) (core.InputCategory, error) {
	return s.store.GetCategory(ctx, id)
}

// CategoryAmount sums the inputs tagged with the category. code selects the
// currency of an empty result and defaults to the input currency.
func (s *FundService) CategoryAmount(ctx context.Context, id int64, code string) (core.Money, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Money{}, err
	}
	cur, err := s.currencyOr(code, s.inputCurrency)
	if err != nil {
		return core.Money{}, fmt.Errorf("amount of category %d: %w", id, err)
	}
	inputs, err := s.store.InputsInCategory(ctx, id)
	if err != nil {
		return core.Money{}, fmt.Errorf("amount of category %d: %w", id, err)
	}
	amount, err := c.Amount(inputs, cur)
	if err != nil {
		return core.Money{}, fmt.Errorf("amount of category %d: %w", id, err)
	}
	return amount, nil
}

// FundReport returns the countdown of the fund, from the cache when a
// report is still valid.
func (s *FundService) FundReport(ctx context.Context, id int64) (core.FundReport, error) {
	if s.reports != nil {
		if r, ok := s.reports.Get(id); ok {
			return r, nil
		}
	}
	f, err := s.GetFund(ctx, id)
	if err != nil {
		return core.FundReport{}, err
	}
	r, err := f.Report(s.now())
	if err != nil {
		return core.FundReport{}, fmt.Errorf("report of fund %d: %w", id, err)
	}
	if s.reports != nil {
		s.reports.Set(id, r)
	}
	return r, nil
}

// Reports computes the report of every fund. Funds whose report fails are
// logged and skipped.
func (s *FundService) Reports(ctx context.Context) ([]core.FundReport, error) {
	funds, err := s.ListFunds(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]core.FundReport, 0, len(funds))
	for _, f := range funds {
		r, err := s.FundReport(ctx, f.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping fund report", log.FieldFundID, f.ID, log.FieldError, err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Invalidate drops the cached report of a fund.
func (s *FundService) Invalidate(fundID int64) {
	if s.reports != nil {
		s.reports.Delete(fundID)
	}
}

func (s *FundService) changed(ctx context.Context, fundID int64, reason string) {
	s.Invalidate(fundID)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFundChanged(ctx, fundID, reason); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish fund change",
			log.FieldOperation, log.OpPublish,
			log.FieldFundID, fundID,
			log.FieldReason, reason,
			log.FieldError, err)
	}
}

func (s *FundService) checkPartner(ctx context.Context, fundID, partnerID int64) error {
	if partnerID == 0 {
		return nil
	}
	partners, err := s.store.PartnersOf(ctx, fundID)
	if err != nil {
		return err
	}
	f := core.Fund{Partners: partners}
	if !f.HasPartner(partnerID) {
		return fmt.Errorf("partner %d of fund %d: %w", partnerID, fundID, core.ErrUnknownPartner)
	}
	return nil
}

func (s *FundService) checkFundCurrency(ctx context.Context, fundID int64, m core.Money) error {
	f, err := s.store.GetFund(ctx, fundID)
	if err != nil {
		return err
	}
	return checkCurrency(m, f.Currency)
}

func checkCurrency(m core.Money, want currency.Unit) error {
	if m.Currency != want {
		return fmt.Errorf("%w: price in %s, want %s", core.ErrCurrencyMismatch, m.Currency, want)
	}
	return nil
}

func (s *FundService) currencyOr(code string, fallback currency.Unit) (currency.Unit, error) {
	if code == "" {
		return fallback, nil
	}
	return core.ParseCurrency(code)
}

// applyCosted copies the input onto a costed item. Zero values keep the
// current field.
func applyCosted(c *core.CostedItem, due *core.Date, partnerID *int64, in CostedInput) error {
	if in.Name != "" {
		c.Name = in.Name
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if in.PaymentRequired != nil {
		c.PaymentRequired = *in.PaymentRequired
	}
	if in.Occurrence != 0 {
		c.Occurrence = in.Occurrence
	}
	if in.UnitPrice != nil {
		if err := c.SetUnitPrice(in.UnitPrice); err != nil {
			return err
		}
	}
	if !in.DueDate.IsEmpty() {
		*due = in.DueDate
	}
	if in.PartnerID != 0 {
		*partnerID = in.PartnerID
	}
	return nil
}
