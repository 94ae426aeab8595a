// Package memory is an in-process store used in tests and when no database
// is configured. Data is lost on restart.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"fundcountdown/internal/core"
)

type Store struct {
	mu         sync.Mutex
	seq        int64
	funds      map[int64]core.Fund
	partners   map[int64]core.Partner
	links      map[int64][]int64 // fund -> partners
	expenses   map[int64]core.Expense
	quotations map[int64]core.Quotation
	accounts   map[int64]core.Account
	inputs     map[int64]core.CashInput
	categories map[int64]core.InputCategory
}

func New() *Store {
	return &Store{
		funds:      map[int64]core.Fund{},
		partners:   map[int64]core.Partner{},
		links:      map[int64][]int64{},
		expenses:   map[int64]core.Expense{},
		quotations: map[int64]core.Quotation{},
		accounts:   map[int64]core.Account{},
		inputs:     map[int64]core.CashInput{},
		categories: map[int64]core.InputCategory{},
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateFund(_ context.Context, f *core.Fund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.nextID()
	s.funds[f.ID] = bareFund(*f)
	return nil
}

func (s *Store) UpdateFund(_ context.Context, f core.Fund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.funds[f.ID]; !ok {
		return notFound("fund", f.ID)
	}
	s.funds[f.ID] = bareFund(f)
	return nil
}

func (s *Store) GetFund(_ context.Context, id int64) (core.Fund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.funds[id]
	if !ok {
		return core.Fund{}, notFound("fund", id)
	}
	return f, nil
}

func (s *Store) ListFunds(_ context.Context) ([]core.Fund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.funds, func(f core.Fund) int64 { return f.ID }), nil
}

func (s *Store) AddPartner(_ context.Context, fundID int64, p *core.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.funds[fundID]; !ok {
		return notFound("fund", fundID)
	}
	p.Username = strings.TrimSpace(p.Username)
	p.ID = 0
	for _, existing := range s.partners {
		if existing.Username == p.Username {
			p.ID = existing.ID
			break
		}
	}
	if p.ID == 0 {
		p.ID = s.nextID()
		s.partners[p.ID] = *p
	}
	if !slices.Contains(s.links[fundID], p.ID) {
		s.links[fundID] = append(s.links[fundID], p.ID)
	}
	return nil
}

func (s *Store) PartnersOf(_ context.Context, fundID int64) ([]core.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Partner
	for _, id := range s.links[fundID] {
		out = append(out, s.partners[id])
	}
	slices.SortFunc(out, func(a, b core.Partner) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) SaveExpense(_ context.Context, e *core.Expense) error {
	e.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.funds[e.FundID]; !ok {
		return notFound("fund", e.FundID)
	}
	if e.ID == 0 {
		e.ID = s.nextID()
	} else if _, ok := s.expenses[e.ID]; !ok {
		return notFound("expense", e.ID)
	}
	stored := *e
	stored.Quotations = nil
	s.expenses[e.ID] = stored
	return nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, notFound("expense", id)
	}
	e.Quotations = s.quotationsOf(id)
	return e, nil
}

func (s *Store) ExpensesOf(_ context.Context, fundID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range sortedValues(s.expenses, func(e core.Expense) int64 { return e.ID }) {
		if e.FundID != fundID {
			continue
		}
		e.Quotations = s.quotationsOf(e.ID)
		out = append(out, e)
	}
	return out, nil
}

// SaveQuotation clears the winner flag on the siblings of a winning
// quotation under the same lock as the write.
func (s *Store) SaveQuotation(_ context.Context, q *core.Quotation) error {
	q.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[q.ExpenseID]; !ok {
		return notFound("expense", q.ExpenseID)
	}
	if q.ID == 0 {
		q.ID = s.nextID()
	} else if _, ok := s.quotations[q.ID]; !ok {
		return notFound("quotation", q.ID)
	}
	if q.IsWinner {
		for id, other := range s.quotations {
			if id != q.ID && other.ExpenseID == q.ExpenseID && other.IsWinner {
				other.IsWinner = false
				s.quotations[id] = other
			}
		}
	}
	s.quotations[q.ID] = *q
	return nil
}

func (s *Store) GetQuotation(_ context.Context, id int64) (core.Quotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotations[id]
	if !ok {
		return core.Quotation{}, notFound("quotation", id)
	}
	return q, nil
}

func (s *Store) QuotationsOf(_ context.Context, expenseID int64) ([]core.Quotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotationsOf(expenseID), nil
}

func (s *Store) quotationsOf(expenseID int64) []core.Quotation {
	var out []core.Quotation
	for _, q := range sortedValues(s.quotations, func(q core.Quotation) int64 { return q.ID }) {
		if q.ExpenseID == expenseID {
			out = append(out, q)
		}
	}
	return out
}

func (s *Store) SaveAccount(_ context.Context, a *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.funds[a.FundID]; !ok {
		return notFound("fund", a.FundID)
	}
	if a.ID == 0 {
		a.ID = s.nextID()
	} else if _, ok := s.accounts[a.ID]; !ok {
		return notFound("account", a.ID)
	}
	stored := *a
	stored.Inputs = nil
	s.accounts[a.ID] = stored
	return nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, notFound("account", id)
	}
	a.Inputs = s.inputsWhere(func(in core.CashInput) bool { return in.AccountID == id })
	return a, nil
}

func (s *Store) AccountsOf(_ context.Context, fundID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range sortedValues(s.accounts, func(a core.Account) int64 { return a.ID }) {
		if a.FundID != fundID {
			continue
		}
		a.Inputs = s.inputsWhere(func(in core.CashInput) bool { return in.AccountID == a.ID })
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) SaveCashInput(_ context.Context, in *core.CashInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[in.AccountID]; !ok {
		return notFound("account", in.AccountID)
	}
	for _, c := range in.Categories {
		if _, ok := s.categories[c]; !ok {
			return notFound("category", c)
		}
	}
	if in.EntryDate.IsZero() {
		in.EntryDate = time.Now()
	}
	in.ID = s.nextID()
	stored := *in
	stored.Categories = slices.Clone(in.Categories)
	s.inputs[in.ID] = stored
	return nil
}

func (s *Store) InputsOf(_ context.Context, accountID int64) ([]core.CashInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputsWhere(func(in core.CashInput) bool { return in.AccountID == accountID }), nil
}

func (s *Store) SaveCategory(_ context.Context, c *core.InputCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID()
	} else if _, ok := s.categories[c.ID]; !ok {
		return notFound("category", c.ID)
	}
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.InputCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.InputCategory{}, notFound("category", id)
	}
	return c, nil
}

func (s *Store) InputsInCategory(_ context.Context, categoryID int64) ([]core.CashInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputsWhere(func(in core.CashInput) bool { return in.InCategory(categoryID) }), nil
}

func (s *Store) inputsWhere(keep func(core.CashInput) bool) []core.CashInput {
	var out []core.CashInput
	for _, in := range sortedValues(s.inputs, func(in core.CashInput) int64 { return in.ID }) {
		if keep(in) {
			in.Categories = slices.Clone(in.Categories)
			out = append(out, in)
		}
	}
	return out
}

// bareFund drops the loaded children; they live in their own maps.
func bareFund(f core.Fund) core.Fund {
	f.Partners, f.Expenses, f.Accounts = nil, nil, nil
	return f
}

func sortedValues[T any](m map[int64]T, id func(T) int64) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return out
}

func notFound(what string, id int64) error {
	return fmt.Errorf("get %s %d: %w", what, id, core.ErrNotFound)
}
