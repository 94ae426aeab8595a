package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"fundcountdown/internal/core"
)

const (
	accountColumns = `id, fund_id, name, description, currency`
	inputColumns   = `ci.id, ci.account_id, ci.description, ci.value, ci.currency, ci.entry_date`
)

// SaveAccount inserts a (ID 0) or updates it. Inputs are not touched.
func (r *SQLiteRepository) SaveAccount(ctx context.Context, a *core.Account) error {
	if a.ID != 0 {
		res, err := r.db.ExecContext(ctx,
			`UPDATE accounts SET fund_id = ?, name = ?, description = ?, currency = ? WHERE id = ?`,
			a.FundID, a.Name, a.Description, a.Currency.String(), a.ID)
		if err != nil {
			return fmt.Errorf("update account %d: %w", a.ID, err)
		}
		return expectOne(res, "account", a.ID)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (fund_id, name, description, currency) VALUES (?, ?, ?, ?)`,
		a.FundID, a.Name, a.Description, a.Currency.String())
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFound(err, "account", id)
	}
	if a.Inputs, err = r.InputsOf(ctx, id); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (r *SQLiteRepository) AccountsOf(ctx context.Context, fundID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE fund_id = ? ORDER BY id`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list accounts of fund %d: %w", fundID, err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	inputs, err := r.queryInputs(ctx, `SELECT `+inputColumns+` FROM cash_inputs ci
		JOIN accounts a ON a.id = ci.account_id
		WHERE a.fund_id = ? ORDER BY ci.id`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list inputs of fund %d: %w", fundID, err)
	}
	byAccount := make(map[int64][]core.CashInput)
	for _, in := range inputs {
		byAccount[in.AccountID] = append(byAccount[in.AccountID], in)
	}
	for i := range accounts {
		accounts[i].Inputs = byAccount[accounts[i].ID]
	}
	return accounts, nil
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a    core.Account
		code string
	)
	if err := s.Scan(&a.ID, &a.FundID, &a.Name, &a.Description, &code); err != nil {
		return core.Account{}, err
	}
	cur, err := core.ParseCurrency(code)
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account %d: %w", a.ID, err)
	}
	a.Currency = cur
	return a, nil
}

// SaveCashInput inserts in with its category links. Cash inputs are
// append-only.
func (r *SQLiteRepository) SaveCashInput(ctx context.Context, in *core.CashInput) error {
	if in.EntryDate.IsZero() {
		in.EntryDate = time.Now()
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO cash_inputs (account_id, description, value, currency, entry_date) VALUES (?, ?, ?, ?, ?)`,
			in.AccountID, in.Description, in.Value.Amount.String(), in.Value.Currency.String(),
			in.EntryDate.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("create cash input: %w", err)
		}
		if in.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("create cash input: %w", err)
		}
		for _, categoryID := range in.Categories {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cash_input_categories (cash_input_id, category_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
				in.ID, categoryID); err != nil {
				return fmt.Errorf("tag cash input with category %d: %w", categoryID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Cash input saved to SQLite",
		"id", in.ID,
		"account_id", in.AccountID,
		"value", in.Value.String())
	return nil
}

func (r *SQLiteRepository) InputsOf(ctx context.Context, accountID int64) ([]core.CashInput, error) {
	inputs, err := r.queryInputs(ctx,
		`SELECT `+inputColumns+` FROM cash_inputs ci WHERE ci.account_id = ? ORDER BY ci.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list inputs of account %d: %w", accountID, err)
	}
	return inputs, nil
}

func (r *SQLiteRepository) SaveCategory(ctx context.Context, c *core.InputCategory) error {
	if c.ID != 0 {
		res, err := r.db.ExecContext(ctx,
			`UPDATE input_categories SET name = ?, description = ? WHERE id = ?`, c.Name, c.Description, c.ID)
		if err != nil {
			return fmt.Errorf("update category %d: %w", c.ID, err)
		}
		return expectOne(res, "category", c.ID)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO input_categories (name, description) VALUES (?, ?)`, c.Name, c.Description)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.InputCategory, error) {
	var c core.InputCategory
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM input_categories WHERE id = ?`, id).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return core.InputCategory{}, notFound(err, "category", id)
	}
	return c, nil
}

func (r *SQLiteRepository) InputsInCategory(ctx context.Context, categoryID int64) ([]core.CashInput, error) {
	inputs, err := r.queryInputs(ctx, `SELECT `+inputColumns+` FROM cash_inputs ci
		JOIN cash_input_categories cic ON cic.cash_input_id = ci.id
		WHERE cic.category_id = ? ORDER BY ci.id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list inputs in category %d: %w", categoryID, err)
	}
	return inputs, nil
}

// queryInputs runs query and attaches the category tags of every input found.
func (r *SQLiteRepository) queryInputs(ctx context.Context, query string, args ...any) ([]core.CashInput, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var inputs []core.CashInput
	for rows.Next() {
		in, err := scanInput(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Closed before the next query: the pool holds a single connection.
	rows.Close()

	if len(inputs) == 0 {
		return inputs, nil
	}
	return inputs, r.loadCategories(ctx, inputs)
}

func (r *SQLiteRepository) loadCategories(ctx context.Context, inputs []core.CashInput) error {
	ids := make([]int64, len(inputs))
	index := make(map[int64]int, len(inputs))
	for i, in := range inputs {
		ids[i] = in.ID
		index[in.ID] = i
	}
	marks, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT cash_input_id, category_id FROM cash_input_categories
		WHERE cash_input_id IN (`+marks+`) ORDER BY category_id`, args...)
	if err != nil {
		return fmt.Errorf("load input categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inputID, categoryID int64
		if err := rows.Scan(&inputID, &categoryID); err != nil {
			return err
		}
		i := index[inputID]
		inputs[i].Categories = append(inputs[i].Categories, categoryID)
	}
	return rows.Err()
}

func scanInput(s scanner) (core.CashInput, error) {
	var (
		in          core.CashInput
		value, code string
		entry       string
	)
	if err := s.Scan(&in.ID, &in.AccountID, &in.Description, &value, &code, &entry); err != nil {
		return core.CashInput{}, err
	}
	var err error
	if in.Value, err = readMoney(value, code); err != nil {
		return core.CashInput{}, fmt.Errorf("scan cash input %d: %w", in.ID, err)
	}
	if in.EntryDate, err = time.Parse(time.RFC3339Nano, entry); err != nil {
		return core.CashInput{}, fmt.Errorf("scan cash input %d: %w", in.ID, err)
	}
	return in, nil
}
