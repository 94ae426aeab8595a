package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"fundcountdown/internal/core"
)

const (
	expenseColumns   = `id, fund_id, partner_id, name, description, payment_required, unit_price, occurrence, total, currency, due_date`
	quotationColumns = `id, expense_id, fund_id, partner_id, name, description, payment_required, unit_price, occurrence, total, currency, due_date, is_winner`
)

// SaveExpense normalizes e, then inserts it (ID 0) or updates it.
func (r *SQLiteRepository) SaveExpense(ctx context.Context, e *core.Expense) error {
	e.Normalize()
	args := []any{
		e.FundID, nullID(e.PartnerID), e.Name, e.Description, e.PaymentRequired,
		e.UnitPrice.Amount.String(), e.Occurrence, e.Total.Amount.String(),
		e.UnitPrice.Currency.String(), nullDate(e.DueDate),
	}

	if e.ID != 0 {
		res, err := r.db.ExecContext(ctx, `
			UPDATE expenses SET fund_id = ?, partner_id = ?, name = ?, description = ?,
				payment_required = ?, unit_price = ?, occurrence = ?, total = ?, currency = ?, due_date = ?
			WHERE id = ?`, append(args, e.ID)...)
		if err != nil {
			return fmt.Errorf("update expense %d: %w", e.ID, err)
		}
		return expectOne(res, "expense", e.ID)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (fund_id, partner_id, name, description, payment_required,
			unit_price, occurrence, total, currency, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"fund_id", e.FundID,
		"name", e.Name,
		"total", e.Total.String())
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, notFound(err, "expense", id)
	}
	if e.Quotations, err = r.QuotationsOf(ctx, id); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) ExpensesOf(ctx context.Context, fundID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE fund_id = ? ORDER BY id`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list expenses of fund %d: %w", fundID, err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	quotations, err := r.queryQuotations(ctx, r.db,
		`SELECT `+quotationColumns+` FROM quotations
		WHERE expense_id IN (SELECT id FROM expenses WHERE fund_id = ?) ORDER BY id`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list quotations of fund %d: %w", fundID, err)
	}
	byExpense := make(map[int64][]core.Quotation)
	for _, q := range quotations {
		byExpense[q.ExpenseID] = append(byExpense[q.ExpenseID], q)
	}
	for i := range expenses {
		expenses[i].Quotations = byExpense[expenses[i].ID]
	}
	return expenses, nil
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e               core.Expense
		partner         sql.NullInt64
		price, total    string
		code            string
		due             sql.NullString
		paymentRequired bool
	)
	if err := s.Scan(&e.ID, &e.FundID, &partner, &e.Name, &e.Description, &paymentRequired,
		&price, &e.Occurrence, &total, &code, &due); err != nil {
		return core.Expense{}, err
	}
	e.PartnerID = partner.Int64
	e.PaymentRequired = paymentRequired

	var err error
	if e.UnitPrice, err = readMoney(price, code); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense %d: %w", e.ID, err)
	}
	if e.Total, err = readMoney(total, code); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense %d: %w", e.ID, err)
	}
	if e.DueDate, err = core.ParseDate(due.String); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense %d: %w", e.ID, err)
	}
	return e, nil
}

// SaveQuotation normalizes q and stores it. When q is a winner, the flag is
// cleared on every other quotation of the same expense in the same
// transaction.
func (r *SQLiteRepository) SaveQuotation(ctx context.Context, q *core.Quotation) error {
	q.Normalize()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if q.IsWinner {
			res, err := tx.ExecContext(ctx,
				`UPDATE quotations SET is_winner = 0 WHERE expense_id = ? AND is_winner = 1 AND id <> ?`,
				q.ExpenseID, q.ID)
			if err != nil {
				return fmt.Errorf("disqualify previous winner of expense %d: %w", q.ExpenseID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				slog.InfoContext(ctx, "Previous winner disqualified", "expense_id", q.ExpenseID, "count", n)
			}
		}

		args := []any{
			q.ExpenseID, nullID(q.FundID), nullID(q.PartnerID), q.Name, q.Description, q.PaymentRequired,
			q.UnitPrice.Amount.String(), q.Occurrence, q.Total.Amount.String(),
			q.UnitPrice.Currency.String(), nullDate(q.DueDate), q.IsWinner,
		}

		if q.ID != 0 {
			res, err := tx.ExecContext(ctx, `
				UPDATE quotations SET expense_id = ?, fund_id = ?, partner_id = ?, name = ?, description = ?,
					payment_required = ?, unit_price = ?, occurrence = ?, total = ?, currency = ?,
					due_date = ?, is_winner = ?
				WHERE id = ?`, append(args, q.ID)...)
			if err != nil {
				return fmt.Errorf("update quotation %d: %w", q.ID, err)
			}
			return expectOne(res, "quotation", q.ID)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO quotations (expense_id, fund_id, partner_id, name, description, payment_required,
				unit_price, occurrence, total, currency, due_date, is_winner)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		if q.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) GetQuotation(ctx context.Context, id int64) (core.Quotation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = ?`, id)
	q, err := scanQuotation(row)
	if err != nil {
		return core.Quotation{}, notFound(err, "quotation", id)
	}
	return q, nil
}

func (r *SQLiteRepository) QuotationsOf(ctx context.Context, expenseID int64) ([]core.Quotation, error) {
	qs, err := r.queryQuotations(ctx, r.db,
		`SELECT `+quotationColumns+` FROM quotations WHERE expense_id = ? ORDER BY id`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("list quotations of expense %d: %w", expenseID, err)
	}
	return qs, nil
}

func (r *SQLiteRepository) queryQuotations(ctx context.Context, q querier, query string, args ...any) ([]core.Quotation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotations []core.Quotation
	for rows.Next() {
		quotation, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, quotation)
	}
	return quotations, rows.Err()
}

func scanQuotation(s scanner) (core.Quotation, error) {
	var (
		q               core.Quotation
		fund, partner   sql.NullInt64
		price, total    string
		code            string
		due             sql.NullString
		paymentRequired bool
		winner          bool
	)
	if err := s.Scan(&q.ID, &q.ExpenseID, &fund, &partner, &q.Name, &q.Description, &paymentRequired,
		&price, &q.Occurrence, &total, &code, &due, &winner); err != nil {
		return core.Quotation{}, err
	}
	q.FundID = fund.Int64
	q.PartnerID = partner.Int64
	q.PaymentRequired = paymentRequired
	q.IsWinner = winner

	var err error
	if q.UnitPrice, err = readMoney(price, code); err != nil {
		return core.Quotation{}, fmt.Errorf("scan quotation %d: %w", q.ID, err)
	}
	if q.Total, err = readMoney(total, code); err != nil {
		return core.Quotation{}, fmt.Errorf("scan quotation %d: %w", q.ID, err)
	}
	if q.DueDate, err = core.ParseDate(due.String); err != nil {
		return core.Quotation{}, fmt.Errorf("scan quotation %d: %w", q.ID, err)
	}
	return q, nil
}
