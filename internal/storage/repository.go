package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fundcountdown/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteRepository persists funds and their children in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: writes, including the winner flip, are serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateFund inserts f and sets its ID.
func (r *SQLiteRepository) CreateFund(ctx context.Context, f *core.Fund) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO funds (name, description, expected_date, currency) VALUES (?, ?, ?, ?)`,
		f.Name, f.Description, nullDate(f.ExpectedDate), f.Currency.String())
	if err != nil {
		return fmt.Errorf("create fund: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create fund: %w", err)
	}
	f.ID = id

	slog.InfoContext(ctx, "Fund saved to SQLite", "id", f.ID, "name", f.Name, "currency", f.Currency.String())
	return nil
}

func (r *SQLiteRepository) UpdateFund(ctx context.Context, f core.Fund) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE funds SET name = ?, description = ?, expected_date = ?, currency = ? WHERE id = ?`,
		f.Name, f.Description, nullDate(f.ExpectedDate), f.Currency.String(), f.ID)
	if err != nil {
		return fmt.Errorf("update fund: %w", err)
	}
	return expectOne(res, "fund", f.ID)
}

const fundColumns = `id, name, description, expected_date, currency`

func (r *SQLiteRepository) GetFund(ctx context.Context, id int64) (core.Fund, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fundColumns+` FROM funds WHERE id = ?`, id)
	f, err := scanFund(row)
	if err != nil {
		return core.Fund{}, notFound(err, "fund", id)
	}
	return f, nil
}

func (r *SQLiteRepository) ListFunds(ctx context.Context) ([]core.Fund, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+fundColumns+` FROM funds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	var funds []core.Fund
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		funds = append(funds, f)
	}
	return funds, rows.Err()
}

func scanFund(s scanner) (core.Fund, error) {
	var (
		f        core.Fund
		expected sql.NullString
		code     string
	)
	if err := s.Scan(&f.ID, &f.Name, &f.Description, &expected, &code); err != nil {
		return core.Fund{}, err
	}
	var err error
	if f.ExpectedDate, err = core.ParseDate(expected.String); err != nil {
		return core.Fund{}, fmt.Errorf("scan fund %d: %w", f.ID, err)
	}
	if f.Currency, err = core.ParseCurrency(code); err != nil {
		return core.Fund{}, fmt.Errorf("scan fund %d: %w", f.ID, err)
	}
	return f, nil
}

func (r *SQLiteRepository) AddPartner(ctx context.Context, fundID int64, p *core.Partner) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		username := strings.TrimSpace(p.Username)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO partners (username) VALUES (?) ON CONFLICT (username) DO NOTHING`, username); err != nil {
			return fmt.Errorf("create partner: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT id FROM partners WHERE username = ?`, username).Scan(&p.ID); err != nil {
			return fmt.Errorf("get partner: %w", err)
		}
		p.Username = username
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fund_partners (fund_id, partner_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, fundID, p.ID); err != nil {
			return fmt.Errorf("link partner to fund %d: %w", fundID, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) PartnersOf(ctx context.Context, fundID int64) ([]core.Partner, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.username FROM partners p
		JOIN fund_partners fp ON fp.partner_id = p.id
		WHERE fp.fund_id = ? ORDER BY p.id`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list partners of fund %d: %w", fundID, err)
	}
	defer rows.Close()

	var partners []core.Partner
	for rows.Next() {
		var p core.Partner
		if err := rows.Scan(&p.ID, &p.Username); err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("get %s %d: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s %d: %w", what, id, core.ErrNotFound)
	}
	return nil
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func readMoney(amount, code string) (core.Money, error) {
	cur, err := core.ParseCurrency(code)
	if err != nil {
		return core.Money{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Money{}, fmt.Errorf("read amount %q: %w", amount, err)
	}
	return core.Money{Amount: d, Currency: cur}, nil
}

// inClause returns "?, ?, ?" and the matching args.
func inClause(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
