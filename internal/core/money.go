// Package core provides the fund budgeting domain: money, costed items,
// expenses and their quotations, cash flow and fund aggregation.
//
// This file contains the Money value type and the coercion rules used when a
// price is assigned from user input.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Amounts are stored with two decimal places and at most ten digits.
const (
	moneyPlaces    = 2
	moneyMaxDigits = 10
)

var maxMoneyAmount = decimal.New(1, moneyMaxDigits-moneyPlaces)

// Money is a decimal amount tagged with its currency.
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// InvalidMoneyError reports a value that cannot be read as a monetary amount.
type InvalidMoneyError struct {
	Value any
}

func (e *InvalidMoneyError) Error() string {
	return fmt.Sprintf("[%v] is not a valid money amount", e.Value)
}

func (e *InvalidMoneyError) Unwrap() error {
	return ErrInvalidMoney
}

// NewMoney rounds amount to cents and tags it with cur.
func NewMoney(amount decimal.Decimal, cur currency.Unit) Money {
	return Money{Amount: amount.Round(moneyPlaces), Currency: cur}
}

// Zero returns zero money in cur.
func Zero(cur currency.Unit) Money {
	return Money{Amount: decimal.Zero, Currency: cur}
}

// MoneyOf builds Money from a float literal; meant for constants and tests.
func MoneyOf(amount float64, cur currency.Unit) Money {
	return NewMoney(decimal.NewFromFloat(amount), cur)
}

// ParseCurrency parses an ISO 4217 code such as "USD".
func ParseCurrency(code string) (currency.Unit, error) {
	u, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return currency.Unit{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return u, nil
}

// ParseMoney reads a decimal string in cur. Both dot (12.34) and comma
// (12,34) separators are accepted.
func ParseMoney(s string, cur currency.Unit) (Money, error) {
	d, ok := parseAmount(s)
	if !ok {
		return Money{}, &InvalidMoneyError{Value: s}
	}
	return NewMoney(d, cur), nil
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !fits(d) {
		return decimal.Decimal{}, false
	}
	return d, true
}

func fits(d decimal.Decimal) bool {
	return d.Abs().Round(moneyPlaces).LessThan(maxMoneyAmount)
}

// CoerceMoney converts v into Money. Bare numbers and strings take the
// fallback currency; Money values keep their own unless it is unset.
// Unreadable values fail with *InvalidMoneyError, unsupported types with
// ErrCoercion.
func CoerceMoney(v any, fallback currency.Unit) (Money, error) {
	switch x := v.(type) {
	case Money:
		cur := x.Currency
		if cur == (currency.Unit{}) {
			cur = fallback
		}
		if !fits(x.Amount) {
			return Money{}, &InvalidMoneyError{Value: v}
		}
		return NewMoney(x.Amount, cur), nil
	case decimal.Decimal:
		if !fits(x) {
			return Money{}, &InvalidMoneyError{Value: v}
		}
		return NewMoney(x, fallback), nil
	case string:
		return ParseMoney(x, fallback)
	case int:
		return CoerceMoney(decimal.NewFromInt(int64(x)), fallback)
	case int64:
		return CoerceMoney(decimal.NewFromInt(x), fallback)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Money{}, &InvalidMoneyError{Value: v}
		}
		return CoerceMoney(decimal.NewFromFloat(x), fallback)
	case nil:
		return Money{}, &InvalidMoneyError{Value: v}
	default:
		return Money{}, fmt.Errorf("%w: unsupported type %T", ErrCoercion, v)
	}
}

// Add returns m + o. Both must carry the same currency.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub returns m - o. Both must carry the same currency.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// Mul returns m multiplied by n.
func (m Money) Mul(n int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(n))), Currency: m.Currency}
}

// Cmp compares amounts only.
func (m Money) Cmp(o Money) int {
	return m.Amount.Cmp(o.Amount)
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// String formats money as "USD 12.30".
func (m Money) String() string {
	return m.Currency.String() + " " + m.Amount.StringFixed(moneyPlaces)
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   m.Amount.StringFixed(moneyPlaces),
		Currency: m.Currency.String(),
	})
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode money: %w", err)
	}
	cur, err := ParseCurrency(raw.Currency)
	if err != nil {
		return err
	}
	parsed, err := ParseMoney(raw.Amount, cur)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
