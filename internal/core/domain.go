package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	maxNameLength        = 100
	maxFundNameLength    = 50
	maxDescriptionLength = 2000
)

type (
	Date struct {
		time.Time
	}

	// Partner is a user sharing a fund.
	Partner struct {
		ID       int64
		Username string
	}
)

var (
	ErrInvalidMoney     = errors.New("invalid money value")
	ErrCoercion         = errors.New("money coercion failed")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrUnsupported      = errors.New("operation not supported")
	ErrNotFound         = errors.New("not found")
	ErrNotOwned         = errors.New("quotation does not belong to expense")
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long")
	ErrDescriptionLong  = errors.New("description too long")
	ErrEmptyUsername    = errors.New("empty username")
	ErrUnknownPartner   = errors.New("partner not in fund")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty returns true if the date is zero (optional dates are left empty)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD, empty for a zero date.
func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// ParseDate parses a date string in YYYY-MM-DD format. An empty string
// yields an empty date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsEmpty() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (p Partner) Validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return ErrEmptyUsername
	}
	return nil
}

func validateName(name string, max int) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > max {
		return fmt.Errorf("%w (max %d characters)", ErrNameTooLong, max)
	}
	return nil
}

func validateDescription(desc string) error {
	if len(desc) > maxDescriptionLength {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionLong, maxDescriptionLength)
	}
	return nil
}

// IsValidation reports whether err comes from rejected user input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidMoney, ErrCoercion, ErrInvalidCurrency,
		ErrEmptyName, ErrNameTooLong, ErrDescriptionLong, ErrEmptyUsername,
		ErrUnknownPartner,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
