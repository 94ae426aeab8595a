package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundReport is the countdown summary of a fund at a given time.
type FundReport struct {
	FundID        int64           `json:"fund_id"`
	Name          string          `json:"name"`
	FullCost      Money           `json:"full_cost"`
	Amount        Money           `json:"amount"`
	Remaining     Money           `json:"remaining"`
	Progress      decimal.Decimal `json:"progress"`
	ExpectedDate  Date            `json:"expected_date"`
	DaysLeft      int             `json:"days_left"`
	MonthsLeft    int             `json:"months_left"`
	MonthlySaving Money           `json:"monthly_saving"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// Report computes the countdown of the fund as seen at now.
func (f Fund) Report(now time.Time) (FundReport, error) {
	fullCost, err := f.FullCost()
	if err != nil {
		return FundReport{}, err
	}
	amount, err := f.Amount()
	if err != nil {
		return FundReport{}, err
	}
	remaining, err := fullCost.Sub(amount)
	if err != nil {
		return FundReport{}, err
	}
	if remaining.IsNegative() {
		remaining = Zero(remaining.Currency)
	}

	r := FundReport{
		FundID:        f.ID,
		Name:          f.Name,
		FullCost:      fullCost,
		Amount:        amount,
		Remaining:     remaining,
		Progress:      progress(amount, fullCost),
		ExpectedDate:  f.ExpectedDate,
		MonthlySaving: remaining,
		GeneratedAt:   now,
	}

	if f.ExpectedDate.IsEmpty() {
		return r, nil
	}
	today := DateOf(now)
	if !f.ExpectedDate.After(today.Time) {
		return r, nil
	}
	r.DaysLeft = int(f.ExpectedDate.Sub(today.Time).Hours() / 24)
	r.MonthsLeft = max(monthsUntil(today, f.ExpectedDate), 1)
	r.MonthlySaving = Money{
		Amount:   remaining.Amount.Div(decimal.NewFromInt(int64(r.MonthsLeft))).RoundCeil(moneyPlaces),
		Currency: remaining.Currency,
	}
	return r, nil
}

// progress is amount/cost clamped to [0, 1]. A fund with nothing to pay is
// complete.
func progress(amount, cost Money) decimal.Decimal {
	if !cost.Amount.IsPositive() {
		return decimal.NewFromInt(1)
	}
	p := amount.Amount.DivRound(cost.Amount, 4)
	switch {
	case p.IsNegative():
		return decimal.Zero
	case p.GreaterThan(decimal.NewFromInt(1)):
		return decimal.NewFromInt(1)
	}
	return p
}

// monthsUntil counts the calendar months started between from and to.
func monthsUntil(from, to Date) int {
	m := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() > from.Day() {
		m++
	}
	return m
}
