package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fundcountdown/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter upserts one row per fund.
	ReportWriter interface {
		WriteReport(ctx context.Context, r core.FundReport) (rowRef string, err error)
	}
)

// Header is the first row of the report sheet. Column A holds the fund ID
// and locates a fund's row.
var Header = []any{
	"Fund ID", "Fund", "Currency", "Full cost", "Saved", "Remaining",
	"Progress", "Expected date", "Days left", "Months left", "Monthly saving", "Updated at",
}

// LastColumn is the column letter of the last Header cell.
const LastColumn = "L"

// Row renders a report in Header order. Amounts are plain decimals so the
// sheet can compute on them.
func Row(r core.FundReport) []any {
	expected := ""
	if !r.ExpectedDate.IsEmpty() {
		expected = r.ExpectedDate.String()
	}
	return []any{
		r.FundID,
		r.Name,
		r.FullCost.Currency.String(),
		r.FullCost.Amount.StringFixed(2),
		r.Amount.Amount.StringFixed(2),
		r.Remaining.Amount.StringFixed(2),
		r.Progress.StringFixed(4),
		expected,
		r.DaysLeft,
		r.MonthsLeft,
		r.MonthlySaving.Amount.StringFixed(2),
		r.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

// ParseFundID reads the fund ID out of a column A cell. Header and blank
// cells report false.
func ParseFundID(cell any) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(cell)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
