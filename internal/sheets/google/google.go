package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"fundcountdown/internal/core"
	ports "fundcountdown/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const rowIndexTTL = 5 * time.Minute

var _ ports.ReportWriter = (*Client)(nil)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client writes fund reports to a Google Sheet, one row per fund.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time

	// rows caches fund ID -> sheet row, rebuilt from column A when stale.
	mu       sync.Mutex
	rows     map[int64]int
	nextRow  int
	loadedAt time.Time
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service. An empty sheet name means
// "Funds".
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Funds"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		now:           time.Now,
	}
}

// newSheetsService authenticates with service account credentials, taken
// inline, from a file, or from GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials")
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		var err error
		if credentialsJSON, err = os.ReadFile(file); err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// WriteReport overwrites the fund's row, appending one when the fund is not
// in the sheet yet.
func (c *Client) WriteReport(ctx context.Context, r core.FundReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	row, err := c.rowFor(ctx, r.FundID)
	if err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, ports.LastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{ports.Row(r)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.invalidateRows()
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Fund report written to sheet", "fund_id", r.FundID, "range", rng)
	return rng, nil
}

// rowFor returns the row of fundID, reserving the next free row for a fund
// seen for the first time.
func (c *Client) rowFor(ctx context.Context, fundID int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rows == nil || c.now().Sub(c.loadedAt) > rowIndexTTL {
		if err := c.loadRows(ctx); err != nil {
			return 0, err
		}
	}
	if row, ok := c.rows[fundID]; ok {
		return row, nil
	}
	row := c.nextRow
	c.rows[fundID] = row
	c.nextRow++
	return row, nil
}

// loadRows scans column A. It writes the header when the sheet is empty.
func (c *Client) loadRows(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	if len(resp.Values) == 0 {
		if err := c.writeHeader(ctx); err != nil {
			return err
		}
	}

	rows := make(map[int64]int, len(resp.Values))
	for i, cells := range resp.Values {
		if len(cells) == 0 {
			continue
		}
		if id, ok := ports.ParseFundID(cells[0]); ok {
			rows[id] = i + 1
		}
	}
	c.rows = rows
	c.nextRow = max(len(resp.Values), 1) + 1
	c.loadedAt = c.now()
	return nil
}

func (c *Client) writeHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:%s1", c.sheetName, ports.LastColumn)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{ports.Header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	return nil
}

func (c *Client) invalidateRows() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = nil
}
