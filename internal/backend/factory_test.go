package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fundcountdown/internal/config"
	"fundcountdown/internal/core"
	"fundcountdown/internal/log"
	"fundcountdown/internal/services"
	sheetsmem "fundcountdown/internal/sheets/memory"

	"golang.org/x/text/currency"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPQueue: "q"})
	if err != nil {
		t.Fatalf("FromAppConfig() = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.AMQPQueue != "q" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"unknown", Config{Type: "redis"}, "invalid backend type"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "database path is required"},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, "exchange and queue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackends(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "fund.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() = %v", err)
			}
			if res.Publisher() != nil {
				t.Fatal("publisher should be nil without AMQP")
			}
			fund := core.Fund{Name: "Roof", Currency: currency.EUR}
			if err := res.Store.CreateFund(ctx, &fund); err != nil {
				t.Fatalf("create fund: %v", err)
			}
			if err := res.Cleanup(); err != nil {
				t.Fatalf("cleanup: %v", err)
			}
		})
	}
}

func TestNewReportWriterFallsBackToMemory(t *testing.T) {
	w, err := NewReportWriter(context.Background(), &config.Config{}, log.Discard())
	if err != nil {
		t.Fatalf("NewReportWriter() = %v", err)
	}
	if _, ok := w.(*sheetsmem.Writer); !ok {
		t.Fatalf("writer = %T, want *memory.Writer", w)
	}
}

func TestNewFundService(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend() = %v", err)
	}
	defer res.Cleanup()

	cfg := &config.Config{
		DefaultExpenseCurrency: "EUR",
		DefaultInputCurrency:   "BRL",
		CacheSize:              10,
		CacheTTL:               time.Minute,
	}
	svc, reports, err := NewFundService(cfg, res, log.Discard())
	if err != nil {
		t.Fatalf("NewFundService() = %v", err)
	}
	fund, err := svc.CreateFund(ctx, services.FundInput{Name: "Trip"})
	if err != nil {
		t.Fatalf("CreateFund() = %v", err)
	}
	if fund.Currency != currency.EUR {
		t.Fatalf("currency = %v, want EUR", fund.Currency)
	}
	if _, err := svc.FundReport(ctx, fund.ID); err != nil {
		t.Fatalf("FundReport() = %v", err)
	}
	if got := reports.Stats().Size; got != 1 {
		t.Fatalf("cached reports = %d, want 1", got)
	}

	cfg.DefaultInputCurrency = "XX"
	if _, _, err := NewFundService(cfg, res, log.Discard()); err == nil {
		t.Fatal("expected error for bad currency")
	}
}
