package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fundcountdown/internal/amqp"
	"fundcountdown/internal/core"
	"fundcountdown/internal/log"
	"fundcountdown/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// ReportSource is the part of the fund service the worker needs.
type ReportSource interface {
	ListFunds(ctx context.Context) ([]core.Fund, error)
	FundReport(ctx context.Context, id int64) (core.FundReport, error)
	Invalidate(fundID int64)
}

// ReportWorker keeps the report sheet in step with the funds: it rewrites a
// fund's row when a FundChanged message arrives and exports every fund on a
// timer to recover from lost messages.
type ReportWorker struct {
	source      ReportSource
	writer      sheets.ReportWriter
	logger      *log.Logger
	parallelism int
}

func NewReportWorker(source ReportSource, writer sheets.ReportWriter, logger *log.Logger, parallelism int) *ReportWorker {
	return &ReportWorker{
		source:      source,
		writer:      writer,
		logger:      logger.WithComponent(log.ComponentWorker),
		parallelism: max(parallelism, 1),
	}
}

// HandleFundChanged exports the fund named by msg. A fund that no longer
// exists, or whose report cannot be computed from its stored data, is
// acknowledged and skipped so the message is not redelivered forever.
func (w *ReportWorker) HandleFundChanged(ctx context.Context, msg *amqp.FundChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing fund changed message",
		log.FieldFundID, msg.FundID,
		log.FieldReason, msg.Reason,
		"message_id", msg.MessageID)

	// The API process owns the cache that was invalidated; this one may
	// still hold an older report.
	w.source.Invalidate(msg.FundID)
	err := w.export(ctx, msg.FundID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		w.logger.WarnContext(ctx, "Fund gone, skipping export", log.FieldFundID, msg.FundID)
		return nil
	case errors.Is(err, core.ErrCurrencyMismatch), core.IsValidation(err):
		w.logger.ErrorContext(ctx, "Fund report cannot be computed, skipping export",
			log.FieldFundID, msg.FundID,
			log.FieldError, err)
		return nil
	}
	return err
}

// ExportAll writes the report of every fund, at most parallelism at a time.
// Failures are logged per fund and joined into the returned error.
func (w *ReportWorker) ExportAll(ctx context.Context) error {
	funds, err := w.source.ListFunds(ctx)
	if err != nil {
		return fmt.Errorf("list funds: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, f := range funds {
		g.Go(func() error {
			if err := w.export(gctx, f.ID); err != nil {
				w.logger.ErrorContext(gctx, "Fund export failed", log.FieldFundID, f.ID, log.FieldError, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("fund %d: %w", f.ID, err))
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Exported fund reports",
		log.FieldOperation, log.OpExport,
		"funds", len(funds),
		"failed", len(errs))
	return errors.Join(errs...)
}

// Run exports everything at start and then every interval until ctx ends.
func (w *ReportWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := w.ExportAll(ctx); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Periodic export failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ReportWorker) export(ctx context.Context, fundID int64) error {
	r, err := w.source.FundReport(ctx, fundID)
	if err != nil {
		return fmt.Errorf("report of fund %d: %w", fundID, err)
	}
	ref, err := w.writer.WriteReport(ctx, r)
	if err != nil {
		return fmt.Errorf("write report of fund %d: %w", fundID, err)
	}
	w.logger.DebugContext(ctx, "Fund report exported", log.FieldFundID, fundID, "range", ref)
	return nil
}
