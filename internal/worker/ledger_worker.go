// Package worker mirrors payment changes into the ledger sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hostel/internal/amqp"
	"hostel/internal/core"
	"hostel/internal/log"
	"hostel/internal/metrics"
	"hostel/internal/sheets"
	"hostel/internal/store"
)

const (
	actionUpsert = "upsert"
	actionDelete = "delete"
)

// monthLister is implemented by stores that can filter payments by month.
type monthLister interface {
	ListPaymentsByMonth(ctx context.Context, month core.MonthKey) ([]core.Payment, error)
}

// LedgerWorker applies payment events to a ledger.
type LedgerWorker struct {
	store   store.Store
	ledger  sheets.LedgerWriter
	logger  *log.Logger
	metrics *metrics.Metrics
	workers int
	now     func() time.Time
}

// NewLedgerWorker creates a worker. Metrics may be nil; workers below 1
// reconcile sequentially.
func NewLedgerWorker(st store.Store, ledger sheets.LedgerWriter, logger *log.Logger, m *metrics.Metrics, workers int) *LedgerWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerWorker{
		store:   st,
		ledger:  ledger,
		logger:  logger.WithComponent(log.ComponentWorker),
		metrics: m,
		workers: max(workers, 1),
		now:     time.Now,
	}
}

// HandleEvent processes one event from the bus. Non-payment events are
// ignored. A returned error asks the consumer to redeliver.
func (w *LedgerWorker) HandleEvent(ctx context.Context, e *amqp.Event) error {
	if !e.Type.IsPayment() {
		w.logger.DebugContext(ctx, "Ignoring event", log.FieldEventType, e.Type, "entity_id", e.EntityID)
		return nil
	}

	switch e.Type {
	case amqp.PaymentDeleted:
		return w.remove(ctx, e.EntityID)
	case amqp.PaymentCreated, amqp.PaymentUpdated:
		p, err := w.store.FindPayment(ctx, e.EntityID)
		if errors.Is(err, store.ErrNotFound) {
			// deleted after the event was published
			return w.remove(ctx, e.EntityID)
		}
		if err != nil {
			return fmt.Errorf("load payment %s: %w", e.EntityID, err)
		}
		return w.upsert(ctx, p)
	default:
		w.logger.WarnContext(ctx, "Unknown payment event", log.FieldEventType, e.Type)
		return nil
	}
}

// Reconcile re-upserts every payment of month and returns how many rows were
// written. It stops at the first failure.
func (w *LedgerWorker) Reconcile(ctx context.Context, month core.MonthKey) (int, error) {
	if err := month.Validate(); err != nil {
		return 0, err
	}
	start := w.now()

	payments, err := w.paymentsOf(ctx, month)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for _, p := range payments {
		g.Go(func() error {
			return w.upsert(gctx, p)
		})
	}
	err = g.Wait()

	elapsed := time.Since(start)
	if w.metrics != nil {
		w.metrics.ReconcileDurationMs.Observe(float64(elapsed.Milliseconds()))
	}
	if err != nil {
		return 0, fmt.Errorf("reconcile %s: %w", month, err)
	}
	w.logger.InfoContext(ctx, "Ledger reconciled",
		log.FieldMonth, month.String(),
		"rows", len(payments),
		log.FieldDuration, elapsed.Milliseconds())
	return len(payments), nil
}

// Run reconciles the current month immediately and then on every tick until
// ctx is cancelled. Failures are logged and retried on the next tick.
func (w *LedgerWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		month := core.MonthOf(w.now())
		if _, err := w.Reconcile(ctx, month); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Periodic reconcile failed",
				log.FieldMonth, month.String(),
				log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *LedgerWorker) paymentsOf(ctx context.Context, month core.MonthKey) ([]core.Payment, error) {
	if ml, ok := w.store.(monthLister); ok {
		payments, err := ml.ListPaymentsByMonth(ctx, month)
		if err != nil {
			return nil, fmt.Errorf("list payments: %w", err)
		}
		return payments, nil
	}
	all, err := w.store.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	var payments []core.Payment
	for _, p := range all {
		if p.Month == month {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (w *LedgerWorker) upsert(ctx context.Context, p core.Payment) error {
	var name string
	t, err := w.store.FindTenant(ctx, p.TenantID)
	switch {
	case err == nil:
		name = t.Name
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("load tenant %s: %w", p.TenantID, err)
	}

	err = w.ledger.UpsertRow(ctx, sheets.RowFromPayment(p, name))
	w.record(actionUpsert, err)
	if err != nil {
		w.logger.ErrorContext(ctx, "Ledger upsert failed", log.FieldPaymentID, p.ID, log.FieldError, err)
		return err
	}
	w.logger.DebugContext(ctx, "Ledger row upserted", log.FieldPaymentID, p.ID, log.FieldMonth, p.Month.String())
	return nil
}

func (w *LedgerWorker) remove(ctx context.Context, id string) error {
	err := w.ledger.DeleteRow(ctx, id)
	w.record(actionDelete, err)
	if err != nil {
		w.logger.ErrorContext(ctx, "Ledger delete failed", log.FieldPaymentID, id, log.FieldError, err)
		return err
	}
	w.logger.InfoContext(ctx, "Ledger row removed", log.FieldPaymentID, id)
	return nil
}

func (w *LedgerWorker) record(action string, err error) {
	if w.metrics != nil {
		w.metrics.LedgerSyncs.WithLabelValues(action, metrics.Outcome(err)).Inc()
	}
}
