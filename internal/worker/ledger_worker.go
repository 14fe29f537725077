// Package worker exports recorded payments to the revenue ledger. Events
// arrive over AMQP; a periodic sweep over the unexported queue covers lost
// messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"agencydesk/internal/amqp"
	"agencydesk/internal/ledger"
	"agencydesk/internal/storage"
)

// ExportStore is what the worker needs from persistence.
type ExportStore interface {
	GetPaymentForExport(ctx context.Context, id int64) (storage.ExportablePayment, error)
	ListUnexportedPayments(ctx context.Context, limit int) ([]storage.ExportablePayment, error)
	MarkPaymentExported(ctx context.Context, id int64) error
	MarkPaymentExportError(ctx context.Context, id int64) error
}

type LedgerWorker struct {
	store     ExportStore
	ledger    ledger.Appender
	batchSize int
}

func NewLedgerWorker(store ExportStore, appender ledger.Appender, batchSize int) *LedgerWorker {
	return &LedgerWorker{
		store:     store,
		ledger:    appender,
		batchSize: batchSize,
	}
}

// HandlePaymentMessage processes one payment-recorded event from AMQP.
func (w *LedgerWorker) HandlePaymentMessage(ctx context.Context, msg *amqp.PaymentRecordedMessage) error {
	ep, err := w.store.GetPaymentForExport(ctx, msg.PaymentID)
	if err != nil {
		return fmt.Errorf("load payment %d: %w", msg.PaymentID, err)
	}
	if ep.Exported {
		// Redelivery after a crash between export and ack.
		slog.InfoContext(ctx, "Payment already exported, skipping", "payment_id", msg.PaymentID)
		return nil
	}
	return w.export(ctx, ep)
}

// ProcessPendingPayments exports payments whose event never arrived. A
// failing row is marked and left out of future sweeps rather than wedging
// the batch.
func (w *LedgerWorker) ProcessPendingPayments(ctx context.Context) error {
	pending, err := w.store.ListUnexportedPayments(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported payments: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unexported payments", "count", len(pending))

	for _, ep := range pending {
		if err := w.export(ctx, ep); err != nil {
			slog.ErrorContext(ctx, "Failed to export payment",
				"payment_id", ep.Payment.ID,
				"error", err)
			if markErr := w.store.MarkPaymentExportError(ctx, ep.Payment.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark export error",
					"payment_id", ep.Payment.ID,
					"error", markErr)
			}
		}
	}
	return nil
}

func (w *LedgerWorker) export(ctx context.Context, ep storage.ExportablePayment) error {
	rowRef, err := w.ledger.Append(ctx, ledger.Entry{
		PaymentDate:  ep.Payment.PaymentDate,
		ClientName:   ep.ClientName,
		InvoiceMonth: ep.InvoiceMonth,
		Amount:       ep.Payment.Amount,
		Mode:         ep.Payment.Mode,
		Reference:    ep.Payment.Reference,
	})
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	if err := w.store.MarkPaymentExported(ctx, ep.Payment.ID); err != nil {
		return fmt.Errorf("mark payment exported: %w", err)
	}

	slog.InfoContext(ctx, "Payment exported to ledger",
		"payment_id", ep.Payment.ID,
		"client", ep.ClientName,
		"row", rowRef)
	return nil
}
