package services

import (
	"context"
	"fmt"
	"log/slog"

	"agencydesk/internal/core"

	"github.com/google/uuid"
)

// PaymentStore is what payment recording needs from persistence. The
// settle flag on InsertPayment flips the invoice to paid in the same
// transaction as the payment row.
type PaymentStore interface {
	GetInvoice(ctx context.Context, id int64) (core.Invoice, error)
	SumPayments(ctx context.Context, invoiceID int64) (core.Money, error)
	InsertPayment(ctx context.Context, p core.Payment, settle bool) (core.Payment, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]core.Payment, error)
}

// PaymentPublisher announces recorded payments to the ledger worker.
// Publishing is best effort: the worker has a backup sweep over the
// unexported queue, so a lost message delays the export but never loses it.
type PaymentPublisher interface {
	PublishPaymentRecorded(ctx context.Context, paymentID, invoiceID int64) error
}

// Payments records payments and keeps the owning invoice's status
// consistent with its running total.
type Payments struct {
	store     PaymentStore
	publisher PaymentPublisher // nil disables event publishing
}

func NewPayments(store PaymentStore, publisher PaymentPublisher) *Payments {
	return &Payments{store: store, publisher: publisher}
}

// Record validates and persists a payment against its invoice. The invoice
// transitions to paid exactly when the cumulative total, this payment
// included, reaches the invoiced amount. Overpayment settles too; partial
// payments leave the status alone, overdue included.
func (s *Payments) Record(ctx context.Context, p core.Payment) (core.Payment, error) {
	if p.Amount.Cents <= 0 {
		return core.Payment{}, core.ErrInvalidAmount
	}

	inv, err := s.store.GetInvoice(ctx, p.InvoiceID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("load invoice %d: %w", p.InvoiceID, err)
	}
	if p.ClientID == 0 {
		p.ClientID = inv.ClientID
	}
	if p.ClientID != inv.ClientID {
		return core.Payment{}, core.ErrClientMismatch
	}
	if p.Reference == "" {
		p.Reference = uuid.NewString()
	}

	paid, err := s.store.SumPayments(ctx, p.InvoiceID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("sum payments for invoice %d: %w", p.InvoiceID, err)
	}
	settle := paid.Cents+p.Amount.Cents >= inv.Amount.Cents

	recorded, err := s.store.InsertPayment(ctx, p, settle)
	if err != nil {
		return core.Payment{}, fmt.Errorf("record payment: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPaymentRecorded(ctx, recorded.ID, recorded.InvoiceID); err != nil {
			slog.WarnContext(ctx, "Failed to publish payment event, export sweep will pick it up",
				"payment_id", recorded.ID,
				"error", err)
		}
	}
	return recorded, nil
}

// InvoiceBalance is an invoice with its payment history and running total.
type InvoiceBalance struct {
	Invoice   core.Invoice   `json:"invoice"`
	Payments  []core.Payment `json:"payments"`
	TotalPaid core.Money     `json:"total_paid"`
	Balance   core.Money     `json:"balance"`
}

// Balance returns the invoice with its payments and outstanding amount.
// Balance never goes negative; overpayment reads as zero outstanding.
func (s *Payments) Balance(ctx context.Context, invoiceID int64) (InvoiceBalance, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return InvoiceBalance{}, fmt.Errorf("load invoice %d: %w", invoiceID, err)
	}
	payments, err := s.store.ListPayments(ctx, invoiceID)
	if err != nil {
		return InvoiceBalance{}, fmt.Errorf("list payments for invoice %d: %w", invoiceID, err)
	}
	total, err := s.store.SumPayments(ctx, invoiceID)
	if err != nil {
		return InvoiceBalance{}, fmt.Errorf("sum payments for invoice %d: %w", invoiceID, err)
	}

	balance := inv.Amount.Cents - total.Cents
	if balance < 0 {
		balance = 0
	}
	return InvoiceBalance{
		Invoice:   inv,
		Payments:  payments,
		TotalPaid: total,
		Balance:   core.Money{Cents: balance},
	}, nil
}
