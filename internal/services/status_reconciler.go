// Package services holds the derivation engines. Each service works
// against a narrow store interface so the logic stays testable without a
// database.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"agencydesk/internal/core"
)

// ReconcileStore is what the status sweep needs from persistence.
type ReconcileStore interface {
	ListActionableContent(ctx context.Context) ([]core.ContentItem, error)
	ListUnpaidInvoices(ctx context.Context) ([]core.Invoice, error)
	ApplyOverdue(ctx context.Context, contentIDs, invoiceIDs []int64) error
}

// Reconciler derives overdue statuses from the calendar. It never touches
// terminal content statuses or paid invoices, so running it twice for the
// same day is a no-op the second time.
type Reconciler struct {
	store ReconcileStore
}

func NewReconciler(store ReconcileStore) *Reconciler {
	return &Reconciler{store: store}
}

// SweepResult reports how many rows a sweep actually transitioned.
type SweepResult struct {
	ContentMarked  int
	InvoicesMarked int
}

// Sweep marks past-due content and invoices overdue as of the given day.
// The day is passed in rather than read from the clock so callers and tests
// control what "today" means.
func (r *Reconciler) Sweep(ctx context.Context, today core.Date) (SweepResult, error) {
	var res SweepResult

	items, err := r.store.ListActionableContent(ctx)
	if err != nil {
		return res, fmt.Errorf("load actionable content: %w", err)
	}
	var contentIDs []int64
	for _, item := range items {
		if item.Status != core.ContentOverdue && item.Date.Before(today.Time) {
			contentIDs = append(contentIDs, item.ID)
		}
	}

	invoices, err := r.store.ListUnpaidInvoices(ctx)
	if err != nil {
		return res, fmt.Errorf("load unpaid invoices: %w", err)
	}
	var invoiceIDs []int64
	for _, inv := range invoices {
		if inv.Status != core.InvoiceOverdue && inv.DueDate.Before(today.Time) {
			invoiceIDs = append(invoiceIDs, inv.ID)
		}
	}

	if len(contentIDs) == 0 && len(invoiceIDs) == 0 {
		return res, nil
	}

	if err := r.store.ApplyOverdue(ctx, contentIDs, invoiceIDs); err != nil {
		return res, fmt.Errorf("apply overdue sweep: %w", err)
	}

	res.ContentMarked = len(contentIDs)
	res.InvoicesMarked = len(invoiceIDs)
	slog.InfoContext(ctx, "Overdue sweep applied",
		"today", today.ISO(),
		"content_marked", res.ContentMarked,
		"invoices_marked", res.InvoicesMarked)
	return res, nil
}
