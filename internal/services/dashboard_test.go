package services

import (
	"context"
	"testing"

	"agencydesk/internal/core"
)

type fakeDashboardStore struct {
	fakeReconcileStore

	byDay    map[string][]core.ContentItem
	between  []core.ContentItem
	invoices []core.Invoice

	weekFrom, weekTo core.Date
}

func (f *fakeDashboardStore) ListContentOn(ctx context.Context, day core.Date) ([]core.ContentItem, error) {
	return f.byDay[day.ISO()], nil
}

func (f *fakeDashboardStore) ListContentBetween(ctx context.Context, from, to core.Date, clientID int64) ([]core.ContentItem, error) {
	f.weekFrom, f.weekTo = from, to
	return f.between, nil
}

func (f *fakeDashboardStore) ListContentByStatus(ctx context.Context, status core.ContentStatus) ([]core.ContentItem, error) {
	var out []core.ContentItem
	for _, item := range f.content {
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeDashboardStore) ListInvoicesByStatus(ctx context.Context, status core.InvoiceStatus) ([]core.Invoice, error) {
	var out []core.Invoice
	for _, inv := range f.invoices {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func TestDashboardRunsSweepFirst(t *testing.T) {
	today := core.NewDate(2026, 8, 28)
	store := &fakeDashboardStore{
		byDay: map[string][]core.ContentItem{},
	}
	// A past-due planned item: the sweep inside Build must mark it before
	// the overdue list is read.
	store.fakeReconcileStore.content = []core.ContentItem{
		{ID: 1, Date: core.NewDate(2026, 8, 20), Status: core.ContentPlanned},
	}
	store.invoices = []core.Invoice{
		{ID: 10, DueDate: core.NewDate(2026, 8, 10), Status: core.InvoiceOverdue},
	}

	dash := NewDashboard(store,
		NewReconciler(store),
		NewEfforts(&fakeEffortStore{}),
		NewProjections(&fakeProjectionStore{}),
	)

	got, err := dash.Build(context.Background(), today)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(got.OverdueItems) != 1 || got.OverdueItems[0].Status != core.ContentOverdue {
		t.Errorf("overdue items = %+v, want the swept item", got.OverdueItems)
	}
	if len(got.OverdueInvoices) != 1 {
		t.Errorf("overdue invoices = %d, want 1", len(got.OverdueInvoices))
	}
	if got.Today != today {
		t.Errorf("today = %s, want %s", got.Today.ISO(), today.ISO())
	}
	if store.weekFrom.ISO() != "2026-08-25" || store.weekTo.ISO() != "2026-08-31" {
		t.Errorf("week window = %s..%s, want three days either side of today",
			store.weekFrom.ISO(), store.weekTo.ISO())
	}
	if got.Projection != nil {
		t.Errorf("projection = %+v, want nil with no active period", got.Projection)
	}
}
