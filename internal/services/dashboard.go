package services

import (
	"context"
	"fmt"

	"agencydesk/internal/core"
)

// Week and effort windows for the daily view: the week spans three days
// either side of today, effort looks back thirty days.
const (
	weekRadiusDays   = 3
	effortWindowDays = 30
)

// DashboardStore is what the daily view needs from persistence beyond the
// engine stores.
type DashboardStore interface {
	ListContentOn(ctx context.Context, day core.Date) ([]core.ContentItem, error)
	ListContentBetween(ctx context.Context, from, to core.Date, clientID int64) ([]core.ContentItem, error)
	ListContentByStatus(ctx context.Context, status core.ContentStatus) ([]core.ContentItem, error)
	ListInvoicesByStatus(ctx context.Context, status core.InvoiceStatus) ([]core.Invoice, error)
}

// Dashboard assembles the daily operational view. It runs the overdue
// sweep first so the view reflects today's calendar, then reads the
// derived statuses back.
type Dashboard struct {
	store       DashboardStore
	reconciler  *Reconciler
	efforts     *Efforts
	projections *Projections
}

func NewDashboard(store DashboardStore, reconciler *Reconciler, efforts *Efforts, projections *Projections) *Dashboard {
	return &Dashboard{
		store:       store,
		reconciler:  reconciler,
		efforts:     efforts,
		projections: projections,
	}
}

func (s *Dashboard) Build(ctx context.Context, today core.Date) (core.Dashboard, error) {
	dash := core.Dashboard{Today: today}

	if _, err := s.reconciler.Sweep(ctx, today); err != nil {
		return dash, fmt.Errorf("pre-dashboard sweep: %w", err)
	}

	var err error
	if dash.TodayItems, err = s.store.ListContentOn(ctx, today); err != nil {
		return dash, fmt.Errorf("load today's content: %w", err)
	}
	weekFrom := today.AddDays(-weekRadiusDays)
	weekTo := today.AddDays(weekRadiusDays)
	if dash.WeekItems, err = s.store.ListContentBetween(ctx, weekFrom, weekTo, 0); err != nil {
		return dash, fmt.Errorf("load week content: %w", err)
	}
	if dash.OverdueItems, err = s.store.ListContentByStatus(ctx, core.ContentOverdue); err != nil {
		return dash, fmt.Errorf("load overdue content: %w", err)
	}
	if dash.OverdueInvoices, err = s.store.ListInvoicesByStatus(ctx, core.InvoiceOverdue); err != nil {
		return dash, fmt.Errorf("load overdue invoices: %w", err)
	}

	if dash.Effort, err = s.efforts.Summary(ctx, today.AddDays(-effortWindowDays), today, 0); err != nil {
		return dash, fmt.Errorf("load effort summary: %w", err)
	}
	if dash.Projection, err = s.projections.Progress(ctx, today); err != nil {
		return dash, fmt.Errorf("load projection progress: %w", err)
	}
	return dash, nil
}
