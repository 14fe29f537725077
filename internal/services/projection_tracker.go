package services

import (
	"context"
	"errors"
	"fmt"

	"agencydesk/internal/core"
)

// ProjectionStore is what progress tracking needs from persistence.
type ProjectionStore interface {
	ActiveProjection(ctx context.Context, day core.Date) (core.Projection, error)
	PaidRevenueBetween(ctx context.Context, from, to core.Date) (core.Money, error)
	DistinctPaidClientsBetween(ctx context.Context, from, to core.Date) (int, error)
}

// Projections measures achieved revenue and client count against the
// active projection period.
type Projections struct {
	store ProjectionStore
}

func NewProjections(store ProjectionStore) *Projections {
	return &Projections{store: store}
}

// Progress returns achieved-vs-target figures for the projection whose
// period contains the given day, or (nil, nil) when no period does.
// Achieved revenue counts paid invoices due inside the period; a client
// with several paid invoices still counts once. A zero target reads as
// 0% progress rather than dividing by zero.
func (s *Projections) Progress(ctx context.Context, today core.Date) (*core.ProjectionProgress, error) {
	proj, err := s.store.ActiveProjection(ctx, today)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active projection: %w", err)
	}

	revenue, err := s.store.PaidRevenueBetween(ctx, proj.StartDate, proj.EndDate)
	if err != nil {
		return nil, fmt.Errorf("sum paid revenue: %w", err)
	}
	clients, err := s.store.DistinctPaidClientsBetween(ctx, proj.StartDate, proj.EndDate)
	if err != nil {
		return nil, fmt.Errorf("count paid clients: %w", err)
	}

	progress := &core.ProjectionProgress{
		Projection:      proj,
		AchievedRevenue: revenue,
		AchievedClients: clients,
	}
	if proj.TargetRevenue.Cents > 0 {
		progress.RevenuePct = round1(float64(revenue.Cents) / float64(proj.TargetRevenue.Cents) * 100)
	}
	if proj.TargetClients > 0 {
		progress.ClientPct = round1(float64(clients) / float64(proj.TargetClients) * 100)
	}
	return progress, nil
}
