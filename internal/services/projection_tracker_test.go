package services

import (
	"context"
	"testing"

	"agencydesk/internal/core"
)

type fakeProjectionStore struct {
	projection core.Projection
	hasActive  bool
	revenue    int64
	clients    int
}

func (f *fakeProjectionStore) ActiveProjection(ctx context.Context, day core.Date) (core.Projection, error) {
	if !f.hasActive {
		return core.Projection{}, core.ErrNotFound
	}
	return f.projection, nil
}

func (f *fakeProjectionStore) PaidRevenueBetween(ctx context.Context, from, to core.Date) (core.Money, error) {
	return core.Money{Cents: f.revenue}, nil
}

func (f *fakeProjectionStore) DistinctPaidClientsBetween(ctx context.Context, from, to core.Date) (int, error) {
	return f.clients, nil
}

func augustProjection(targetCents int64, targetClients int) core.Projection {
	return core.Projection{
		ID:            1,
		PeriodType:    core.PeriodMonthly,
		StartDate:     core.NewDate(2026, 8, 1),
		EndDate:       core.NewDate(2026, 8, 31),
		TargetRevenue: core.Money{Cents: targetCents},
		TargetClients: targetClients,
	}
}

func TestProgressComputesPercentages(t *testing.T) {
	store := &fakeProjectionStore{
		projection: augustProjection(1000000, 8),
		hasActive:  true,
		revenue:    650000,
		clients:    5,
	}

	got, err := NewProjections(store).Progress(context.Background(), core.NewDate(2026, 8, 28))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got == nil {
		t.Fatal("progress = nil, want active projection")
	}
	if got.AchievedRevenue.Cents != 650000 || got.AchievedClients != 5 {
		t.Errorf("achieved = %d cents / %d clients, want 650000 / 5", got.AchievedRevenue.Cents, got.AchievedClients)
	}
	if got.RevenuePct != 65.0 {
		t.Errorf("revenue pct = %v, want 65.0", got.RevenuePct)
	}
	if got.ClientPct != 62.5 {
		t.Errorf("client pct = %v, want 62.5", got.ClientPct)
	}
}

func TestProgressNoActiveProjection(t *testing.T) {
	got, err := NewProjections(&fakeProjectionStore{}).Progress(context.Background(), core.NewDate(2026, 8, 28))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got != nil {
		t.Errorf("progress = %+v, want nil when no period contains the day", got)
	}
}

func TestProgressZeroTargets(t *testing.T) {
	store := &fakeProjectionStore{
		projection: augustProjection(0, 0),
		hasActive:  true,
		revenue:    100000,
		clients:    3,
	}

	got, err := NewProjections(store).Progress(context.Background(), core.NewDate(2026, 8, 28))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got.RevenuePct != 0 || got.ClientPct != 0 {
		t.Errorf("zero-target pcts = %v/%v, want 0/0", got.RevenuePct, got.ClientPct)
	}
	if got.AchievedRevenue.Cents != 100000 || got.AchievedClients != 3 {
		t.Errorf("achieved figures must still be reported: %+v", got)
	}
}
