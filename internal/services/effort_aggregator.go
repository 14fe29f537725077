package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"agencydesk/internal/core"
)

// EffortStore is what the aggregator needs from persistence. Rows arrive
// grouped per client in client-id order.
type EffortStore interface {
	SumEffortByClient(ctx context.Context, from, to core.Date, clientID int64) ([]core.EffortTotal, error)
}

// Efforts turns raw effort logs into a per-client distribution for a
// date window.
type Efforts struct {
	store EffortStore
}

func NewEfforts(store EffortStore) *Efforts {
	return &Efforts{store: store}
}

// Summary aggregates effort minutes per client over [from, to] and
// computes each client's share of the total. Shares are rounded to one
// decimal, so they may not sum to exactly 100. Entries are ordered by
// minutes descending; equal totals keep client-id order. A zero-minute
// window yields zero percentages, never a division by zero; the top
// client is still the first sorted entry whenever any entry exists.
func (s *Efforts) Summary(ctx context.Context, from, to core.Date, clientID int64) (core.EffortSummary, error) {
	totals, err := s.store.SumEffortByClient(ctx, from, to, clientID)
	if err != nil {
		return core.EffortSummary{}, fmt.Errorf("aggregate effort: %w", err)
	}

	summary := core.EffortSummary{From: from, To: to}
	for _, t := range totals {
		summary.TotalMinutes += t.TotalMinutes
	}

	summary.Entries = make([]core.EffortShare, 0, len(totals))
	for _, t := range totals {
		share := core.EffortShare{
			ClientID:     t.ClientID,
			ClientName:   t.ClientName,
			TotalMinutes: t.TotalMinutes,
		}
		if summary.TotalMinutes > 0 {
			share.Percentage = round1(float64(t.TotalMinutes) / float64(summary.TotalMinutes) * 100)
		}
		summary.Entries = append(summary.Entries, share)
	}

	sort.SliceStable(summary.Entries, func(i, j int) bool {
		return summary.Entries[i].TotalMinutes > summary.Entries[j].TotalMinutes
	})

	if len(summary.Entries) > 0 {
		top := summary.Entries[0]
		summary.TopClient = &top
	}
	return summary, nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
