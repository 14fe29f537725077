package core

// EffortTotal is one row of the per-client effort grouping for a date window.
// Rows come back from the store in client-id order, which is what makes the
// tie-break in the summary deterministic.
type EffortTotal struct {
	ClientID     int64
	ClientName   string
	TotalMinutes int
}

// EffortShare is a client's slice of the effort window: absolute minutes and
// percentage of the grand total, rounded to one decimal.
type EffortShare struct {
	ClientID     int64   `json:"client_id"`
	ClientName   string  `json:"client_name"`
	TotalMinutes int     `json:"total_minutes"`
	Percentage   float64 `json:"percentage"`
}

// EffortSummary is the aggregated view over an effort window, ordered by
// total minutes descending. TopClient is nil when the window is empty.
type EffortSummary struct {
	From         Date          `json:"from"`
	To           Date          `json:"to"`
	TotalMinutes int           `json:"total_minutes"`
	Entries      []EffortShare `json:"entries"`
	TopClient    *EffortShare  `json:"top_client,omitempty"`
}

// ProjectionProgress is the achieved-vs-target view for the active
// projection period. Absence of an active projection is represented by a
// nil *ProjectionProgress, never by a zero-valued one.
type ProjectionProgress struct {
	Projection      Projection `json:"projection"`
	AchievedRevenue Money      `json:"achieved_revenue"`
	AchievedClients int        `json:"achieved_clients"`
	RevenuePct      float64    `json:"revenue_pct"`
	ClientPct       float64    `json:"client_pct"`
}

// Dashboard is the daily operational view assembled after the
// reconciliation sweep.
type Dashboard struct {
	Today           Date                `json:"today"`
	TodayItems      []ContentItem       `json:"today_items"`
	WeekItems       []ContentItem       `json:"week_items"`
	OverdueItems    []ContentItem       `json:"overdue_items"`
	OverdueInvoices []Invoice           `json:"overdue_invoices"`
	Effort          EffortSummary       `json:"effort"`
	Projection      *ProjectionProgress `json:"projection,omitempty"`
}

// SearchResults groups global search matches by entity.
type SearchResults struct {
	Clients      []Client      `json:"clients"`
	ContentItems []ContentItem `json:"content_items"`
	Tasks        []Task        `json:"tasks"`
	Invoices     []Invoice     `json:"invoices"`
}
