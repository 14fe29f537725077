package core

import (
	"testing"
)

func TestContentStatusTerminal(t *testing.T) {
	tests := []struct {
		status ContentStatus
		want   bool
	}{
		{ContentPlanned, false},
		{ContentOverdue, false},
		{ContentDone, true},
		{ContentSkipped, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectionContains(t *testing.T) {
	p := Projection{
		StartDate: NewDate(2025, 1, 1),
		EndDate:   NewDate(2025, 1, 31),
	}

	tests := []struct {
		name string
		day  Date
		want bool
	}{
		{"before period", NewDate(2024, 12, 31), false},
		{"first day inclusive", NewDate(2025, 1, 1), true},
		{"mid period", NewDate(2025, 1, 15), true},
		{"last day inclusive", NewDate(2025, 1, 31), true},
		{"after period", NewDate(2025, 2, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Contains(tt.day); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.day.ISO(), got, tt.want)
			}
		})
	}
}

func TestDateISO(t *testing.T) {
	d := NewDate(2025, 3, 7)
	if got := d.ISO(); got != "2025-03-07" {
		t.Errorf("ISO() = %q, want 2025-03-07", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-30")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !d.Equal(NewDate(2025, 6, 30).Time) {
		t.Errorf("ParseDate = %v, want 2025-06-30", d)
	}

	if _, err := ParseDate("30/06/2025"); err == nil {
		t.Error("ParseDate should reject non-ISO format")
	}
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2025, 3, 1)
	if got := d.AddDays(-3).ISO(); got != "2025-02-26" {
		t.Errorf("AddDays(-3) = %s, want 2025-02-26", got)
	}
	if got := d.AddDays(31).ISO(); got != "2025-04-01" {
		t.Errorf("AddDays(31) = %s, want 2025-04-01", got)
	}
}

func TestInvoiceValidate(t *testing.T) {
	valid := Invoice{
		ClientID: 1,
		Month:    "2025-03",
		Amount:   Money{Cents: 100000},
		DueDate:  NewDate(2025, 3, 31),
		Status:   InvoicePending,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid invoice rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Invoice)
	}{
		{"missing client", func(i *Invoice) { i.ClientID = 0 }},
		{"zero amount", func(i *Invoice) { i.Amount = Money{} }},
		{"negative amount", func(i *Invoice) { i.Amount = Money{Cents: -50} }},
		{"zero due date", func(i *Invoice) { i.DueDate = Date{} }},
		{"bad status", func(i *Invoice) { i.Status = "draft" }},
		{"bad month label", func(i *Invoice) { i.Month = "March 2025" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := valid
			tt.mutate(&inv)
			if err := inv.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestProjectionValidate(t *testing.T) {
	valid := Projection{
		PeriodType:    PeriodMonthly,
		StartDate:     NewDate(2025, 1, 1),
		EndDate:       NewDate(2025, 1, 31),
		TargetRevenue: Money{Cents: 1000000},
		TargetClients: 5,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid projection rejected: %v", err)
	}

	inverted := valid
	inverted.StartDate, inverted.EndDate = inverted.EndDate, inverted.StartDate
	if err := inverted.Validate(); err == nil {
		t.Error("Validate() should reject end date before start date")
	}

	// Zero targets are allowed: progress math defines zero-target as 0%.
	zeroTargets := valid
	zeroTargets.TargetRevenue = Money{}
	zeroTargets.TargetClients = 0
	if err := zeroTargets.Validate(); err != nil {
		t.Errorf("zero targets should be valid: %v", err)
	}
}
