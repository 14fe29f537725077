package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Status sets for the engine-managed entities. ContentDone and ContentSkipped
// are terminal: the reconciliation sweep never overwrites them.
const (
	ClientActive ClientStatus = "active"
	ClientPaused ClientStatus = "paused"
	ClientClosed ClientStatus = "closed"

	ContentPlanned ContentStatus = "planned"
	ContentDone    ContentStatus = "done"
	ContentOverdue ContentStatus = "overdue"
	ContentSkipped ContentStatus = "skipped"

	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"

	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskOverdue    TaskStatus = "overdue"

	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"

	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

type (
	ClientStatus  string
	ContentStatus string
	InvoiceStatus string
	TaskStatus    string
	TaskPriority  string
	PeriodType    string

	// Date is a day-precision date pinned to UTC midnight.
	Date struct {
		time.Time
	}

	Client struct {
		ID              int64        `json:"id"`
		Name            string       `json:"name"`
		BrandName       string       `json:"brand_name"`
		StartDate       Date         `json:"start_date"`
		MonthlyRetainer Money        `json:"monthly_retainer"`
		Status          ClientStatus `json:"status"`
		Notes           string       `json:"notes"`
	}

	Employee struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Role   string `json:"role"`
		Email  string `json:"email"`
		Status string `json:"status"`
	}

	ContentItem struct {
		ID          int64         `json:"id"`
		ClientID    int64         `json:"client_id"`
		Date        Date          `json:"date"`
		Platform    string        `json:"platform"`
		ContentType string        `json:"content_type"`
		Title       string        `json:"title"`
		Caption     string        `json:"caption"`
		Status      ContentStatus `json:"status"`
		PostedURL   string        `json:"posted_url"`
		Remarks     string        `json:"remarks"`
	}

	EffortLog struct {
		ID          int64  `json:"id"`
		ClientID    int64  `json:"client_id"`
		Date        Date   `json:"date"`
		PostsCount  int    `json:"posts_count"`
		ReelsCount  int    `json:"reels_count"`
		TimeMinutes int    `json:"time_minutes"`
		Notes       string `json:"notes"`
	}

	Task struct {
		ID          int64        `json:"id"`
		Title       string       `json:"title"`
		Description string       `json:"description"`
		ClientID    int64        `json:"client_id,omitempty"` // 0 when not tied to a client
		AssigneeID  int64        `json:"assignee_id,omitempty"` // 0 when unassigned
		Status      TaskStatus   `json:"status"`
		Priority    TaskPriority `json:"priority"`
		DueDate     Date         `json:"due_date"` // zero when no due date
	}

	Invoice struct {
		ID       int64         `json:"id"`
		ClientID int64         `json:"client_id"`
		Month    string        `json:"month"` // "YYYY-MM" billing label
		Amount   Money         `json:"amount"`
		DueDate  Date          `json:"due_date"`
		Status   InvoiceStatus `json:"status"`
	}

	Payment struct {
		ID          int64  `json:"id"`
		ClientID    int64  `json:"client_id"`
		InvoiceID   int64  `json:"invoice_id"`
		Amount      Money  `json:"amount"`
		PaymentDate Date   `json:"payment_date"`
		Mode        string `json:"mode"`
		Reference   string `json:"reference"`
		Notes       string `json:"notes"`
	}

	Projection struct {
		ID            int64      `json:"id"`
		PeriodType    PeriodType `json:"period_type"`
		StartDate     Date       `json:"start_date"`
		EndDate       Date       `json:"end_date"`
		TargetRevenue Money      `json:"target_revenue"`
		TargetClients int        `json:"target_clients"`
		Description   string     `json:"description"`
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrEmptyName      = errors.New("empty name")
	ErrEmptyTitle     = errors.New("empty title")
	ErrClientMismatch = errors.New("payment client does not match invoice client")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to day precision in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO returns the date as YYYY-MM-DD. Stored dates use this format, so
// lexical comparison in SQL matches chronological order.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// MarshalJSON encodes the date as "YYYY-MM-DD"; a zero date encodes as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.ISO())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AddDays returns the date shifted by n days (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientPaused, ClientClosed:
		return true
	}
	return false
}

func (s ContentStatus) Valid() bool {
	switch s {
	case ContentPlanned, ContentDone, ContentOverdue, ContentSkipped:
		return true
	}
	return false
}

// Terminal reports whether the status is final for the reconciliation sweep.
func (s ContentStatus) Terminal() bool {
	return s == ContentDone || s == ContentSkipped
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoicePending, InvoicePaid, InvoiceOverdue:
		return true
	}
	return false
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskOverdue:
		return true
	}
	return false
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p PeriodType) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	if c.MonthlyRetainer.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Employee) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (i ContentItem) Validate() error {
	if i.ClientID <= 0 {
		return errors.New("content item requires a client")
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if !i.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (l EffortLog) Validate() error {
	if l.ClientID <= 0 {
		return errors.New("effort log requires a client")
	}
	if err := l.Date.Validate(); err != nil {
		return err
	}
	if l.TimeMinutes < 0 || l.PostsCount < 0 || l.ReelsCount < 0 {
		return errors.New("negative effort counters")
	}
	return nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if !t.Priority.Valid() {
		return errors.New("invalid priority")
	}
	return nil
}

func (i Invoice) Validate() error {
	if i.ClientID <= 0 {
		return errors.New("invoice requires a client")
	}
	if i.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if err := i.DueDate.Validate(); err != nil {
		return err
	}
	if !i.Status.Valid() {
		return ErrInvalidStatus
	}
	if len(i.Month) != 7 || i.Month[4] != '-' {
		return errors.New("invalid month label, want YYYY-MM")
	}
	return nil
}

func (p Payment) Validate() error {
	if p.InvoiceID <= 0 {
		return errors.New("payment requires an invoice")
	}
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return p.PaymentDate.Validate()
}

func (p Projection) Validate() error {
	if !p.PeriodType.Valid() {
		return errors.New("invalid period type")
	}
	if err := p.StartDate.Validate(); err != nil {
		return err
	}
	if err := p.EndDate.Validate(); err != nil {
		return err
	}
	if p.EndDate.Before(p.StartDate.Time) {
		return errors.New("end date before start date")
	}
	if p.TargetRevenue.Cents < 0 || p.TargetClients < 0 {
		return errors.New("negative projection target")
	}
	return nil
}

// Contains reports whether the projection period covers the given day
// (both bounds inclusive).
func (p Projection) Contains(day Date) bool {
	return !p.StartDate.After(day.Time) && !p.EndDate.Before(day.Time)
}
