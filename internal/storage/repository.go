// Package storage implements the SQLite persistence layer. The engine
// services consume it through narrow interfaces and only ever see plain
// value snapshots, never live rows.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"agencydesk/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Single writer; a busy timeout lets overlapping readers wait briefly
	// instead of failing with "database is locked".
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping verifies the database connection, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func scanDate(s string) (core.Date, error) {
	return core.ParseDate(s)
}

// --- Clients ---

func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	if err := c.Validate(); err != nil {
		return core.Client{}, fmt.Errorf("validate client: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (name, brand_name, start_date, monthly_retainer_cents, status, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.BrandName, c.StartDate.ISO(), c.MonthlyRetainer.Cents, string(c.Status), c.Notes,
	)
	if err != nil {
		return core.Client{}, fmt.Errorf("insert client: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Client{}, fmt.Errorf("client insert id: %w", err)
	}

	slog.InfoContext(ctx, "Client created", "id", c.ID, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) GetClient(ctx context.Context, id int64) (core.Client, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, brand_name, start_date, monthly_retainer_cents, status, notes
		FROM clients WHERE id = ?`, id)
	return scanClient(row)
}

func (r *SQLiteRepository) ListClients(ctx context.Context, search string) ([]core.Client, error) {
	query := `
		SELECT id, name, brand_name, start_date, monthly_retainer_cents, status, notes
		FROM clients`
	args := []any{}
	if strings.TrimSpace(search) != "" {
		query += ` WHERE name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+strings.TrimSpace(search)+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []core.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateClient(ctx context.Context, c core.Client) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate client: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE clients SET name = ?, brand_name = ?, start_date = ?,
			monthly_retainer_cents = ?, status = ?, notes = ?
		WHERE id = ?`,
		c.Name, c.BrandName, c.StartDate.ISO(), c.MonthlyRetainer.Cents,
		string(c.Status), c.Notes, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (core.Client, error) {
	var c core.Client
	var start, status string
	err := row.Scan(&c.ID, &c.Name, &c.BrandName, &start, &c.MonthlyRetainer.Cents, &status, &c.Notes)
	if err == sql.ErrNoRows {
		return core.Client{}, core.ErrNotFound
	}
	if err != nil {
		return core.Client{}, fmt.Errorf("scan client: %w", err)
	}
	if c.StartDate, err = scanDate(start); err != nil {
		return core.Client{}, fmt.Errorf("client %d start date: %w", c.ID, err)
	}
	c.Status = core.ClientStatus(status)
	return c, nil
}

// --- Employees ---

func (r *SQLiteRepository) CreateEmployee(ctx context.Context, e core.Employee) (core.Employee, error) {
	if err := e.Validate(); err != nil {
		return core.Employee{}, fmt.Errorf("validate employee: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO employees (name, role, email, status) VALUES (?, ?, ?, ?)`,
		e.Name, e.Role, e.Email, e.Status,
	)
	if err != nil {
		return core.Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Employee{}, fmt.Errorf("employee insert id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListEmployees(ctx context.Context) ([]core.Employee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, role, email, status FROM employees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []core.Employee
	for rows.Next() {
		var e core.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.Email, &e.Status); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Content items ---

const contentColumns = `id, client_id, date, platform, content_type, title, caption, status, posted_url, remarks`

func (r *SQLiteRepository) CreateContentItem(ctx context.Context, i core.ContentItem) (core.ContentItem, error) {
	if err := i.Validate(); err != nil {
		return core.ContentItem{}, fmt.Errorf("validate content item: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO content_items (client_id, date, platform, content_type, title, caption, status, posted_url, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ClientID, i.Date.ISO(), i.Platform, i.ContentType, i.Title, i.Caption,
		string(i.Status), i.PostedURL, i.Remarks,
	)
	if err != nil {
		return core.ContentItem{}, fmt.Errorf("insert content item: %w", err)
	}
	i.ID, err = res.LastInsertId()
	if err != nil {
		return core.ContentItem{}, fmt.Errorf("content item insert id: %w", err)
	}
	return i, nil
}

func (r *SQLiteRepository) queryContent(ctx context.Context, query string, args ...any) ([]core.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content items: %w", err)
	}
	defer rows.Close()

	var out []core.ContentItem
	for rows.Next() {
		var i core.ContentItem
		var date, status string
		if err := rows.Scan(&i.ID, &i.ClientID, &date, &i.Platform, &i.ContentType,
			&i.Title, &i.Caption, &status, &i.PostedURL, &i.Remarks); err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		if i.Date, err = scanDate(date); err != nil {
			return nil, fmt.Errorf("content item %d date: %w", i.ID, err)
		}
		i.Status = core.ContentStatus(status)
		out = append(out, i)
	}
	return out, rows.Err()
}

// ListActionableContent returns every content item the reconciliation sweep
// may still act on, i.e. anything not in a terminal status.
func (r *SQLiteRepository) ListActionableContent(ctx context.Context) ([]core.ContentItem, error) {
	return r.queryContent(ctx, `
		SELECT `+contentColumns+` FROM content_items
		WHERE status NOT IN ('done', 'skipped')
		ORDER BY date, id`)
}

func (r *SQLiteRepository) ListContentOn(ctx context.Context, day core.Date) ([]core.ContentItem, error) {
	return r.queryContent(ctx, `
		SELECT `+contentColumns+` FROM content_items
		WHERE date = ? ORDER BY client_id, id`, day.ISO())
}

func (r *SQLiteRepository) ListContentBetween(ctx context.Context, from, to core.Date, clientID int64) ([]core.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items WHERE date >= ? AND date <= ?`
	args := []any{from.ISO(), to.ISO()}
	if clientID != 0 {
		query += ` AND client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY date, id`
	return r.queryContent(ctx, query, args...)
}

func (r *SQLiteRepository) ListContentByStatus(ctx context.Context, status core.ContentStatus) ([]core.ContentItem, error) {
	return r.queryContent(ctx, `
		SELECT `+contentColumns+` FROM content_items
		WHERE status = ? ORDER BY date, id`, string(status))
}

func (r *SQLiteRepository) UpdateContentStatus(ctx context.Context, id int64, status core.ContentStatus) error {
	if !status.Valid() {
		return core.ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx, `UPDATE content_items SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update content status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- Effort logs ---

func (r *SQLiteRepository) CreateEffortLog(ctx context.Context, l core.EffortLog) (core.EffortLog, error) {
	if err := l.Validate(); err != nil {
		return core.EffortLog{}, fmt.Errorf("validate effort log: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO effort_logs (client_id, date, posts_count, reels_count, time_minutes, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ClientID, l.Date.ISO(), l.PostsCount, l.ReelsCount, l.TimeMinutes, l.Notes,
	)
	if err != nil {
		return core.EffortLog{}, fmt.Errorf("insert effort log: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return core.EffortLog{}, fmt.Errorf("effort log insert id: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) ListEffortLogs(ctx context.Context, from, to core.Date, clientID int64) ([]core.EffortLog, error) {
	query := `
		SELECT id, client_id, date, posts_count, reels_count, time_minutes, notes
		FROM effort_logs WHERE date >= ? AND date <= ?`
	args := []any{from.ISO(), to.ISO()}
	if clientID != 0 {
		query += ` AND client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list effort logs: %w", err)
	}
	defer rows.Close()

	var out []core.EffortLog
	for rows.Next() {
		var l core.EffortLog
		var date string
		if err := rows.Scan(&l.ID, &l.ClientID, &date, &l.PostsCount, &l.ReelsCount, &l.TimeMinutes, &l.Notes); err != nil {
			return nil, fmt.Errorf("scan effort log: %w", err)
		}
		if l.Date, err = scanDate(date); err != nil {
			return nil, fmt.Errorf("effort log %d date: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SumEffortByClient groups in-window effort minutes per client. Rows come
// back in client-id order; the aggregator's stable sort relies on that for
// its documented tie-break.
func (r *SQLiteRepository) SumEffortByClient(ctx context.Context, from, to core.Date, clientID int64) ([]core.EffortTotal, error) {
	query := `
		SELECT e.client_id, c.name, SUM(e.time_minutes)
		FROM effort_logs e
		JOIN clients c ON c.id = e.client_id
		WHERE e.date >= ? AND e.date <= ?`
	args := []any{from.ISO(), to.ISO()}
	if clientID != 0 {
		query += ` AND e.client_id = ?`
		args = append(args, clientID)
	}
	query += ` GROUP BY e.client_id ORDER BY e.client_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum effort by client: %w", err)
	}
	defer rows.Close()

	var out []core.EffortTotal
	for rows.Next() {
		var t core.EffortTotal
		if err := rows.Scan(&t.ClientID, &t.ClientName, &t.TotalMinutes); err != nil {
			return nil, fmt.Errorf("scan effort total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Tasks ---

func (r *SQLiteRepository) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	if err := t.Validate(); err != nil {
		return core.Task{}, fmt.Errorf("validate task: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, client_id, assignee_id, status, priority, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, nullID(t.ClientID), nullID(t.AssigneeID),
		string(t.Status), string(t.Priority), nullDate(t.DueDate),
	)
	if err != nil {
		return core.Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Task{}, fmt.Errorf("task insert id: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, status core.TaskStatus, assigneeID int64) ([]core.Task, error) {
	query := `
		SELECT id, title, description, client_id, assignee_id, status, priority, due_date
		FROM tasks WHERE 1=1`
	args := []any{}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	if assigneeID != 0 {
		query += ` AND assignee_id = ?`
		args = append(args, assigneeID)
	}
	// Tasks without a due date sort last, matching the planner view.
	query += ` ORDER BY due_date IS NULL, due_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateTaskStatus(ctx context.Context, id int64, status core.TaskStatus) error {
	if !status.Valid() {
		return core.ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanTask(row rowScanner) (core.Task, error) {
	var t core.Task
	var clientID, assigneeID sql.NullInt64
	var due sql.NullString
	var status, priority string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &clientID, &assigneeID, &status, &priority, &due)
	if err == sql.ErrNoRows {
		return core.Task{}, core.ErrNotFound
	}
	if err != nil {
		return core.Task{}, fmt.Errorf("scan task: %w", err)
	}
	t.ClientID = clientID.Int64
	t.AssigneeID = assigneeID.Int64
	t.Status = core.TaskStatus(status)
	t.Priority = core.TaskPriority(priority)
	if due.Valid && due.String != "" {
		if t.DueDate, err = scanDate(due.String); err != nil {
			return core.Task{}, fmt.Errorf("task %d due date: %w", t.ID, err)
		}
	}
	return t, nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.ISO()
}

// --- Invoices ---

const invoiceColumns = `id, client_id, month, amount_cents, due_date, status`

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, i core.Invoice) (core.Invoice, error) {
	if err := i.Validate(); err != nil {
		return core.Invoice{}, fmt.Errorf("validate invoice: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (client_id, month, amount_cents, due_date, status)
		VALUES (?, ?, ?, ?, ?)`,
		i.ClientID, i.Month, i.Amount.Cents, i.DueDate.ISO(), string(i.Status),
	)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	i.ID, err = res.LastInsertId()
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invoice insert id: %w", err)
	}

	slog.InfoContext(ctx, "Invoice created",
		"id", i.ID,
		"client_id", i.ClientID,
		"month", i.Month,
		"amount_cents", i.Amount.Cents)
	return i, nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	return scanInvoice(row)
}

func (r *SQLiteRepository) queryInvoices(ctx context.Context, query string, args ...any) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context, clientID int64, status core.InvoiceStatus) ([]core.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	if clientID != 0 {
		query += ` AND client_id = ?`
		args = append(args, clientID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY due_date DESC, id DESC`
	return r.queryInvoices(ctx, query, args...)
}

// ListUnpaidInvoices returns the sweep's invoice snapshot: everything not
// yet settled.
func (r *SQLiteRepository) ListUnpaidInvoices(ctx context.Context) ([]core.Invoice, error) {
	return r.queryInvoices(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status != 'paid' ORDER BY due_date, id`)
}

func (r *SQLiteRepository) ListInvoicesByStatus(ctx context.Context, status core.InvoiceStatus) ([]core.Invoice, error) {
	return r.queryInvoices(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status = ? ORDER BY due_date, id`, string(status))
}

func scanInvoice(row rowScanner) (core.Invoice, error) {
	var i core.Invoice
	var due, status string
	err := row.Scan(&i.ID, &i.ClientID, &i.Month, &i.Amount.Cents, &due, &status)
	if err == sql.ErrNoRows {
		return core.Invoice{}, core.ErrNotFound
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("scan invoice: %w", err)
	}
	if i.DueDate, err = scanDate(due); err != nil {
		return core.Invoice{}, fmt.Errorf("invoice %d due date: %w", i.ID, err)
	}
	i.Status = core.InvoiceStatus(status)
	return i, nil
}

// --- Reconciliation sweep ---

// ApplyOverdue marks the given content items and invoices overdue inside a
// single transaction: either every qualifying row transitions or none do,
// so a dashboard read never sees a half-applied sweep.
func (r *SQLiteRepository) ApplyOverdue(ctx context.Context, contentIDs, invoiceIDs []int64) error {
	if len(contentIDs) == 0 && len(invoiceIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sweep transaction: %w", err)
	}
	defer tx.Rollback()

	if len(contentIDs) > 0 {
		query := `UPDATE content_items SET status = 'overdue' WHERE id IN (` + placeholders(len(contentIDs)) + `)`
		if _, err := tx.ExecContext(ctx, query, idArgs(contentIDs)...); err != nil {
			return fmt.Errorf("mark content overdue: %w", err)
		}
	}
	if len(invoiceIDs) > 0 {
		query := `UPDATE invoices SET status = 'overdue' WHERE id IN (` + placeholders(len(invoiceIDs)) + `) AND status != 'paid'`
		if _, err := tx.ExecContext(ctx, query, idArgs(invoiceIDs)...); err != nil {
			return fmt.Errorf("mark invoices overdue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sweep transaction: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// --- Payments ---

func (r *SQLiteRepository) SumPayments(ctx context.Context, invoiceID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE invoice_id = ?`, invoiceID,
	).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum payments: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// InsertPayment records a payment and, when settle is true, flips the
// invoice to paid in the same transaction.
func (r *SQLiteRepository) InsertPayment(ctx context.Context, p core.Payment, settle bool) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, fmt.Errorf("validate payment: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Payment{}, fmt.Errorf("begin payment transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payments (client_id, invoice_id, amount_cents, payment_date, mode, reference, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ClientID, p.InvoiceID, p.Amount.Cents, p.PaymentDate.ISO(), p.Mode, p.Reference, p.Notes,
	)
	if err != nil {
		return core.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return core.Payment{}, fmt.Errorf("payment insert id: %w", err)
	}

	if settle {
		if _, err := tx.ExecContext(ctx, `UPDATE invoices SET status = 'paid' WHERE id = ?`, p.InvoiceID); err != nil {
			return core.Payment{}, fmt.Errorf("settle invoice: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Payment{}, fmt.Errorf("commit payment transaction: %w", err)
	}

	slog.InfoContext(ctx, "Payment recorded",
		"id", p.ID,
		"invoice_id", p.InvoiceID,
		"amount_cents", p.Amount.Cents,
		"settled", settle)
	return p, nil
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, invoiceID int64) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, invoice_id, amount_cents, payment_date, mode, reference, notes
		FROM payments WHERE invoice_id = ? ORDER BY payment_date, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row rowScanner) (core.Payment, error) {
	var p core.Payment
	var date string
	err := row.Scan(&p.ID, &p.ClientID, &p.InvoiceID, &p.Amount.Cents, &date, &p.Mode, &p.Reference, &p.Notes)
	if err == sql.ErrNoRows {
		return core.Payment{}, core.ErrNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("scan payment: %w", err)
	}
	if p.PaymentDate, err = scanDate(date); err != nil {
		return core.Payment{}, fmt.Errorf("payment %d date: %w", p.ID, err)
	}
	return p, nil
}

// ExportablePayment carries everything the ledger worker needs to append a
// revenue row: the payment plus denormalized invoice and client context.
type ExportablePayment struct {
	Payment      core.Payment
	ClientName   string
	InvoiceMonth string
	Exported     bool
}

func (r *SQLiteRepository) GetPaymentForExport(ctx context.Context, id int64) (ExportablePayment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.client_id, p.invoice_id, p.amount_cents, p.payment_date,
			p.mode, p.reference, p.notes, p.exported, c.name, i.month
		FROM payments p
		JOIN clients c ON c.id = p.client_id
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.id = ?`, id)
	return scanExportablePayment(row)
}

// ListUnexportedPayments is the worker's backup sweep for payments whose
// AMQP message was lost.
func (r *SQLiteRepository) ListUnexportedPayments(ctx context.Context, limit int) ([]ExportablePayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.client_id, p.invoice_id, p.amount_cents, p.payment_date,
			p.mode, p.reference, p.notes, p.exported, c.name, i.month
		FROM payments p
		JOIN clients c ON c.id = p.client_id
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.exported = 0 AND p.export_error = 0
		ORDER BY p.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported payments: %w", err)
	}
	defer rows.Close()

	var out []ExportablePayment
	for rows.Next() {
		ep, err := scanExportablePayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

func scanExportablePayment(row rowScanner) (ExportablePayment, error) {
	var ep ExportablePayment
	var date string
	var exported int
	err := row.Scan(&ep.Payment.ID, &ep.Payment.ClientID, &ep.Payment.InvoiceID,
		&ep.Payment.Amount.Cents, &date, &ep.Payment.Mode, &ep.Payment.Reference,
		&ep.Payment.Notes, &exported, &ep.ClientName, &ep.InvoiceMonth)
	if err == sql.ErrNoRows {
		return ExportablePayment{}, core.ErrNotFound
	}
	if err != nil {
		return ExportablePayment{}, fmt.Errorf("scan exportable payment: %w", err)
	}
	if ep.Payment.PaymentDate, err = scanDate(date); err != nil {
		return ExportablePayment{}, fmt.Errorf("payment %d date: %w", ep.Payment.ID, err)
	}
	ep.Exported = exported != 0
	return ep, nil
}

func (r *SQLiteRepository) MarkPaymentExported(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET exported = 1, export_error = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark payment exported: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Payment marked as exported", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkPaymentExportError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET export_error = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark payment export error: %w", err)
	}
	slog.WarnContext(ctx, "Payment marked with export error", "id", id)
	return nil
}

// --- Projections ---

func (r *SQLiteRepository) CreateProjection(ctx context.Context, p core.Projection) (core.Projection, error) {
	if err := p.Validate(); err != nil {
		return core.Projection{}, fmt.Errorf("validate projection: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO projections (period_type, start_date, end_date, target_revenue_cents, target_clients_count, description)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(p.PeriodType), p.StartDate.ISO(), p.EndDate.ISO(),
		p.TargetRevenue.Cents, p.TargetClients, p.Description,
	)
	if err != nil {
		return core.Projection{}, fmt.Errorf("insert projection: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return core.Projection{}, fmt.Errorf("projection insert id: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListProjections(ctx context.Context) ([]core.Projection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, period_type, start_date, end_date, target_revenue_cents, target_clients_count, description
		FROM projections ORDER BY start_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projections: %w", err)
	}
	defer rows.Close()

	var out []core.Projection
	for rows.Next() {
		p, err := scanProjection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ActiveProjection returns the projection whose period contains the given
// day. When periods overlap, the lowest id wins; the ordering is pinned
// here so the tie-break stays deterministic.
func (r *SQLiteRepository) ActiveProjection(ctx context.Context, day core.Date) (core.Projection, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, period_type, start_date, end_date, target_revenue_cents, target_clients_count, description
		FROM projections
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY id LIMIT 1`, day.ISO(), day.ISO())
	return scanProjection(row)
}

func scanProjection(row rowScanner) (core.Projection, error) {
	var p core.Projection
	var period, start, end string
	err := row.Scan(&p.ID, &period, &start, &end, &p.TargetRevenue.Cents, &p.TargetClients, &p.Description)
	if err == sql.ErrNoRows {
		return core.Projection{}, core.ErrNotFound
	}
	if err != nil {
		return core.Projection{}, fmt.Errorf("scan projection: %w", err)
	}
	p.PeriodType = core.PeriodType(period)
	if p.StartDate, err = scanDate(start); err != nil {
		return core.Projection{}, fmt.Errorf("projection %d start date: %w", p.ID, err)
	}
	if p.EndDate, err = scanDate(end); err != nil {
		return core.Projection{}, fmt.Errorf("projection %d end date: %w", p.ID, err)
	}
	return p, nil
}

// PaidRevenueBetween sums paid-invoice amounts whose due date falls inside
// the window (both bounds inclusive).
func (r *SQLiteRepository) PaidRevenueBetween(ctx context.Context, from, to core.Date) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM invoices
		WHERE status = 'paid' AND due_date >= ? AND due_date <= ?`,
		from.ISO(), to.ISO(),
	).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("paid revenue between: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// DistinctPaidClientsBetween counts clients with at least one paid invoice
// due inside the window; a client counts once however many invoices it has.
func (r *SQLiteRepository) DistinctPaidClientsBetween(ctx context.Context, from, to core.Date) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT client_id) FROM invoices
		WHERE status = 'paid' AND due_date >= ? AND due_date <= ?`,
		from.ISO(), to.ISO(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("distinct paid clients: %w", err)
	}
	return n, nil
}

// --- Global search ---

func (r *SQLiteRepository) Search(ctx context.Context, q string) (core.SearchResults, error) {
	var res core.SearchResults
	q = strings.TrimSpace(q)
	if q == "" {
		return res, nil
	}
	like := "%" + q + "%"

	clients, err := r.ListClients(ctx, q)
	if err != nil {
		return res, err
	}
	res.Clients = clients

	res.ContentItems, err = r.queryContent(ctx, `
		SELECT `+contentColumns+` FROM content_items
		WHERE title LIKE ? COLLATE NOCASE ORDER BY date DESC, id`, like)
	if err != nil {
		return res, err
	}

	taskRows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, client_id, assignee_id, status, priority, due_date
		FROM tasks WHERE title LIKE ? COLLATE NOCASE ORDER BY id`, like)
	if err != nil {
		return res, fmt.Errorf("search tasks: %w", err)
	}
	defer taskRows.Close()
	for taskRows.Next() {
		t, err := scanTask(taskRows)
		if err != nil {
			return res, err
		}
		res.Tasks = append(res.Tasks, t)
	}
	if err := taskRows.Err(); err != nil {
		return res, err
	}

	res.Invoices, err = r.queryInvoices(ctx, `
		SELECT i.id, i.client_id, i.month, i.amount_cents, i.due_date, i.status
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE c.name LIKE ? COLLATE NOCASE ORDER BY i.due_date DESC, i.id`, like)
	if err != nil {
		return res, err
	}

	return res, nil
}
