package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"agencydesk/internal/core"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "agencydesk.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustClient(t *testing.T, repo *SQLiteRepository, name string) core.Client {
	t.Helper()
	c, err := repo.CreateClient(context.Background(), core.Client{
		Name:      name,
		StartDate: core.NewDate(2026, 1, 1),
		Status:    core.ClientActive,
	})
	if err != nil {
		t.Fatalf("create client %s: %v", name, err)
	}
	return c
}

func mustInvoice(t *testing.T, repo *SQLiteRepository, clientID int64, cents int64, due core.Date, status core.InvoiceStatus) core.Invoice {
	t.Helper()
	inv, err := repo.CreateInvoice(context.Background(), core.Invoice{
		ClientID: clientID,
		Month:    due.Format("2006-01"),
		Amount:   core.Money{Cents: cents},
		DueDate:  due,
		Status:   status,
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agencydesk.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()

	// Reopening runs the migrations again; ErrNoChange must be swallowed.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	repo.Close()
}

func TestClientRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	created := mustClient(t, repo, "Acme Studio")

	got, err := repo.GetClient(ctx, created.ID)
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	if got.Name != "Acme Studio" || got.StartDate.ISO() != "2026-01-01" {
		t.Errorf("unexpected client: %+v", got)
	}

	if _, err := repo.GetClient(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing client error = %v, want ErrNotFound", err)
	}
}

func TestListClientsSearch(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	mustClient(t, repo, "Northwind Media")
	mustClient(t, repo, "Southbank Cafe")

	got, err := repo.ListClients(ctx, "north")
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Northwind Media" {
		t.Errorf("search results = %+v, want only Northwind Media", got)
	}
}

func TestListActionableContentExcludesTerminal(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	client := mustClient(t, repo, "Acme")

	statuses := []core.ContentStatus{
		core.ContentPlanned, core.ContentDone, core.ContentOverdue, core.ContentSkipped,
	}
	for _, s := range statuses {
		_, err := repo.CreateContentItem(ctx, core.ContentItem{
			ClientID: client.ID,
			Date:     core.NewDate(2026, 8, 20),
			Title:    string(s),
			Status:   s,
		})
		if err != nil {
			t.Fatalf("create %s item: %v", s, err)
		}
	}

	got, err := repo.ListActionableContent(ctx)
	if err != nil {
		t.Fatalf("list actionable: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("actionable items = %d, want 2 (planned + overdue)", len(got))
	}
	for _, item := range got {
		if item.Status.Terminal() {
			t.Errorf("terminal item %s leaked into actionable set", item.Status)
		}
	}
}

func TestApplyOverdueIsAtomicAndSkipsPaid(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	client := mustClient(t, repo, "Acme")

	item, err := repo.CreateContentItem(ctx, core.ContentItem{
		ClientID: client.ID,
		Date:     core.NewDate(2026, 8, 1),
		Title:    "Reel",
		Status:   core.ContentPlanned,
	})
	if err != nil {
		t.Fatalf("create content: %v", err)
	}
	pending := mustInvoice(t, repo, client.ID, 100000, core.NewDate(2026, 8, 1), core.InvoicePending)
	paid := mustInvoice(t, repo, client.ID, 100000, core.NewDate(2026, 8, 1), core.InvoicePaid)

	// The paid invoice id is included on purpose: the guard in the UPDATE
	// must leave it untouched even when the caller's snapshot was stale.
	if err := repo.ApplyOverdue(ctx, []int64{item.ID}, []int64{pending.ID, paid.ID}); err != nil {
		t.Fatalf("apply overdue: %v", err)
	}

	items, err := repo.ListContentByStatus(ctx, core.ContentOverdue)
	if err != nil {
		t.Fatalf("list overdue content: %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Errorf("overdue content = %+v, want item %d", items, item.ID)
	}

	gotPending, err := repo.GetInvoice(ctx, pending.ID)
	if err != nil {
		t.Fatalf("get pending invoice: %v", err)
	}
	if gotPending.Status != core.InvoiceOverdue {
		t.Errorf("pending invoice status = %s, want overdue", gotPending.Status)
	}

	gotPaid, err := repo.GetInvoice(ctx, paid.ID)
	if err != nil {
		t.Fatalf("get paid invoice: %v", err)
	}
	if gotPaid.Status != core.InvoicePaid {
		t.Errorf("paid invoice status = %s, want paid untouched", gotPaid.Status)
	}
}

func TestApplyOverdueEmptyIsNoop(t *testing.T) {
	repo := openTestRepo(t)
	if err := repo.ApplyOverdue(context.Background(), nil, nil); err != nil {
		t.Fatalf("empty sweep: %v", err)
	}
}

func TestInsertPaymentSettlesInvoice(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	client := mustClient(t, repo, "Acme")
	inv := mustInvoice(t, repo, client.ID, 100000, core.NewDate(2026, 9, 1), core.InvoicePending)

	p1, err := repo.InsertPayment(ctx, core.Payment{
		ClientID:    client.ID,
		InvoiceID:   inv.ID,
		Amount:      core.Money{Cents: 60000},
		PaymentDate: core.NewDate(2026, 8, 10),
	}, false)
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if p1.ID == 0 {
		t.Fatal("first payment got no id")
	}

	sum, err := repo.SumPayments(ctx, inv.ID)
	if err != nil {
		t.Fatalf("sum payments: %v", err)
	}
	if sum.Cents != 60000 {
		t.Errorf("sum after first payment = %d, want 60000", sum.Cents)
	}

	if _, err := repo.InsertPayment(ctx, core.Payment{
		ClientID:    client.ID,
		InvoiceID:   inv.ID,
		Amount:      core.Money{Cents: 40000},
		PaymentDate: core.NewDate(2026, 8, 20),
	}, true); err != nil {
		t.Fatalf("second payment: %v", err)
	}

	got, err := repo.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.Status != core.InvoicePaid {
		t.Errorf("invoice status = %s, want paid", got.Status)
	}
}

func TestSumPaymentsEmptyInvoice(t *testing.T) {
	repo := openTestRepo(t)
	sum, err := repo.SumPayments(context.Background(), 42)
	if err != nil {
		t.Fatalf("sum payments: %v", err)
	}
	if sum.Cents != 0 {
		t.Errorf("sum with no payments = %d, want 0", sum.Cents)
	}
}

func TestSumEffortByClientOrdering(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	a := mustClient(t, repo, "Alpha")
	b := mustClient(t, repo, "Beta")

	logs := []core.EffortLog{
		{ClientID: a.ID, Date: core.NewDate(2026, 8, 10), TimeMinutes: 30},
		{ClientID: a.ID, Date: core.NewDate(2026, 8, 12), TimeMinutes: 20},
		{ClientID: b.ID, Date: core.NewDate(2026, 8, 11), TimeMinutes: 50},
		// Outside the window, must not count.
		{ClientID: b.ID, Date: core.NewDate(2026, 7, 1), TimeMinutes: 500},
	}
	for _, l := range logs {
		if _, err := repo.CreateEffortLog(ctx, l); err != nil {
			t.Fatalf("create effort log: %v", err)
		}
	}

	got, err := repo.SumEffortByClient(ctx, core.NewDate(2026, 8, 1), core.NewDate(2026, 8, 31), 0)
	if err != nil {
		t.Fatalf("sum effort: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("effort rows = %d, want 2", len(got))
	}
	if got[0].ClientID != a.ID || got[0].TotalMinutes != 50 {
		t.Errorf("row 0 = %+v, want client %d with 50 minutes", got[0], a.ID)
	}
	if got[1].ClientID != b.ID || got[1].TotalMinutes != 50 {
		t.Errorf("row 1 = %+v, want client %d with 50 minutes", got[1], b.ID)
	}
}

func TestActiveProjectionTieBreak(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateProjection(ctx, core.Projection{
		PeriodType:    core.PeriodMonthly,
		StartDate:     core.NewDate(2026, 8, 1),
		EndDate:       core.NewDate(2026, 8, 31),
		TargetRevenue: core.Money{Cents: 500000},
		TargetClients: 5,
	})
	if err != nil {
		t.Fatalf("create first projection: %v", err)
	}
	if _, err := repo.CreateProjection(ctx, core.Projection{
		PeriodType:    core.PeriodQuarterly,
		StartDate:     core.NewDate(2026, 7, 1),
		EndDate:       core.NewDate(2026, 9, 30),
		TargetRevenue: core.Money{Cents: 1500000},
		TargetClients: 8,
	}); err != nil {
		t.Fatalf("create second projection: %v", err)
	}

	got, err := repo.ActiveProjection(ctx, core.NewDate(2026, 8, 15))
	if err != nil {
		t.Fatalf("active projection: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("active projection id = %d, want lowest id %d", got.ID, first.ID)
	}

	if _, err := repo.ActiveProjection(ctx, core.NewDate(2027, 1, 1)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("inactive day error = %v, want ErrNotFound", err)
	}
}

func TestDistinctPaidClientsBetween(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	a := mustClient(t, repo, "Alpha")
	b := mustClient(t, repo, "Beta")

	mustInvoice(t, repo, a.ID, 100000, core.NewDate(2026, 8, 5), core.InvoicePaid)
	mustInvoice(t, repo, a.ID, 100000, core.NewDate(2026, 8, 25), core.InvoicePaid)
	mustInvoice(t, repo, b.ID, 100000, core.NewDate(2026, 8, 10), core.InvoicePending)

	from, to := core.NewDate(2026, 8, 1), core.NewDate(2026, 8, 31)

	n, err := repo.DistinctPaidClientsBetween(ctx, from, to)
	if err != nil {
		t.Fatalf("distinct paid clients: %v", err)
	}
	if n != 1 {
		t.Errorf("distinct paid clients = %d, want 1 (two invoices, one client)", n)
	}

	rev, err := repo.PaidRevenueBetween(ctx, from, to)
	if err != nil {
		t.Fatalf("paid revenue: %v", err)
	}
	if rev.Cents != 200000 {
		t.Errorf("paid revenue = %d, want 200000", rev.Cents)
	}
}

func TestTaskNullableColumns(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTask(ctx, core.Task{
		Title:    "Prepare pitch deck",
		Status:   core.TaskPending,
		Priority: core.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	tasks, err := repo.ListTasks(ctx, "", 0)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	got := tasks[0]
	if got.ID != created.ID || got.ClientID != 0 || got.AssigneeID != 0 || !got.DueDate.IsZero() {
		t.Errorf("task round trip = %+v, want empty optional fields", got)
	}

	if err := repo.UpdateTaskStatus(ctx, created.ID, core.TaskCompleted); err != nil {
		t.Fatalf("update task status: %v", err)
	}
	if err := repo.UpdateTaskStatus(ctx, 999, core.TaskCompleted); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing task error = %v, want ErrNotFound", err)
	}
}

func TestLedgerExportQueue(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	client := mustClient(t, repo, "Acme")
	inv := mustInvoice(t, repo, client.ID, 100000, core.NewDate(2026, 9, 1), core.InvoicePending)

	p, err := repo.InsertPayment(ctx, core.Payment{
		ClientID:    client.ID,
		InvoiceID:   inv.ID,
		Amount:      core.Money{Cents: 100000},
		PaymentDate: core.NewDate(2026, 8, 28),
		Mode:        "bank_transfer",
	}, true)
	if err != nil {
		t.Fatalf("insert payment: %v", err)
	}

	pending, err := repo.ListUnexportedPayments(ctx, 10)
	if err != nil {
		t.Fatalf("list unexported: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("unexported = %d, want 1", len(pending))
	}
	ep := pending[0]
	if ep.Payment.ID != p.ID || ep.ClientName != "Acme" || ep.InvoiceMonth != inv.Month || ep.Exported {
		t.Errorf("exportable payment = %+v, want joined client and invoice context", ep)
	}

	if err := repo.MarkPaymentExported(ctx, p.ID); err != nil {
		t.Fatalf("mark exported: %v", err)
	}

	pending, err = repo.ListUnexportedPayments(ctx, 10)
	if err != nil {
		t.Fatalf("list unexported after mark: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("unexported after mark = %d, want 0", len(pending))
	}

	got, err := repo.GetPaymentForExport(ctx, p.ID)
	if err != nil {
		t.Fatalf("get payment for export: %v", err)
	}
	if !got.Exported {
		t.Error("payment should read back as exported")
	}
}

func TestSearchAcrossEntities(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	client := mustClient(t, repo, "Lighthouse Coffee")
	other := mustClient(t, repo, "Acme")

	if _, err := repo.CreateContentItem(ctx, core.ContentItem{
		ClientID: other.ID,
		Date:     core.NewDate(2026, 8, 15),
		Title:    "Lighthouse launch reel",
		Status:   core.ContentPlanned,
	}); err != nil {
		t.Fatalf("create content: %v", err)
	}
	if _, err := repo.CreateTask(ctx, core.Task{
		Title:    "Call Lighthouse about renewal",
		Status:   core.TaskPending,
		Priority: core.PriorityMedium,
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	mustInvoice(t, repo, client.ID, 100000, core.NewDate(2026, 9, 1), core.InvoicePending)

	res, err := repo.Search(ctx, "lighthouse")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Clients) != 1 || len(res.ContentItems) != 1 || len(res.Tasks) != 1 || len(res.Invoices) != 1 {
		t.Errorf("search results = clients:%d content:%d tasks:%d invoices:%d, want 1 each",
			len(res.Clients), len(res.ContentItems), len(res.Tasks), len(res.Invoices))
	}

	empty, err := repo.Search(ctx, "   ")
	if err != nil {
		t.Fatalf("blank search: %v", err)
	}
	if len(empty.Clients)+len(empty.ContentItems)+len(empty.Tasks)+len(empty.Invoices) != 0 {
		t.Errorf("blank search returned results: %+v", empty)
	}
}
