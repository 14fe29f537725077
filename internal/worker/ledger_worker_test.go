package worker

import (
	"context"
	"errors"
	"testing"

	"agencydesk/internal/amqp"
	"agencydesk/internal/core"
	"agencydesk/internal/ledger"
	"agencydesk/internal/ledger/memory"
	"agencydesk/internal/storage"
)

type fakeExportStore struct {
	payments map[int64]*storage.ExportablePayment
	errored  []int64
}

func newFakeExportStore(eps ...storage.ExportablePayment) *fakeExportStore {
	s := &fakeExportStore{payments: map[int64]*storage.ExportablePayment{}}
	for i := range eps {
		ep := eps[i]
		s.payments[ep.Payment.ID] = &ep
	}
	return s
}

func (s *fakeExportStore) GetPaymentForExport(ctx context.Context, id int64) (storage.ExportablePayment, error) {
	ep, ok := s.payments[id]
	if !ok {
		return storage.ExportablePayment{}, core.ErrNotFound
	}
	return *ep, nil
}

func (s *fakeExportStore) ListUnexportedPayments(ctx context.Context, limit int) ([]storage.ExportablePayment, error) {
	var out []storage.ExportablePayment
	for _, ep := range s.payments {
		if !ep.Exported && len(out) < limit {
			out = append(out, *ep)
		}
	}
	return out, nil
}

func (s *fakeExportStore) MarkPaymentExported(ctx context.Context, id int64) error {
	ep, ok := s.payments[id]
	if !ok {
		return core.ErrNotFound
	}
	ep.Exported = true
	return nil
}

func (s *fakeExportStore) MarkPaymentExportError(ctx context.Context, id int64) error {
	s.errored = append(s.errored, id)
	return nil
}

type failingAppender struct{}

func (failingAppender) Append(ctx context.Context, e ledger.Entry) (string, error) {
	return "", errors.New("sheet unavailable")
}

func exportable(id int64, client string) storage.ExportablePayment {
	return storage.ExportablePayment{
		Payment: core.Payment{
			ID:          id,
			ClientID:    1,
			InvoiceID:   1,
			Amount:      core.Money{Cents: 100000},
			PaymentDate: core.NewDate(2026, 8, 28),
			Mode:        "bank_transfer",
			Reference:   "ref-1",
		},
		ClientName:   client,
		InvoiceMonth: "2026-08",
	}
}

func TestHandlePaymentMessageExports(t *testing.T) {
	store := newFakeExportStore(exportable(1, "Acme"))
	sink := memory.New()
	w := NewLedgerWorker(store, sink, 10)

	msg := &amqp.PaymentRecordedMessage{PaymentID: 1, InvoiceID: 1}
	if err := w.HandlePaymentMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	entries := sink.Entries()
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].ClientName != "Acme" || entries[0].Amount.Cents != 100000 {
		t.Errorf("entry = %+v, want Acme with 100000 cents", entries[0])
	}
	if !store.payments[1].Exported {
		t.Error("payment should be marked exported")
	}
}

func TestHandlePaymentMessageSkipsExported(t *testing.T) {
	ep := exportable(1, "Acme")
	ep.Exported = true
	store := newFakeExportStore(ep)
	sink := memory.New()
	w := NewLedgerWorker(store, sink, 10)

	msg := &amqp.PaymentRecordedMessage{PaymentID: 1, InvoiceID: 1}
	if err := w.HandlePaymentMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if len(sink.Entries()) != 0 {
		t.Error("already-exported payment must not be appended again")
	}
}

func TestHandlePaymentMessageMissingPayment(t *testing.T) {
	w := NewLedgerWorker(newFakeExportStore(), memory.New(), 10)
	msg := &amqp.PaymentRecordedMessage{PaymentID: 404, InvoiceID: 1}
	if err := w.HandlePaymentMessage(context.Background(), msg); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestProcessPendingPayments(t *testing.T) {
	exportedAlready := exportable(2, "Beta")
	exportedAlready.Exported = true
	store := newFakeExportStore(exportable(1, "Acme"), exportedAlready)
	sink := memory.New()
	w := NewLedgerWorker(store, sink, 10)

	if err := w.ProcessPendingPayments(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	entries := sink.Entries()
	if len(entries) != 1 || entries[0].ClientName != "Acme" {
		t.Errorf("entries = %+v, want only Acme", entries)
	}
}

func TestProcessPendingMarksFailures(t *testing.T) {
	store := newFakeExportStore(exportable(1, "Acme"))
	w := NewLedgerWorker(store, failingAppender{}, 10)

	if err := w.ProcessPendingPayments(context.Background()); err != nil {
		t.Fatalf("process pending should swallow per-row failures: %v", err)
	}
	if len(store.errored) != 1 || store.errored[0] != 1 {
		t.Errorf("errored = %v, want [1]", store.errored)
	}
	if store.payments[1].Exported {
		t.Error("failed payment must not be marked exported")
	}
}
