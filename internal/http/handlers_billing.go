package http

import (
	"net/http"

	"agencydesk/internal/core"
)

type invoiceRequest struct {
	ClientID    int64              `json:"client_id"`
	Month       string             `json:"month"`
	Amount      string             `json:"amount"`
	AmountCents int64              `json:"amount_cents"`
	DueDate     core.Date          `json:"due_date"`
	Status      core.InvoiceStatus `json:"status"`
}

// requestAmount resolves a request's money fields: a decimal "amount"
// string ("1234.50" or "1234,50") when present, integer "amount_cents"
// otherwise.
func requestAmount(amount string, cents int64) (core.Money, error) {
	if amount == "" {
		return core.Money{Cents: cents}, nil
	}
	parsed, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: parsed}, nil
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		status := core.InvoiceStatus(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			writeError(w, r, http.StatusBadRequest, "invalid status filter")
			return
		}
		invoices, err := s.repo.ListInvoices(r.Context(), queryInt64(r, "client_id"), status)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
	case http.MethodPost:
		var req invoiceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		status := req.Status
		if status == "" {
			status = core.InvoicePending
		}
		amount, err := requestAmount(req.Amount, req.AmountCents)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		created, err := s.repo.CreateInvoice(r.Context(), core.Invoice{
			ClientID: req.ClientID,
			Month:    sanitizeInput(req.Month),
			Amount:   amount,
			DueDate:  req.DueDate,
			Status:   status,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

type paymentRequest struct {
	ClientID    int64     `json:"client_id"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	PaymentDate core.Date `json:"payment_date"`
	Mode        string    `json:"mode"`
	Reference   string    `json:"reference"`
	Notes       string    `json:"notes"`
}

// handleInvoiceSub serves GET /api/invoices/{id} (invoice with payments and
// balance) and GET/POST /api/invoices/{id}/payments.
func (s *Server) handleInvoiceSub(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/invoices/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		balance, err := s.payments.Balance(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, balance)
	case "payments":
		s.handleInvoicePayments(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleInvoicePayments(w http.ResponseWriter, r *http.Request, invoiceID int64) {
	switch r.Method {
	case http.MethodGet:
		payments, err := s.repo.ListPayments(r.Context(), invoiceID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payments)
	case http.MethodPost:
		var req paymentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		amount, err := requestAmount(req.Amount, req.AmountCents)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		recorded, err := s.payments.Record(r.Context(), core.Payment{
			ClientID:    req.ClientID,
			InvoiceID:   invoiceID,
			Amount:      amount,
			PaymentDate: req.PaymentDate,
			Mode:        sanitizeInput(req.Mode),
			Reference:   sanitizeInput(req.Reference),
			Notes:       sanitizeInput(req.Notes),
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, recorded)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
