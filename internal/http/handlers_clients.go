package http

import (
	"net/http"

	"agencydesk/internal/core"
)

type clientRequest struct {
	Name                 string            `json:"name"`
	BrandName            string            `json:"brand_name"`
	StartDate            core.Date         `json:"start_date"`
	MonthlyRetainerCents int64             `json:"monthly_retainer_cents"`
	Status               core.ClientStatus `json:"status"`
	Notes                string            `json:"notes"`
}

func (req clientRequest) toClient(id int64) core.Client {
	status := req.Status
	if status == "" {
		status = core.ClientActive
	}
	return core.Client{
		ID:              id,
		Name:            sanitizeInput(req.Name),
		BrandName:       sanitizeInput(req.BrandName),
		StartDate:       req.StartDate,
		MonthlyRetainer: core.Money{Cents: req.MonthlyRetainerCents},
		Status:          status,
		Notes:           sanitizeInput(req.Notes),
	}
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		clients, err := s.repo.ListClients(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, clients)
	case http.MethodPost:
		var req clientRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		created, err := s.repo.CreateClient(r.Context(), req.toClient(0))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleClientByID(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/clients/")
	if !ok || sub != "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		client, err := s.repo.GetClient(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, client)
	case http.MethodPut:
		var req clientRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		updated := req.toClient(id)
		if err := s.repo.UpdateClient(r.Context(), updated); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		employees, err := s.repo.ListEmployees(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, employees)
	case http.MethodPost:
		var e core.Employee
		if !decodeJSON(w, r, &e) {
			return
		}
		e.ID = 0
		e.Name = sanitizeInput(e.Name)
		if e.Status == "" {
			e.Status = "active"
		}
		created, err := s.repo.CreateEmployee(r.Context(), e)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
