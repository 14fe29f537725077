package http

import (
	"net/http"

	"agencydesk/internal/core"
)

type taskRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ClientID    int64             `json:"client_id"`
	AssigneeID  int64             `json:"assignee_id"`
	Status      core.TaskStatus   `json:"status"`
	Priority    core.TaskPriority `json:"priority"`
	DueDate     core.Date         `json:"due_date"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		status := core.TaskStatus(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			writeError(w, r, http.StatusBadRequest, "invalid status filter")
			return
		}
		tasks, err := s.repo.ListTasks(r.Context(), status, queryInt64(r, "assignee_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		var req taskRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		status := req.Status
		if status == "" {
			status = core.TaskPending
		}
		priority := req.Priority
		if priority == "" {
			priority = core.PriorityMedium
		}
		created, err := s.repo.CreateTask(r.Context(), core.Task{
			Title:       sanitizeInput(req.Title),
			Description: sanitizeInput(req.Description),
			ClientID:    req.ClientID,
			AssigneeID:  req.AssigneeID,
			Status:      status,
			Priority:    priority,
			DueDate:     req.DueDate,
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

// handleTaskStatus serves PUT /api/tasks/{id}/status.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/tasks/")
	if !ok || sub != "status" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}

	var req statusUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.repo.UpdateTaskStatus(r.Context(), id, core.TaskStatus(req.Status)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

type projectionRequest struct {
	PeriodType         core.PeriodType `json:"period_type"`
	StartDate          core.Date       `json:"start_date"`
	EndDate            core.Date       `json:"end_date"`
	TargetRevenueCents int64           `json:"target_revenue_cents"`
	TargetClients      int             `json:"target_clients"`
	Description        string          `json:"description"`
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projections, err := s.repo.ListProjections(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, projections)
	case http.MethodPost:
		var req projectionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		periodType := req.PeriodType
		if periodType == "" {
			periodType = core.PeriodMonthly
		}
		created, err := s.repo.CreateProjection(r.Context(), core.Projection{
			PeriodType:    periodType,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			TargetRevenue: core.Money{Cents: req.TargetRevenueCents},
			TargetClients: req.TargetClients,
			Description:   sanitizeInput(req.Description),
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

// handleProjectionProgress returns achieved-vs-target for the active
// period, or 404 when no projection covers the reference day.
func (s *Server) handleProjectionProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	day, ok := today(w, r)
	if !ok {
		return
	}
	progress, err := s.projections.Progress(r.Context(), day)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if progress == nil {
		writeError(w, r, http.StatusNotFound, "no active projection")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
