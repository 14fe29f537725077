package http

import (
	"net/http"

	"agencydesk/internal/core"
)

type contentRequest struct {
	ClientID    int64              `json:"client_id"`
	Date        core.Date          `json:"date"`
	Platform    string             `json:"platform"`
	ContentType string             `json:"content_type"`
	Title       string             `json:"title"`
	Caption     string             `json:"caption"`
	Status      core.ContentStatus `json:"status"`
	PostedURL   string             `json:"posted_url"`
	Remarks     string             `json:"remarks"`
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listContent(w, r)
	case http.MethodPost:
		var req contentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		status := req.Status
		if status == "" {
			status = core.ContentPlanned
		}
		created, err := s.repo.CreateContentItem(r.Context(), core.ContentItem{
			ClientID:    req.ClientID,
			Date:        req.Date,
			Platform:    sanitizeInput(req.Platform),
			ContentType: sanitizeInput(req.ContentType),
			Title:       sanitizeInput(req.Title),
			Caption:     sanitizeInput(req.Caption),
			Status:      status,
			PostedURL:   sanitizeInput(req.PostedURL),
			Remarks:     sanitizeInput(req.Remarks),
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

func (s *Server) listContent(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		cs := core.ContentStatus(status)
		if !cs.Valid() {
			writeError(w, r, http.StatusBadRequest, "invalid status filter")
			return
		}
		items, err := s.repo.ListContentByStatus(r.Context(), cs)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	day, ok := today(w, r)
	if !ok {
		return
	}
	from, ok := queryDate(w, r, "from", day.AddDays(-weekWindowDays))
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to", day.AddDays(weekWindowDays))
	if !ok {
		return
	}
	items, err := s.repo.ListContentBetween(r.Context(), from, to, queryInt64(r, "client_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

const weekWindowDays = 3

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// handleContentStatus serves PUT /api/content/{id}/status.
func (s *Server) handleContentStatus(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/content/")
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
	if err := s.repo.UpdateContentStatus(r.Context(), id, core.ContentStatus(req.Status)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

type effortRequest struct {
	ClientID    int64     `json:"client_id"`
	Date        core.Date `json:"date"`
	PostsCount  int       `json:"posts_count"`
	ReelsCount  int       `json:"reels_count"`
	TimeMinutes int       `json:"time_minutes"`
	Notes       string    `json:"notes"`
}

// handleEfforts serves the effort summary on GET and records a log on POST.
func (s *Server) handleEfforts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		day, ok := today(w, r)
		if !ok {
			return
		}
		from, ok := queryDate(w, r, "from", day.AddDays(-effortWindowDays))
		if !ok {
			return
		}
		to, ok := queryDate(w, r, "to", day)
		if !ok {
			return
		}
		summary, err := s.efforts.Summary(r.Context(), from, to, queryInt64(r, "client_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case http.MethodPost:
		var req effortRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		created, err := s.repo.CreateEffortLog(r.Context(), core.EffortLog{
			ClientID:    req.ClientID,
			Date:        req.Date,
			PostsCount:  req.PostsCount,
			ReelsCount:  req.ReelsCount,
			TimeMinutes: req.TimeMinutes,
			Notes:       sanitizeInput(req.Notes),
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

const effortWindowDays = 30
