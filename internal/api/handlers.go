package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/foxzi/groupsend/internal/metrics"
	"github.com/foxzi/groupsend/internal/recipient"
	"github.com/foxzi/groupsend/internal/session"
	"github.com/foxzi/groupsend/internal/template"
	"github.com/foxzi/groupsend/internal/workflow"
)

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ParseRequest is the request body for POST /recipients/parse
type ParseRequest struct {
	Text string `json:"text"`
}

// ParseResponse is the response for POST /recipients/parse
type ParseResponse struct {
	Recipients []recipient.Record `json:"recipients"`
	Total      int                `json:"total"`
	Ready      int                `json:"ready"`
}

// PreviewRequest is the request body for POST /preview.
// Without a subject or body the default draft for Purpose is used.
type PreviewRequest struct {
	Purpose       string `json:"purpose"`
	CommonContent string `json:"common_content"`
	RawRecipients string `json:"raw_recipients"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
}

// PreviewResponse is the response for POST /preview
type PreviewResponse struct {
	Draft        template.Draft     `json:"draft"`
	Recipients   []recipient.Record `json:"recipients"`
	Messages     []template.Message `json:"messages"`
	Placeholders []string           `json:"placeholders"`
	Unknown      []string           `json:"unknown_placeholders,omitempty"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Uptime:   time.Since(s.startTime).String(),
		Sessions: s.sessions.Count(),
	})
}

// handleParseRecipients handles POST /api/v1/recipients/parse
func (s *Server) handleParseRecipients(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !s.decode(w, r, &req) {
		return
	}

	records := recipient.Parse(req.Text)
	ready := recipient.ReadyCount(records)
	metrics.AddRecipientsParsed("ready", ready)
	metrics.AddRecipientsParsed("missing", len(records)-ready)

	s.sendJSON(w, http.StatusOK, ParseResponse{
		Recipients: records,
		Total:      len(records),
		Ready:      ready,
	})
}

// handlePreview handles POST /api/v1/preview
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !s.decode(w, r, &req) {
		return
	}

	draft := template.Draft{Subject: req.Subject, Body: req.Body}
	if draft.Body == "" || draft.Subject == "" {
		seed := template.DefaultDraft(req.Purpose, req.CommonContent)
		if draft.Body == "" {
			draft.Body = seed.Body
		}
		if draft.Subject == "" {
			draft.Subject = seed.Subject
		}
	}

	records := recipient.Parse(req.RawRecipients)
	messages := s.engine.Derive(records, draft, nil)
	if messages == nil {
		messages = []template.Message{}
	}

	s.sendJSON(w, http.StatusOK, PreviewResponse{
		Draft:        draft,
		Recipients:   records,
		Messages:     messages,
		Placeholders: s.engine.Placeholders(draft.Subject + "\n" + draft.Body),
		Unknown:      s.engine.Unknown(draft.Body),
	})
}

// decode reads a JSON request body into v. On failure it writes a 400
// and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// sendFailure maps a domain error to an HTTP status
func (s *Server) sendFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, workflow.ErrUnknownRecipient):
		s.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrUnavailable):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrInvalidSteps):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrLimitReached):
		s.sendError(w, http.StatusTooManyRequests, "Session limit reached")
	default:
		s.logger.Error("request failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Internal error")
	}
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
