package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/groupsend/internal/recipient"
	"github.com/foxzi/groupsend/internal/session"
	"github.com/foxzi/groupsend/internal/template"
	"github.com/foxzi/groupsend/internal/workflow"
)

// SessionSummary is an entry of GET /sessions
type SessionSummary struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	Purpose    string            `json:"purpose"`
	Recipients int               `json:"recipients"`
	Completed  int               `json:"completed"`
	SendState  session.SendState `json:"send_state"`
}

// StepsRequest is the request body for PUT /sessions/{id}/steps
type StepsRequest struct {
	Steps []workflow.Step `json:"steps"`
}

// RecipientsRequest is the request body for PUT /sessions/{id}/recipients
type RecipientsRequest struct {
	Recipients []recipient.Record `json:"recipients"`
}

// SendRequest is the request body for POST /sessions/{id}/send.
// A zero AuthorizedAt means now.
type SendRequest struct {
	AuthorizedAt time.Time `json:"authorized_at"`
}

// handleCreateSession handles POST /api/v1/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var data workflow.FlowData
	if !s.decode(w, r, &data) {
		return
	}

	sess, err := s.sessions.Create(data)
	if err != nil {
		s.sendFailure(w, err)
		return
	}

	s.sendJSON(w, http.StatusCreated, sess.View())
}

// handleListSessions handles GET /api/v1/sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List()
	out := make([]SessionSummary, len(list))
	for i, sess := range list {
		snap := sess.Workflow().Snapshot()
		out[i] = SessionSummary{
			ID:         sess.ID(),
			CreatedAt:  sess.CreatedAt(),
			Purpose:    snap.Purpose,
			Recipients: len(snap.Recipients),
			Completed:  snap.Completed,
			SendState:  sess.SendState(),
		}
	}
	s.sendJSON(w, http.StatusOK, out)
}

// handleGetSession handles GET /api/v1/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.sendJSON(w, http.StatusOK, sess.View())
}

// handleDeleteSession handles DELETE /api/v1/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		s.sendFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFlowData handles PUT /api/v1/sessions/{id}/flow
func (s *Server) handleFlowData(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var data workflow.FlowData
	if !s.decode(w, r, &data) {
		return
	}

	sess.Workflow().ApplyFlowData(data)
	s.sendJSON(w, http.StatusOK, sess.View())
}

// handleReplaceSteps handles PUT /api/v1/sessions/{id}/steps.
// The steps come from a collaborator and are not reported back.
func (s *Server) handleReplaceSteps(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req StepsRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := sess.Workflow().Apply(workflow.Update{
		Source: workflow.External,
		Kind:   workflow.KindSteps,
		Steps:  req.Steps,
	})
	s.respond(w, sess, err)
}

// handleReplaceRecipients handles PUT /api/v1/sessions/{id}/recipients.
// The recipients come from a collaborator and are not reported back.
func (s *Server) handleReplaceRecipients(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req RecipientsRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := sess.Workflow().Apply(workflow.Update{
		Source:     workflow.External,
		Kind:       workflow.KindRecipients,
		Recipients: req.Recipients,
	})
	s.respond(w, sess, err)
}

// handleEditRecipient handles PATCH /api/v1/sessions/{id}/recipients/{rid}
func (s *Server) handleEditRecipient(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var patch recipient.Patch
	if !s.decode(w, r, &patch) {
		return
	}

	s.respond(w, sess, sess.Workflow().EditRecipient(chi.URLParam(r, "rid"), patch))
}

// handleSetDraft handles PUT /api/v1/sessions/{id}/draft
func (s *Server) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var d template.Draft
	if !s.decode(w, r, &d) {
		return
	}

	s.respond(w, sess, sess.Workflow().SetDraft(d))
}

// handleConfirmRecipients handles POST /api/v1/sessions/{id}/recipients/confirm
func (s *Server) handleConfirmRecipients(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*workflow.Workflow).ConfirmRecipients)
}

// handleUseDraft handles POST /api/v1/sessions/{id}/draft/use
func (s *Server) handleUseDraft(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*workflow.Workflow).UseDraft)
}

// handleEditDraft handles POST /api/v1/sessions/{id}/draft/edit
func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*workflow.Workflow).EditDraft)
}

// handleAccept handles POST /api/v1/sessions/{id}/messages/{rid}/accept
func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	s.action(w, r, func(wf *workflow.Workflow) error {
		return wf.Accept(rid)
	})
}

// handleAcceptAll handles POST /api/v1/sessions/{id}/messages/accept-all
func (s *Server) handleAcceptAll(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*workflow.Workflow).AcceptAll)
}

// handleFinishPersonalize handles POST /api/v1/sessions/{id}/personalize/done
func (s *Server) handleFinishPersonalize(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*workflow.Workflow).FinishPersonalize)
}

// handleAuthorize handles POST /api/v1/sessions/{id}/authorize
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*workflow.Workflow).Authorize)
}

// handleSend handles POST /api/v1/sessions/{id}/send, the authorization
// signal that starts the simulated send.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req SendRequest
	if r.ContentLength != 0 {
		if !s.decode(w, r, &req) {
			return
		}
	}
	at := req.AuthorizedAt
	if at.IsZero() {
		at = time.Now()
	}

	if err := sess.Approve(at); err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusAccepted, sess.View())
}

// session looks up the session named in the URL
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.sendFailure(w, err)
		return nil, false
	}
	return sess, true
}

// action runs a workflow action on the session named in the URL
func (s *Server) action(w http.ResponseWriter, r *http.Request, fn func(*workflow.Workflow) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, sess, fn(sess.Workflow()))
}

// respond writes the session view, or the error if err is set
func (s *Server) respond(w http.ResponseWriter, sess *session.Session, err error) {
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, sess.View())
}
