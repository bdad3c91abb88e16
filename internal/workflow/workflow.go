// Package workflow drives the five-step group email wizard: recipients,
// shared draft, per-recipient personalization, review and send.
//
// A Workflow is safe for concurrent use. Local changes are reported
// through Hooks once the internal lock is released; snapshots applied
// with Source External are never reported back.
package workflow

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/foxzi/groupsend/internal/metrics"
	"github.com/foxzi/groupsend/internal/recipient"
	"github.com/foxzi/groupsend/internal/template"
)

// Workflow is the state of one wizard
type Workflow struct {
	engine *template.Engine
	hooks  Hooks

	mu         sync.Mutex
	data       FlowData
	steps      []Step
	suspended  int // step parked by EditDraft, -1 if none
	recipients []recipient.Record
	draft      template.Draft
	messages   []template.Message
	progress   Progress
	token      uint64
}

// notice carries the hook calls collected under the lock
type notice struct {
	steps      []Step
	recipients []recipient.Record
	sendCount  int
}

// New creates a workflow seeded from data
func New(engine *template.Engine, data FlowData, hooks Hooks) *Workflow {
	if engine == nil {
		engine = template.NewEngine()
	}
	w := &Workflow{
		engine:    engine,
		hooks:     hooks,
		steps:     InitialSteps(),
		suspended: -1,
	}
	w.applyFlowData(data)
	return w
}

// ApplyFlowData takes a new copy of the collaborator input. Recipients
// are parsed again when the raw text changed and the draft is seeded
// from the purpose while its body is empty. No hook fires.
func (w *Workflow) ApplyFlowData(data FlowData) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applyFlowData(data)
}

func (w *Workflow) applyFlowData(data FlowData) {
	prev := w.data
	w.data = data

	if data.RawRecipients != "" && (data.RawRecipients != prev.RawRecipients || w.recipients == nil) {
		w.recipients = recipient.Parse(data.RawRecipients)
		countParsed(w.recipients)
	}

	if data.Purpose != "" && w.draft.Body == "" {
		seed := template.DefaultDraft(data.Purpose, data.CommonContent)
		w.draft.Body = seed.Body
		if w.draft.Subject == "" {
			w.draft.Subject = seed.Subject
		}
	}

	w.rederive()
}

func countParsed(records []recipient.Record) {
	ready := recipient.ReadyCount(records)
	metrics.AddRecipientsParsed(strings.ToLower(string(recipient.StatusReady)), ready)
	metrics.AddRecipientsParsed(strings.ToLower(string(recipient.StatusMissing)), len(records)-ready)
}

// rederive recomputes the messages. Caller holds w.mu.
func (w *Workflow) rederive() {
	w.messages = w.engine.Derive(w.recipients, w.draft, w.messages)
}

// Apply replaces the steps or the recipients. Local updates are reported
// through the matching hook; External ones are applied silently.
func (w *Workflow) Apply(u Update) error {
	var n notice

	switch u.Kind {
	case KindSteps:
		if err := ValidateSteps(u.Steps); err != nil {
			return err
		}
		w.mu.Lock()
		w.steps = cloneSteps(u.Steps)
		if w.suspended >= 0 && (w.steps[w.suspended].Status != StatusPending || w.steps[stepDraft].Status != StatusInProgress) {
			w.suspended = -1
		}
		if u.Source == Local {
			n.steps = cloneSteps(w.steps)
		}
		w.mu.Unlock()

	case KindRecipients:
		records := recipient.Clone(u.Recipients)
		if records == nil {
			records = []recipient.Record{}
		}
		for i := range records {
			if records[i].ID == "" {
				records[i].ID = uuid.New().String()
			}
			records[i].Status = recipient.StatusFor(records[i].Name, records[i].Email)
		}
		w.mu.Lock()
		w.recipients = records
		w.rederive()
		if u.Source == Local {
			n.recipients = recipient.Clone(w.recipients)
		}
		w.mu.Unlock()

	default:
		return fmt.Errorf("unknown update kind %d", u.Kind)
	}

	w.notify(n)
	return nil
}

// EditRecipient applies a partial edit to one recipient and regenerates
// the messages that are not accepted yet.
func (w *Workflow) EditRecipient(id string, p recipient.Patch) error {
	w.mu.Lock()

	if !w.data.Ready {
		w.mu.Unlock()
		return fmt.Errorf("edit recipient: waiting for input: %w", ErrUnavailable)
	}

	idx := w.recipientIndex(id)
	if idx < 0 {
		w.mu.Unlock()
		return fmt.Errorf("edit recipient %q: %w", id, ErrUnknownRecipient)
	}

	w.recipients[idx].Apply(p)
	w.rederive()
	n := notice{recipients: recipient.Clone(w.recipients)}
	w.mu.Unlock()

	w.notify(n)
	return nil
}

// SetDraft replaces the shared draft and regenerates the messages that
// are not accepted yet.
func (w *Workflow) SetDraft(d template.Draft) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.data.Ready {
		return fmt.Errorf("set draft: waiting for input: %w", ErrUnavailable)
	}

	w.draft = d
	w.rederive()
	return nil
}

// ConfirmRecipients completes the recipients step
func (w *Workflow) ConfirmRecipients() error {
	return w.advance(ActionConfirmRecipients, stepRecipients)
}

// UseDraft completes the draft step. A step parked by EditDraft resumes.
func (w *Workflow) UseDraft() error {
	return w.advance(ActionUseDraft, stepDraft)
}

// FinishPersonalize completes the personalize step once every message is accepted
func (w *Workflow) FinishPersonalize() error {
	return w.advance(ActionFinishPersonalize, stepPersonalize)
}

// Authorize completes the review step, starts the send step and asks the
// collaborator to authorize sending every message.
func (w *Workflow) Authorize() error {
	w.mu.Lock()
	if err := w.check(ActionAuthorize); err != nil {
		w.mu.Unlock()
		return err
	}
	w.complete(stepReview)
	n := notice{
		steps:     cloneSteps(w.steps),
		sendCount: len(w.messages),
	}
	w.mu.Unlock()

	metrics.IncSendRequests()
	w.notify(n)
	return nil
}

func (w *Workflow) advance(a Action, step int) error {
	w.mu.Lock()
	if err := w.check(a); err != nil {
		w.mu.Unlock()
		return err
	}
	w.complete(step)
	n := notice{steps: cloneSteps(w.steps)}
	w.mu.Unlock()

	w.notify(n)
	return nil
}

// EditDraft reopens the completed draft step. The step in progress, if
// any, is parked as pending until the draft is used again. Completed
// steps are left alone.
func (w *Workflow) EditDraft() error {
	w.mu.Lock()
	if err := w.check(ActionEditDraft); err != nil {
		w.mu.Unlock()
		return err
	}

	if cur := Current(w.steps); cur >= 0 {
		w.setStatus(cur, StatusPending)
		w.suspended = cur
	}
	w.setStatus(stepDraft, StatusInProgress)
	n := notice{steps: cloneSteps(w.steps)}
	w.mu.Unlock()

	w.notify(n)
	return nil
}

// Accept marks the message of one recipient as accepted
func (w *Workflow) Accept(recipientID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.check(ActionAccept); err != nil {
		return err
	}
	for i := range w.messages {
		if w.messages[i].RecipientID == recipientID {
			w.messages[i].Accepted = true
			return nil
		}
	}
	return fmt.Errorf("accept %q: %w", recipientID, ErrUnknownRecipient)
}

// AcceptAll marks every message as accepted
func (w *Workflow) AcceptAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.check(ActionAcceptAll); err != nil {
		return err
	}
	for i := range w.messages {
		w.messages[i].Accepted = true
	}
	return nil
}

// BeginSend resets the send progress for a new run over every message.
// It fails once sending is completed or before the review is authorized.
func (w *Workflow) BeginSend() (Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.steps[stepReview].Status != StatusCompleted {
		return Ticket{}, fmt.Errorf("send: review is not authorized: %w", ErrUnavailable)
	}
	if w.steps[stepSend].Status == StatusCompleted {
		return Ticket{}, fmt.Errorf("send: already completed: %w", ErrUnavailable)
	}

	w.token++
	total := len(w.messages)
	w.progress = Progress{Current: 0, Total: total}
	return Ticket{Token: w.token, Total: total}, nil
}

// RecordProgress stores the position of the run identified by t.
// It returns false when t is stale.
func (w *Workflow) RecordProgress(t Ticket, current int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t.Token != w.token || w.progress.Done {
		return false
	}
	if current > w.progress.Total {
		current = w.progress.Total
	}
	w.progress.Current = current
	return true
}

// CompleteSend marks the run identified by t as done and completes the
// send step. It returns false when t is stale or the step is already
// completed, so the step completes at most once.
func (w *Workflow) CompleteSend(t Ticket) bool {
	w.mu.Lock()
	if t.Token != w.token || w.steps[stepSend].Status == StatusCompleted {
		w.mu.Unlock()
		return false
	}

	w.progress.Current = w.progress.Total
	w.progress.Done = true
	w.setStatus(stepSend, StatusCompleted)
	if w.suspended == stepSend {
		w.suspended = -1
	}
	n := notice{steps: cloneSteps(w.steps)}
	w.mu.Unlock()

	w.notify(n)
	return true
}

// Steps returns a copy of the steps
func (w *Workflow) Steps() []Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneSteps(w.steps)
}

// Recipients returns a copy of the recipients
func (w *Workflow) Recipients() []recipient.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return recipient.Clone(w.recipients)
}

// Messages returns a copy of the personalized messages
func (w *Workflow) Messages() []template.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return template.CloneMessages(w.messages)
}

// Draft returns the shared draft
func (w *Workflow) Draft() template.Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Progress returns the send progress
func (w *Workflow) Progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.progress
}

// complete marks step done and moves the next pending step, or the
// parked one, in progress. Caller holds w.mu.
func (w *Workflow) complete(step int) {
	w.setStatus(step, StatusCompleted)

	next := step + 1
	if w.suspended >= 0 {
		next = w.suspended
		w.suspended = -1
	}
	if next < stepCount && w.steps[next].Status == StatusPending {
		w.setStatus(next, StatusInProgress)
	}
}

func (w *Workflow) setStatus(step int, status StepStatus) {
	if w.steps[step].Status == status {
		return
	}
	w.steps[step].Status = status
	metrics.IncStepTransition(string(w.steps[step].ID), string(status))
}

func (w *Workflow) recipientIndex(id string) int {
	for i := range w.recipients {
		if w.recipients[i].ID == id {
			return i
		}
	}
	return -1
}

func (w *Workflow) notify(n notice) {
	if n.steps != nil && w.hooks.OnStepsUpdate != nil {
		w.hooks.OnStepsUpdate(n.steps)
	}
	if n.recipients != nil && w.hooks.OnRecipientsUpdate != nil {
		w.hooks.OnRecipientsUpdate(n.recipients)
	}
	if n.sendCount > 0 && w.hooks.OnRequestSend != nil {
		w.hooks.OnRequestSend(n.sendCount)
	}
}
