package workflow

import (
	"errors"
	"fmt"

	"github.com/foxzi/groupsend/internal/template"
)

// Action is a user action on the wizard
type Action string

const (
	ActionConfirmRecipients Action = "confirm-recipients"
	ActionUseDraft          Action = "use-draft"
	ActionEditDraft         Action = "edit-draft"
	ActionAccept            Action = "accept"
	ActionAcceptAll         Action = "accept-all"
	ActionFinishPersonalize Action = "finish-personalize"
	ActionAuthorize         Action = "authorize"
)

// AllActions lists every action in wizard order
var AllActions = []Action{
	ActionConfirmRecipients,
	ActionUseDraft,
	ActionEditDraft,
	ActionAccept,
	ActionAcceptAll,
	ActionFinishPersonalize,
	ActionAuthorize,
}

var (
	// ErrUnavailable is returned when an action's precondition is not met.
	// State is left untouched.
	ErrUnavailable = errors.New("action unavailable")
	// ErrUnknownRecipient is returned for a recipient id not in the list
	ErrUnknownRecipient = errors.New("unknown recipient")
	// ErrInvalidSteps is returned for a step snapshot that is not the fixed sequence
	ErrInvalidSteps = errors.New("invalid step sequence")
)

func unavailable(a Action, reason string) error {
	return fmt.Errorf("%s: %s: %w", a, reason, ErrUnavailable)
}

// check returns nil when a can run now. Caller holds w.mu.
func (w *Workflow) check(a Action) error {
	if !w.data.Ready {
		return unavailable(a, "waiting for input")
	}

	switch a {
	case ActionConfirmRecipients:
		if w.steps[stepRecipients].Status != StatusInProgress {
			return unavailable(a, "recipients step is not in progress")
		}
		if len(w.recipients) == 0 {
			return unavailable(a, "no recipients")
		}
	case ActionUseDraft:
		if w.steps[stepDraft].Status != StatusInProgress {
			return unavailable(a, "draft step is not in progress")
		}
		if !w.draft.Complete() {
			return unavailable(a, "subject and body are required")
		}
	case ActionEditDraft:
		if w.steps[stepDraft].Status != StatusCompleted {
			return unavailable(a, "draft is not completed")
		}
	case ActionAccept:
		if len(w.messages) == 0 {
			return unavailable(a, "no messages")
		}
	case ActionAcceptAll:
		if len(w.messages) == 0 {
			return unavailable(a, "no messages")
		}
		if template.AllAccepted(w.messages) {
			return unavailable(a, "every message is already accepted")
		}
	case ActionFinishPersonalize:
		if w.steps[stepPersonalize].Status != StatusInProgress {
			return unavailable(a, "personalize step is not in progress")
		}
		if !template.AllAccepted(w.messages) {
			return unavailable(a, "not every message is accepted")
		}
	case ActionAuthorize:
		if w.steps[stepReview].Status != StatusInProgress {
			return unavailable(a, "review step is not in progress")
		}
		if len(w.messages) == 0 {
			return unavailable(a, "no messages")
		}
	default:
		return fmt.Errorf("unknown action %q: %w", a, ErrUnavailable)
	}
	return nil
}

// Available reports whether a can run now
func (w *Workflow) Available(a Action) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.check(a) == nil
}

// Actions returns the actions that can run now, in wizard order
func (w *Workflow) Actions() []Action {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.actions()
}

func (w *Workflow) actions() []Action {
	out := []Action{}
	for _, a := range AllActions {
		if w.check(a) == nil {
			out = append(out, a)
		}
	}
	return out
}
