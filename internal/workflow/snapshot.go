package workflow

import (
	"github.com/foxzi/groupsend/internal/recipient"
	"github.com/foxzi/groupsend/internal/template"
)

// MessageState is a personalized message with its delivery flag
type MessageState struct {
	template.Message
	Sent bool `json:"sent"`
}

// Snapshot is a point-in-time copy of a workflow for rendering
type Snapshot struct {
	Purpose         string             `json:"purpose"`
	Tone            string             `json:"tone,omitempty"`
	Ready           bool               `json:"ready"`
	Steps           []Step             `json:"steps"`
	Completed       int                `json:"completed"`
	Recipients      []recipient.Record `json:"recipients"`
	ReadyRecipients int                `json:"ready_recipients"`
	Draft           template.Draft     `json:"draft"`
	Messages        []MessageState     `json:"messages"`
	AllAccepted     bool               `json:"all_accepted"`
	Progress        Progress           `json:"progress"`
	Actions         []Action           `json:"actions"`
}

// Snapshot returns a copy of the whole state
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	recipients := recipient.Clone(w.recipients)
	if recipients == nil {
		recipients = []recipient.Record{}
	}

	messages := make([]MessageState, len(w.messages))
	for i, m := range w.messages {
		messages[i] = MessageState{
			Message: m,
			Sent:    w.progress.Done || w.progress.Current > i,
		}
	}

	return Snapshot{
		Purpose:         w.data.Purpose,
		Tone:            w.data.Tone,
		Ready:           w.data.Ready,
		Steps:           cloneSteps(w.steps),
		Completed:       CompletedCount(w.steps),
		Recipients:      recipients,
		ReadyRecipients: recipient.ReadyCount(w.recipients),
		Draft:           w.draft,
		Messages:        messages,
		AllAccepted:     template.AllAccepted(w.messages),
		Progress:        w.progress,
		Actions:         w.actions(),
	}
}
