package workflow

import "github.com/foxzi/groupsend/internal/recipient"

// Source tells where a change came from
type Source int

const (
	// Local changes are made by the wizard itself and are reported through Hooks
	Local Source = iota
	// External changes are snapshots pushed in by a collaborator and are
	// never reported back
	External
)

func (s Source) String() string {
	if s == External {
		return "external"
	}
	return "local"
}

// Kind is the payload carried by an Update
type Kind int

const (
	KindSteps Kind = iota
	KindRecipients
)

// Update replaces the steps or the recipients of a workflow
type Update struct {
	Source     Source
	Kind       Kind
	Steps      []Step
	Recipients []recipient.Record
}

// Hooks report local changes upward. Any of them may be nil.
// They are called without the workflow lock held.
type Hooks struct {
	OnStepsUpdate      func([]Step)
	OnRecipientsUpdate func([]recipient.Record)
	OnRequestSend      func(count int)
}

// FlowData is the input a collaborator supplies to the wizard
type FlowData struct {
	Purpose        string `json:"purpose" yaml:"purpose"`
	RecipientCount int    `json:"recipient_count" yaml:"recipient_count"`
	RawRecipients  string `json:"raw_recipients" yaml:"raw_recipients"`
	Tone           string `json:"tone" yaml:"tone"`
	CommonContent  string `json:"common_content" yaml:"common_content"`
	Ready          bool   `json:"ready" yaml:"ready"`
}

// Progress is the state of the simulated send
type Progress struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	Done    bool `json:"done"`
}

// Ticket identifies one send run. Progress reported with a stale ticket
// is ignored.
type Ticket struct {
	Token uint64
	Total int
}
