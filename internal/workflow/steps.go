package workflow

// StepStatus is the lifecycle state of a step
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in-progress"
	StatusCompleted  StepStatus = "completed"
)

// StepID identifies a step
type StepID string

const (
	StepDefineRecipients StepID = "define-recipients"
	StepDraftBase        StepID = "draft-base"
	StepPersonalize      StepID = "personalize"
	StepReview           StepID = "review"
	StepSendEmails       StepID = "send-emails"
)

// Step positions in the fixed sequence
const (
	stepRecipients = iota
	stepDraft
	stepPersonalize
	stepReview
	stepSend
	stepCount
)

// Step is one stage of the wizard
type Step struct {
	ID     StepID     `json:"id"`
	Title  string     `json:"title"`
	Status StepStatus `json:"status"`
}

var stepDefs = [stepCount]Step{
	{ID: StepDefineRecipients, Title: "Define recipients"},
	{ID: StepDraftBase, Title: "Draft base email"},
	{ID: StepPersonalize, Title: "Personalize per client"},
	{ID: StepReview, Title: "Review & approve"},
	{ID: StepSendEmails, Title: "Send emails"},
}

// InitialSteps returns the five steps with the first one in progress
func InitialSteps() []Step {
	steps := make([]Step, stepCount)
	for i, def := range stepDefs {
		steps[i] = def
		steps[i].Status = StatusPending
	}
	steps[stepRecipients].Status = StatusInProgress
	return steps
}

// CompletedCount returns how many steps are completed
func CompletedCount(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// Current returns the index of the step in progress, or -1
func Current(steps []Step) int {
	for i, s := range steps {
		if s.Status == StatusInProgress {
			return i
		}
	}
	return -1
}

// ValidateSteps checks that steps is the fixed sequence with at most one
// step in progress.
func ValidateSteps(steps []Step) error {
	if len(steps) != stepCount {
		return ErrInvalidSteps
	}
	inProgress := 0
	for i, s := range steps {
		if s.ID != stepDefs[i].ID {
			return ErrInvalidSteps
		}
		switch s.Status {
		case StatusPending, StatusCompleted:
		case StatusInProgress:
			inProgress++
		default:
			return ErrInvalidSteps
		}
	}
	if inProgress > 1 {
		return ErrInvalidSteps
	}
	return nil
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}
