package template

// Draft is the shared subject/body pair every message is personalized from
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Complete reports whether both subject and body are present
func (d Draft) Complete() bool {
	return d.Subject != "" && d.Body != ""
}

// Message is a draft personalized for one recipient
type Message struct {
	RecipientID string `json:"recipient_id"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Accepted    bool   `json:"accepted"`
}

// Placeholder tokens recognized in a body
const (
	TokenFirstName   = "{{first_name}}"
	TokenCompanyName = "{{company_name}}"
	TokenYourName    = "{{your_name}}"
)

// Substitution values used when the recipient has no data
const (
	SenderName      = "Your Name"
	FallbackName    = "there"
	FallbackCompany = "your company"
)

// SubjectPurposeLimit is how many characters of the purpose go into the
// default subject before it is cut with an ellipsis.
const SubjectPurposeLimit = 30

// placeholderRole is used when no purpose was given
const placeholderRole = "[Role/position you are applying for]"
