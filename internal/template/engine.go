package template

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/foxzi/groupsend/internal/recipient"
)

var (
	firstNamePattern   = regexp.MustCompile(`(?i)\{\{first_name\}\}`)
	companyNamePattern = regexp.MustCompile(`(?i)\{\{company_name\}\}`)
	yourNamePattern    = regexp.MustCompile(`(?i)\{\{your_name\}\}`)

	// subjectPattern matches any {{...}} token, shortest first
	subjectPattern = regexp.MustCompile(`\{\{.*?\}\}`)

	// varPattern lists tokens for previews: {{variable_name}}
	varPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)
)

// Engine personalizes drafts for recipients
type Engine struct{}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{}
}

// Personalize renders the draft for one recipient. The result is not accepted.
func (e *Engine) Personalize(d Draft, r recipient.Record) Message {
	return Message{
		RecipientID: r.ID,
		Name:        r.Name,
		Company:     r.Company,
		Subject:     e.RenderSubject(d.Subject, r),
		Body:        e.RenderBody(d.Body, r),
	}
}

// RenderBody replaces the three body tokens, case-insensitively and
// everywhere they occur. Other tokens are left as is.
func (e *Engine) RenderBody(body string, r recipient.Record) string {
	if body == "" {
		return body
	}

	name := r.Name
	if name == "" {
		name = FallbackName
	}
	company := r.Company
	if company == "" {
		company = FallbackCompany
	}

	body = firstNamePattern.ReplaceAllLiteralString(body, name)
	body = companyNamePattern.ReplaceAllLiteralString(body, company)
	body = yourNamePattern.ReplaceAllLiteralString(body, SenderName)
	return body
}

// RenderSubject replaces subject tokens by substring: a token mentioning
// "company" becomes the company, one mentioning "first" becomes the name.
// Anything else, including {{your_name}}, stays verbatim.
func (e *Engine) RenderSubject(subject string, r recipient.Record) string {
	if subject == "" {
		return subject
	}

	return subjectPattern.ReplaceAllStringFunc(subject, func(match string) string {
		token := strings.ToLower(match)
		switch {
		case strings.Contains(token, "company"):
			return r.Company
		case strings.Contains(token, "first"):
			return r.Name
		default:
			return match
		}
	})
}

// Placeholders returns the distinct {{...}} tokens found in s, in order
// of first appearance.
func (e *Engine) Placeholders(s string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, m := range varPattern.FindAllString(s, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		tokens = append(tokens, m)
	}
	return tokens
}

// Unknown returns the body tokens the engine will not substitute
func (e *Engine) Unknown(body string) []string {
	var unknown []string
	for _, tok := range e.Placeholders(body) {
		switch strings.ToLower(tok) {
		case TokenFirstName, TokenCompanyName, TokenYourName:
		default:
			unknown = append(unknown, tok)
		}
	}
	return unknown
}

// DefaultDraft builds the cover-letter style draft seeded from the
// outreach purpose and an optional block of shared content.
func DefaultDraft(purpose, commonContent string) Draft {
	role := strings.TrimSpace(purpose)
	if role == "" {
		role = placeholderRole
	}

	var b strings.Builder
	b.WriteString("Dear Hiring Manager,\n\n")
	fmt.Fprintf(&b, "I am writing to apply for %s at %s. I am excited about the opportunity to contribute to your team.\n\n", role, TokenCompanyName)
	if commonContent != "" {
		b.WriteString(commonContent)
		b.WriteString("\n\n")
	}
	b.WriteString("I would welcome the chance to discuss my background and how I can add value. Thank you for your consideration.\n\n")
	b.WriteString("Best regards,\n")
	b.WriteString(TokenYourName)

	return Draft{
		Subject: DefaultSubject(purpose),
		Body:    b.String(),
	}
}

// DefaultSubject builds the default subject line from the purpose
func DefaultSubject(purpose string) string {
	role := purpose
	if utf8.RuneCountInString(purpose) > SubjectPurposeLimit {
		role = string([]rune(purpose)[:SubjectPurposeLimit]) + "..."
	}
	return fmt.Sprintf("Application for %s at %s – %s", role, TokenCompanyName, TokenYourName)
}
