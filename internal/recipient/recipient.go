// Package recipient turns pasted free text into recipient records.
package recipient

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/foxzi/groupsend/internal/email"
)

// Status tells whether a recipient has enough data to be written to
type Status string

const (
	StatusReady   Status = "Ready"
	StatusMissing Status = "Missing"
)

// minNameLength is the shortest name accepted as Ready
const minNameLength = 2

// Record is a single parsed recipient
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Notes   string `json:"notes"`
	Status  Status `json:"status"`
}

// Patch is a partial edit of a record. Nil fields are left alone.
type Patch struct {
	Name    *string `json:"name,omitempty"`
	Company *string `json:"company,omitempty"`
	Email   *string `json:"email,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// separator splits a line into fields: tab, en/em dash or hyphen, or a run
// of two or more whitespace characters.
var separator = regexp.MustCompile(`[\t–—\-]\s*|\s{2,}`)

// Parse turns raw text, one recipient per line, into records.
// Malformed lines never fail: they produce a record with empty fields
// and StatusMissing.
func Parse(raw string) []Record {
	if strings.TrimSpace(raw) == "" {
		return []Record{}
	}

	var records []Record
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		records = append(records, parseLine(line))
	}
	return records
}

func parseLine(line string) Record {
	var tokens []string
	for _, part := range separator.Split(line, -1) {
		if part = strings.TrimSpace(part); part != "" {
			tokens = append(tokens, part)
		}
	}

	var addr string
	var rest []string
	for _, tok := range tokens {
		if email.Contains(tok) {
			if addr == "" {
				addr = tok
			}
			continue
		}
		rest = append(rest, tok)
	}

	r := Record{
		ID:    uuid.New().String(),
		Email: addr,
	}
	if len(rest) > 0 {
		r.Name = rest[0]
	}
	if len(rest) > 1 {
		r.Company = rest[1]
	}
	r.Status = StatusFor(r.Name, r.Email)
	return r
}

// StatusFor derives the status of a record from its name and email
func StatusFor(name, addr string) Status {
	if addr != "" && utf8.RuneCountInString(name) >= minNameLength {
		return StatusReady
	}
	return StatusMissing
}

// SetName updates the name and recomputes the status
func (r *Record) SetName(name string) {
	r.Name = name
	r.Status = StatusFor(r.Name, r.Email)
}

// SetEmail updates the email and recomputes the status
func (r *Record) SetEmail(addr string) {
	r.Email = addr
	r.Status = StatusFor(r.Name, r.Email)
}

// SetCompany updates the company
func (r *Record) SetCompany(company string) {
	r.Company = company
	r.Status = StatusFor(r.Name, r.Email)
}

// SetNotes updates the free-form notes
func (r *Record) SetNotes(notes string) {
	r.Notes = notes
	r.Status = StatusFor(r.Name, r.Email)
}

// Apply applies every non-nil field of p
func (r *Record) Apply(p Patch) {
	if p.Name != nil {
		r.SetName(*p.Name)
	}
	if p.Company != nil {
		r.SetCompany(*p.Company)
	}
	if p.Email != nil {
		r.SetEmail(*p.Email)
	}
	if p.Notes != nil {
		r.SetNotes(*p.Notes)
	}
}

// Ready reports whether the record can be written to
func (r Record) Ready() bool {
	return r.Status == StatusReady
}

// ReadyCount returns how many records are Ready
func ReadyCount(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Ready() {
			n++
		}
	}
	return n
}

// Clone returns a copy of records that shares no backing array
func Clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
