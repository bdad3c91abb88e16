package template

import (
	"testing"

	"github.com/foxzi/groupsend/internal/recipient"
)

func testRecipients() []recipient.Record {
	return []recipient.Record{
		{ID: "r1", Name: "Alice", Company: "Acme", Email: "alice@acme.com", Status: recipient.StatusReady},
		{ID: "r2", Name: "Bob", Company: "Globex", Email: "bob@globex.io", Status: recipient.StatusReady},
	}
}

func TestDerive(t *testing.T) {
	engine := NewEngine()
	d := Draft{Subject: "Hi {{first_name}}", Body: "Hello {{company_name}}"}

	got := engine.Derive(testRecipients(), d, nil)
	if len(got) != 2 {
		t.Fatalf("Derive() returned %d messages, want 2", len(got))
	}
	if got[0].RecipientID != "r1" || got[1].RecipientID != "r2" {
		t.Errorf("order not preserved: %q, %q", got[0].RecipientID, got[1].RecipientID)
	}
	if got[1].Subject != "Hi Bob" || got[1].Body != "Hello Globex" {
		t.Errorf("message = %+v", got[1])
	}
}

func TestDerive_KeepsAccepted(t *testing.T) {
	engine := NewEngine()
	recipients := testRecipients()
	d := Draft{Subject: "Hi {{first_name}}", Body: "v1"}

	msgs := engine.Derive(recipients, d, nil)
	msgs[0].Accepted = true

	d.Body = "v2"
	got := engine.Derive(recipients, d, msgs)

	if got[0].Body != "v1" || !got[0].Accepted {
		t.Errorf("accepted message recomputed: %+v", got[0])
	}
	if got[1].Body != "v2" || got[1].Accepted {
		t.Errorf("unaccepted message not recomputed: %+v", got[1])
	}
}

func TestDerive_Idempotent(t *testing.T) {
	engine := NewEngine()
	recipients := testRecipients()
	d := Draft{Subject: "Hi {{first_name}} at {{company_name}}", Body: "{{your_name}}"}

	first := engine.Derive(recipients, d, nil)
	second := engine.Derive(recipients, d, first)
	third := engine.Derive(recipients, d, second)

	for i := range first {
		if first[i] != second[i] || second[i] != third[i] {
			t.Errorf("message %d changed across derivations: %+v / %+v / %+v", i, first[i], second[i], third[i])
		}
	}
}

func TestDerive_DropsRemovedRecipients(t *testing.T) {
	engine := NewEngine()
	d := Draft{Subject: "s", Body: "b"}

	msgs := engine.Derive(testRecipients(), d, nil)
	msgs[1].Accepted = true

	reparsed := []recipient.Record{{ID: "r3", Name: "Carol"}}
	got := engine.Derive(reparsed, d, msgs)
	if len(got) != 1 || got[0].RecipientID != "r3" || got[0].Accepted {
		t.Errorf("Derive() = %+v", got)
	}
}

func TestDerive_IncompleteInputsKeepExisting(t *testing.T) {
	engine := NewEngine()
	existing := []Message{{RecipientID: "r1", Accepted: true}}

	tests := []struct {
		name       string
		recipients []recipient.Record
		draft      Draft
	}{
		{"no recipients", nil, Draft{Subject: "s", Body: "b"}},
		{"no subject", testRecipients(), Draft{Body: "b"}},
		{"no body", testRecipients(), Draft{Subject: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Derive(tt.recipients, tt.draft, existing)
			if len(got) != 1 || got[0] != existing[0] {
				t.Errorf("Derive() = %+v, want %+v", got, existing)
			}
			got[0].Accepted = false
			if !existing[0].Accepted {
				t.Error("Derive() returned the caller's slice")
			}
		})
	}

	if got := engine.Derive(nil, Draft{}, nil); len(got) != 0 {
		t.Errorf("Derive() on empty inputs = %+v", got)
	}
}

func TestAllAccepted(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     bool
	}{
		{"empty", nil, false},
		{"none", []Message{{}, {}}, false},
		{"some", []Message{{Accepted: true}, {}}, false},
		{"all", []Message{{Accepted: true}, {Accepted: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllAccepted(tt.messages); got != tt.want {
				t.Errorf("AllAccepted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAcceptedCount(t *testing.T) {
	if got := AcceptedCount([]Message{{Accepted: true}, {}, {Accepted: true}}); got != 2 {
		t.Errorf("AcceptedCount() = %d, want 2", got)
	}
}
