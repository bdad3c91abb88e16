package template

import (
	"reflect"
	"strings"
	"testing"

	"github.com/foxzi/groupsend/internal/recipient"
)

func TestEngine_RenderBody(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name string
		body string
		rec  recipient.Record
		want string
	}{
		{
			name: "all tokens",
			body: "Hi {{first_name}} at {{company_name}}, from {{your_name}}",
			rec:  recipient.Record{Name: "Bob", Company: "Acme"},
			want: "Hi Bob at Acme, from Your Name",
		},
		{
			name: "case insensitive",
			body: "Hi {{FIRST_NAME}} at {{Company_Name}}",
			rec:  recipient.Record{Name: "Bob", Company: "Acme"},
			want: "Hi Bob at Acme",
		},
		{
			name: "every occurrence",
			body: "{{first_name}}, {{first_name}}!",
			rec:  recipient.Record{Name: "Bob"},
			want: "Bob, Bob!",
		},
		{
			name: "fallbacks",
			body: "Hi {{first_name}} at {{company_name}}",
			rec:  recipient.Record{},
			want: "Hi there at your company",
		},
		{
			name: "unknown token unchanged",
			body: "Hi {{first_name}}, your code is {{code}}",
			rec:  recipient.Record{Name: "Bob"},
			want: "Hi Bob, your code is {{code}}",
		},
		{
			name: "dollar signs are literal",
			body: "Hi {{first_name}}",
			rec:  recipient.Record{Name: "$1 Bob"},
			want: "Hi $1 Bob",
		},
		{
			name: "empty body",
			body: "",
			rec:  recipient.Record{Name: "Bob"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.RenderBody(tt.body, tt.rec); got != tt.want {
				t.Errorf("RenderBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_RenderSubject(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name    string
		subject string
		rec     recipient.Record
		want    string
	}{
		{
			name:    "first name and company",
			subject: "Hi {{first_name}} at {{company_name}}",
			rec:     recipient.Record{Name: "Bob", Company: "Acme"},
			want:    "Hi Bob at Acme",
		},
		{
			name:    "substring match",
			subject: "{{firstName}} / {{the_company}}",
			rec:     recipient.Record{Name: "Bob", Company: "Acme"},
			want:    "Bob / Acme",
		},
		{
			name:    "your_name stays verbatim",
			subject: "Application at {{company_name}} – {{your_name}}",
			rec:     recipient.Record{Name: "Bob", Company: "Acme"},
			want:    "Application at Acme – {{your_name}}",
		},
		{
			name:    "empty company has no fallback",
			subject: "Hello {{company_name}}!",
			rec:     recipient.Record{Name: "Bob"},
			want:    "Hello !",
		},
		{
			name:    "company wins over first",
			subject: "{{first_company}}",
			rec:     recipient.Record{Name: "Bob", Company: "Acme"},
			want:    "Acme",
		},
		{
			name:    "case insensitive",
			subject: "{{COMPANY}}",
			rec:     recipient.Record{Company: "Acme"},
			want:    "Acme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.RenderSubject(tt.subject, tt.rec); got != tt.want {
				t.Errorf("RenderSubject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_PersonalizeIsIdempotent(t *testing.T) {
	engine := NewEngine()
	d := Draft{
		Subject: "Hi {{first_name}} at {{company_name}}",
		Body:    "Dear {{first_name}}, greetings to {{company_name}}. {{your_name}}",
	}
	r := recipient.Record{ID: "r1", Name: "Bob", Company: "Acme"}

	first := engine.Personalize(d, r)
	second := engine.Personalize(d, r)
	if first != second {
		t.Errorf("Personalize() not idempotent: %+v != %+v", first, second)
	}
	if first.Subject != "Hi Bob at Acme" {
		t.Errorf("Subject = %q", first.Subject)
	}
	if first.RecipientID != "r1" || first.Accepted {
		t.Errorf("unexpected message header: %+v", first)
	}
}

func TestEngine_Placeholders(t *testing.T) {
	engine := NewEngine()

	got := engine.Placeholders("{{a}} {{b}} {{a}} {{ c }}")
	want := []string{"{{a}}", "{{b}}", "{{ c }}"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders() = %v, want %v", got, want)
	}

	unknown := engine.Unknown("{{First_Name}} {{company_name}} {{your_name}} {{role}}")
	if !reflect.DeepEqual(unknown, []string{"{{role}}"}) {
		t.Errorf("Unknown() = %v, want [{{role}}]", unknown)
	}
}

func TestDefaultDraft(t *testing.T) {
	d := DefaultDraft("Backend Engineer", "I have 5 years of Go.")

	if !strings.Contains(d.Body, "apply for Backend Engineer at {{company_name}}") {
		t.Errorf("body does not embed purpose: %q", d.Body)
	}
	if !strings.Contains(d.Body, "I have 5 years of Go.\n\n") {
		t.Errorf("body does not embed common content: %q", d.Body)
	}
	if !strings.HasSuffix(d.Body, "Best regards,\n{{your_name}}") {
		t.Errorf("body has wrong closing: %q", d.Body)
	}
	if d.Subject != "Application for Backend Engineer at {{company_name}} – {{your_name}}" {
		t.Errorf("Subject = %q", d.Subject)
	}

	blank := DefaultDraft("  ", "")
	if !strings.Contains(blank.Body, "[Role/position you are applying for]") {
		t.Errorf("blank purpose body = %q", blank.Body)
	}
	if strings.Contains(blank.Body, "\n\n\n") {
		t.Errorf("empty common content left a gap: %q", blank.Body)
	}
}

func TestDefaultSubject_Truncates(t *testing.T) {
	tests := []struct {
		purpose string
		want    string
	}{
		{
			purpose: "Senior Platform Reliability Engineer",
			want:    "Application for Senior Platform Reliability En... at {{company_name}} – {{your_name}}",
		},
		{
			purpose: "exactly thirty characters long",
			want:    "Application for exactly thirty characters long at {{company_name}} – {{your_name}}",
		},
	}
	for _, tt := range tests {
		if got := DefaultSubject(tt.purpose); got != tt.want {
			t.Errorf("DefaultSubject(%q) = %q, want %q", tt.purpose, got, tt.want)
		}
	}
}
