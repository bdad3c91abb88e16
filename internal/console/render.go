package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/foxzi/groupsend/internal/recipient"
	"github.com/foxzi/groupsend/internal/workflow"
)

const (
	filledChar = "■"
	emptyChar  = "□"

	// DefaultTitle is shown when the outreach has no purpose yet
	DefaultTitle = "Group outreach"
)

// Summary renders the header line: purpose, recipient count and how
// many steps are completed.
func Summary(s workflow.Snapshot) string {
	title := strings.TrimSpace(s.Purpose)
	if title == "" {
		title = DefaultTitle
	}

	noun := "recipients"
	if len(s.Recipients) == 1 {
		noun = "recipient"
	}

	line := fmt.Sprintf("%s · %d %s", TitleStyle.Render(title), len(s.Recipients), noun)
	steps := SubtleStyle.Render(fmt.Sprintf("%d/%d steps", s.Completed, len(s.Steps)))
	if !s.Ready {
		steps = WarningStyle.Render("waiting for input")
	}
	return line + "  " + steps
}

// Steps renders one line per step with a status marker
func Steps(steps []workflow.Step) string {
	lines := make([]string, len(steps))
	for i, st := range steps {
		label := fmt.Sprintf("%d. %s", i+1, st.Title)
		switch st.Status {
		case workflow.StatusCompleted:
			lines[i] = SuccessStyle.Render("✓ " + label)
		case workflow.StatusInProgress:
			lines[i] = ActiveStyle.Render("▸ " + label)
		default:
			lines[i] = SubtleStyle.Render("○ " + label)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Recipients renders the recipient table, one row per record
func Recipients(records []recipient.Record) string {
	if len(records) == 0 {
		return SubtleStyle.Render("no recipients")
	}

	nameWidth, companyWidth := 0, 0
	for _, r := range records {
		nameWidth = max(nameWidth, lipgloss.Width(r.Name))
		companyWidth = max(companyWidth, lipgloss.Width(r.Company))
	}

	lines := make([]string, len(records))
	for i, r := range records {
		status := SuccessStyle.Render(string(r.Status))
		if r.Status != recipient.StatusReady {
			status = WarningStyle.Render(string(r.Status))
		}

		row := fmt.Sprintf("%-*s  %-*s  %s", nameWidth, r.Name, companyWidth, r.Company, r.Email)
		row = strings.TrimRight(row, " ") + "  " + status
		if r.Notes != "" {
			row += "  " + SubtleStyle.Render(r.Notes)
		}
		lines[i] = row
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Messages renders every personalized message in its own panel
func Messages(messages []workflow.MessageState) string {
	if len(messages) == 0 {
		return SubtleStyle.Render("no messages")
	}

	panels := make([]string, len(messages))
	for i, m := range messages {
		var flags []string
		if m.Accepted {
			flags = append(flags, "accepted")
		}
		if m.Sent {
			flags = append(flags, "sent")
		}

		header := TitleStyle.Render(m.Name)
		if m.Company != "" {
			header += " · " + m.Company
		}
		if len(flags) > 0 {
			header += "  " + SuccessStyle.Render(strings.Join(flags, ", "))
		}

		panels[i] = BoxStyle.Render(header + "\n" + SubtleStyle.Render("Subject: "+m.Subject) + "\n\n" + m.Body)
	}
	return strings.Join(panels, "\n")
}

// Progress renders a send progress bar like: ■■■■□□□□ 2/4
func Progress(p workflow.Progress, width int) string {
	if p.Total <= 0 || width <= 0 {
		return ""
	}

	current := min(max(p.Current, 0), p.Total)
	filled := (current * width) / p.Total

	bar := strings.Repeat(filledChar, filled) + strings.Repeat(emptyChar, width-filled)
	line := fmt.Sprintf("%s %d/%d", bar, current, p.Total)
	if p.Done {
		return SuccessStyle.Render(line + " sent")
	}
	return line
}
