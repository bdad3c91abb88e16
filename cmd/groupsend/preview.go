package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/groupsend/internal/console"
	"github.com/foxzi/groupsend/internal/recipient"
	"github.com/foxzi/groupsend/internal/template"
	"github.com/foxzi/groupsend/internal/workflow"
)

var (
	previewPurpose       string
	previewCommonContent string
	previewSubject       string
	previewBodyFile      string
)

var previewCmd = &cobra.Command{
	Use:   "preview [recipients-file]",
	Short: "Preview personalized messages",
	Long: `Render the draft once per recipient without starting a session.
The draft defaults to the cover letter seeded from --purpose. Supported
placeholders are {{first_name}}, {{company_name}} and {{your_name}}.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewPurpose, "purpose", "", "Outreach purpose, e.g. the role applied for")
	previewCmd.Flags().StringVar(&previewCommonContent, "common-content", "", "Text shared by every message")
	previewCmd.Flags().StringVar(&previewSubject, "subject", "", "Subject template")
	previewCmd.Flags().StringVar(&previewBodyFile, "body-file", "", "File with the body template")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	draft, err := buildDraft(previewPurpose, previewCommonContent, previewSubject, previewBodyFile)
	if err != nil {
		return err
	}

	engine := template.NewEngine()
	records := recipient.Parse(raw)
	messages := engine.Derive(records, draft, nil)

	out := cmd.OutOrStdout()
	states := make([]workflow.MessageState, len(messages))
	for i, m := range messages {
		states[i] = workflow.MessageState{Message: m}
	}
	fmt.Fprintln(out, console.Messages(states))

	if unknown := engine.Unknown(draft.Body); len(unknown) > 0 {
		fmt.Fprintln(out, console.WarningStyle.Render(fmt.Sprintf("left as is: %v", unknown)))
	}
	return nil
}

// buildDraft merges explicit subject and body with the purpose-seeded default
func buildDraft(purpose, commonContent, subject, bodyFile string) (template.Draft, error) {
	d := template.DefaultDraft(purpose, commonContent)
	if subject != "" {
		d.Subject = subject
	}
	if bodyFile != "" {
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return template.Draft{}, fmt.Errorf("failed to read body file: %w", err)
		}
		d.Body = string(data)
	}
	return d, nil
}
