package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/groupsend/internal/app"
	"github.com/foxzi/groupsend/internal/console"
	"github.com/foxzi/groupsend/internal/session"
	"github.com/foxzi/groupsend/internal/workflow"
)

const progressWidth = 24

var (
	runPurpose       string
	runTone          string
	runCommonContent string
	runSubject       string
	runBodyFile      string
	runTickInterval  time.Duration
	runDryRun        bool
	runVerbose       bool
)

var runCmd = &cobra.Command{
	Use:   "run [recipients-file]",
	Short: "Run the whole outreach headless",
	Long: `Walk every step without a UI: parse the recipients, seed the draft,
personalize and accept every message, authorize and simulate sending.

Examples:
  groupsend run recipients.txt --purpose "Backend Engineer"
  pbpaste | groupsend run --purpose "Backend Engineer" --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runPurpose, "purpose", "", "Outreach purpose, e.g. the role applied for")
	runCmd.Flags().StringVar(&runTone, "tone", "", "Tone of the messages")
	runCmd.Flags().StringVar(&runCommonContent, "common-content", "", "Text shared by every message")
	runCmd.Flags().StringVar(&runSubject, "subject", "", "Subject template")
	runCmd.Flags().StringVar(&runBodyFile, "body-file", "", "File with the body template")
	runCmd.Flags().DurationVar(&runTickInterval, "tick-interval", 0, "Time between two simulated deliveries (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Stop before authorizing the send")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Log workflow events")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runTickInterval > 0 {
		cfg.Sender.TickInterval = runTickInterval
	}
	cfg.Logging.Format = "text"
	cfg.Logging.Level = "warn"
	if runVerbose {
		cfg.Logging.Level = "debug"
	}
	logger := app.SetupLogger(cfg.Logging)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessions := session.NewManager(session.Options{
		TickInterval: cfg.Sender.TickInterval,
		Logger:       logger,
	})
	defer sessions.Close()

	sess, err := sessions.Create(workflow.FlowData{
		Purpose:       runPurpose,
		RawRecipients: raw,
		Tone:          runTone,
		CommonContent: runCommonContent,
		Ready:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return runWizard(ctx, cmd.OutOrStdout(), sess, cfg.Sender.TickInterval)
}

// runWizard drives a session through every step, printing as it goes
func runWizard(ctx context.Context, out io.Writer, sess *session.Session, tick time.Duration) error {
	wf := sess.Workflow()

	fmt.Fprintln(out, console.Summary(wf.Snapshot()))
	fmt.Fprintln(out)
	fmt.Fprintln(out, console.Recipients(wf.Recipients()))
	fmt.Fprintln(out)

	if err := wf.ConfirmRecipients(); err != nil {
		return fmt.Errorf("failed to confirm recipients: %w", err)
	}

	if runSubject != "" || runBodyFile != "" {
		draft, err := buildDraft(runPurpose, runCommonContent, runSubject, runBodyFile)
		if err != nil {
			return err
		}
		if err := wf.SetDraft(draft); err != nil {
			return fmt.Errorf("failed to set draft: %w", err)
		}
	}

	for _, step := range []struct {
		name string
		fn   func() error
	}{
		{"use draft", wf.UseDraft},
		{"accept messages", wf.AcceptAll},
		{"finish personalizing", wf.FinishPersonalize},
	} {
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to %s: %w", step.name, err)
		}
	}

	fmt.Fprintln(out, console.Messages(wf.Snapshot().Messages))
	fmt.Fprintln(out)

	if runDryRun {
		fmt.Fprintln(out, console.Steps(wf.Steps()))
		fmt.Fprintln(out, console.SubtleStyle.Render("dry run: nothing sent"))
		return nil
	}

	if err := wf.Authorize(); err != nil {
		return fmt.Errorf("failed to authorize: %w", err)
	}
	if err := sess.Approve(time.Now()); err != nil {
		return err
	}

	if err := waitProgress(ctx, out, wf, tick); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, console.Steps(wf.Steps()))
	fmt.Fprintln(out, console.Summary(wf.Snapshot()))
	return nil
}

// waitProgress redraws the progress bar until every message is sent
func waitProgress(ctx context.Context, out io.Writer, wf *workflow.Workflow, tick time.Duration) error {
	ticker := time.NewTicker(max(tick/2, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		p := wf.Progress()
		fmt.Fprintf(out, "\r%s", console.Progress(p, progressWidth))
		if p.Done {
			fmt.Fprintln(out)
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return fmt.Errorf("send interrupted: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
