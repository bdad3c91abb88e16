package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/foxzi/groupsend/internal/console"
	"github.com/foxzi/groupsend/internal/recipient"
)

var parseFormat string

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a pasted recipient list",
	Long: `Parse free text, one recipient per line, into name, company and email.
Fields may be separated by tabs, dashes or runs of spaces. Reads stdin when
no file is given or the file is "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseFormat, "format", "table", "Output format (table, json, yaml)")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	records := recipient.Parse(raw)
	return writeRecords(cmd.OutOrStdout(), records, parseFormat)
}

// readInput returns the content of the file named in args, or of stdin
func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

func writeRecords(w io.Writer, records []recipient.Record, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(records)
	case "table":
		fmt.Fprintln(w, console.Recipients(records))
		fmt.Fprintf(w, "\n%d recipients, %d ready\n", len(records), recipient.ReadyCount(records))
		return nil
	default:
		return fmt.Errorf("unknown format: %s (must be table, json, or yaml)", format)
	}
}
