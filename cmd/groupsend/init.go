package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	initOutput       string
	initListenAddr   string
	initAPIKey       string
	initTickInterval time.Duration
	initAutoApprove  bool
	initMetrics      bool
	initForce        bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create a Groupsend configuration file with a generated API key.

Examples:
  # Defaults, written to config.yaml
  groupsend init

  # Demo setup that sends as soon as a review is authorized
  groupsend init --auto-approve --tick-interval 100ms -o demo.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "Output configuration file path")
	initCmd.Flags().StringVar(&initListenAddr, "listen", ":8080", "API listen address")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (auto-generated if not provided)")
	initCmd.Flags().DurationVar(&initTickInterval, "tick-interval", 400*time.Millisecond, "Time between two simulated deliveries")
	initCmd.Flags().BoolVar(&initAutoApprove, "auto-approve", false, "Start sending as soon as it is requested")
	initCmd.Flags().BoolVar(&initMetrics, "metrics", true, "Enable the Prometheus metrics server")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if initAPIKey == "" {
		initAPIKey = generateRandomString(32)
		fmt.Printf("Generated API key: %s\n", initAPIKey)
	}

	// Check if output file exists
	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", initOutput)
		}
	}

	if err := os.WriteFile(initOutput, []byte(generateConfig()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Configuration saved to: %s\n", initOutput)
	fmt.Println()
	fmt.Println("Next Steps")
	fmt.Println("==========")
	fmt.Println()
	fmt.Println("1. Start the server:")
	fmt.Printf("   groupsend serve -c %s\n", initOutput)
	fmt.Println()
	fmt.Println("2. Create a session:")
	fmt.Println("   curl -X POST http://localhost" + initListenAddr + "/api/v1/sessions \\")
	fmt.Printf("     -H \"Authorization: Bearer %s\" \\\n", initAPIKey)
	fmt.Println("     -H \"Content-Type: application/json\" \\")
	fmt.Println("     -d '{\"purpose\": \"Backend Engineer\", \"raw_recipients\": \"Alice - Acme - alice@acme.com\", \"ready\": true}'")
	fmt.Println()

	return nil
}

func generateRandomString(length int) string {
	bytes := make([]byte, length/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateConfig() string {
	return fmt.Sprintf(`# Groupsend configuration
# Generated by: groupsend init

api:
  listen_addr: "%s"
  api_key: "%s"
  max_header_bytes: 1048576  # 1 MB
  max_body_bytes: 1048576    # 1 MB
  read_timeout: 30s
  write_timeout: 30s
  idle_timeout: 60s
  # allowed_ips:
  #   - "127.0.0.1"
  #   - "10.0.0.0/8"

sender:
  tick_interval: %s
  auto_approve: %t

sessions:
  ttl: 1h
  cleanup_interval: 1m
  max_sessions: 0  # unlimited

logging:
  level: "info"
  format: "json"

metrics:
  enabled: %t
  listen_addr: ":9090"
  path: "/metrics"
  flush_interval: 10s
`,
		initListenAddr,
		initAPIKey,
		initTickInterval,
		initAutoApprove,
		initMetrics,
	)
}
