package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cheapskatecoder/draconic/cmd/draconic/commands"
	"github.com/cheapskatecoder/draconic/logger"
)

var rootCmd = &cobra.Command{
	Use:   "draconic",
	Short: "draconic - distributed task queue and scheduling engine",
	Long: `draconic manages a resource-aware task queue: submit jobs with
dependencies and resource requirements, let the scheduler admit and
execute them under a CPU/memory budget, and retry or dead-letter the
ones that fail.

Available commands:
  serve   - Run the scheduler and its HTTP/WebSocket API
  submit  - Submit a new job
  get     - Show a job's current state
  list    - List jobs
  cancel  - Cancel a pending or running job
  dlq     - Inspect and retry dead-lettered jobs
  metrics - Show queue depth, ledger capacity and job counts`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbosity count (-v, -vv, -vvv); accepted but not read: the logger always runs at info level")
	rootCmd.PersistentFlags().String("server", "", "draconic server address (default: from config, e.g. http://localhost:8770)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.SubmitCmd)
	rootCmd.AddCommand(commands.GetCmd)
	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.CancelCmd)
	rootCmd.AddCommand(commands.DLQCmd)
	rootCmd.AddCommand(commands.MetricsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
