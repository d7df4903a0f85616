package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cheapskatecoder/draconic/sym"
)

var DLQCmd = &cobra.Command{
	Use:   "dlq",
	Short: sym.DLQ + " Inspect and retry dead-lettered jobs",
	Long: sym.DLQ + ` dlq — dead-letter queue operations.

Examples:
  draconic dlq list
  draconic dlq retry JB_abc123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-lettered job IDs",
	RunE:  runDLQList,
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Move a dead-lettered job back to READY for re-admission",
	Args:  cobra.ExactArgs(1),
	RunE:  runDLQRetry,
}

func init() {
	DLQCmd.AddCommand(dlqListCmd)
	DLQCmd.AddCommand(dlqRetryCmd)
}

func runDLQList(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	ids, err := client.DLQList()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		pterm.Info.Println("dead-letter queue is empty")
		return nil
	}
	for _, id := range ids {
		pterm.Println(id)
	}
	return nil
}

func runDLQRetry(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	job, err := client.DLQRetry(args[0])
	if err != nil {
		return err
	}
	pterm.Success.Printf("%s job %s re-queued (status: %s)\n", sym.Retry, job.ID, job.Status)
	return nil
}
