package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var CancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a pending or running job",
	Long: `Request cancellation of one job. A job already in a terminal
state (completed, failed, timed out, cancelled, or dead-lettered)
cannot be cancelled; the server reports a conflict in that case.

Example:
  draconic cancel JB_abc123`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	job, err := client.Cancel(args[0])
	if err != nil {
		if ae, ok := err.(*apiError); ok && ae.StatusCode == 409 {
			pterm.Warning.Printf("job %s is already terminal: %s\n", args[0], ae.Message)
			return nil
		}
		return err
	}

	pterm.Success.Printf("job %s cancelled\n", job.ID)
	return nil
}
