package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cheapskatecoder/draconic/queue"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	Long: `List every job known to the server, optionally filtered by status.

Examples:
  draconic list
  draconic list --status RUNNING`,
	RunE: runList,
}

var listStatus string

func init() {
	ListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (e.g. PENDING, READY, RUNNING, FAILED)")
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	jobs, err := client.List()
	if err != nil {
		return err
	}

	filter := queue.Status(listStatus)
	rows := [][]string{{"ID", "TYPE", "STATUS", "PRIORITY", "ATTEMPT", "UPDATED"}}
	for _, job := range jobs {
		if filter != "" && job.Status != filter {
			continue
		}
		rows = append(rows, []string{
			job.ID,
			job.Type,
			string(job.Status),
			string(job.Priority),
			strconv.Itoa(job.Attempt),
			job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	if len(rows) == 1 {
		pterm.Info.Println("no jobs match")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
