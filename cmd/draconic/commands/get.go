package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var GetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show a job's current state",
	Long: `Fetch and print the full state of one job as JSON.

Example:
  draconic get JB_abc123`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	job, err := client.Get(args[0])
	if err != nil {
		if ae, ok := err.(*apiError); ok && ae.StatusCode == 404 {
			pterm.Error.Printf("no such job: %s\n", args[0])
			return nil
		}
		return err
	}

	out, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
