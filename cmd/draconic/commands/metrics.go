package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var MetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show scheduler metrics (queue depth, resource usage, DLQ depth)",
	RunE:  runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	metrics, err := client.Metrics()
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
