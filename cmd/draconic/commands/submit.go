package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cheapskatecoder/draconic/queue"
	"github.com/cheapskatecoder/draconic/sym"
)

var SubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new job",
	Long: `Submit a new job to a running draconic server.

Examples:
  draconic submit --type shell --payload '{"command":"echo","args":["hi"]}'
  draconic submit --type shell --cpu 2 --mem 256 --priority HIGH
  draconic submit --type shell --depends-on JB_abc,JB_def`,
	RunE: runSubmit,
}

var (
	submitType      string
	submitPriority  string
	submitPayload   string
	submitCPU       int
	submitMemMB     int
	submitDependsOn []string
	submitMaxAttempts       int
	submitBackoffMultiplier float64
	submitTimeoutSeconds    int
)

func init() {
	SubmitCmd.Flags().StringVar(&submitType, "type", "", "job type (matches a registered handler, required)")
	SubmitCmd.Flags().StringVar(&submitPriority, "priority", "", "CRITICAL, HIGH, NORMAL, or LOW (default: NORMAL)")
	SubmitCmd.Flags().StringVar(&submitPayload, "payload", "", "opaque JSON payload passed to the handler")
	SubmitCmd.Flags().IntVar(&submitCPU, "cpu", 0, "CPU units required")
	SubmitCmd.Flags().IntVar(&submitMemMB, "mem", 0, "memory in MB required")
	SubmitCmd.Flags().StringSliceVar(&submitDependsOn, "depends-on", nil, "comma-separated parent job IDs")
	SubmitCmd.Flags().IntVar(&submitMaxAttempts, "max-attempts", 0, "override defaults.max_attempts")
	SubmitCmd.Flags().Float64Var(&submitBackoffMultiplier, "backoff-multiplier", 0, "override defaults.backoff_multiplier")
	SubmitCmd.Flags().IntVar(&submitTimeoutSeconds, "timeout-seconds", 0, "override defaults.timeout_seconds")
	SubmitCmd.MarkFlagRequired("type")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	spec := queue.Spec{
		Type:              submitType,
		Priority:          queue.Priority(submitPriority),
		CPUUnits:          submitCPU,
		MemoryMB:          submitMemMB,
		DependsOn:         submitDependsOn,
		MaxAttempts:       submitMaxAttempts,
		BackoffMultiplier: submitBackoffMultiplier,
		TimeoutSeconds:    submitTimeoutSeconds,
	}
	if submitPayload != "" {
		if !json.Valid([]byte(submitPayload)) {
			return fmt.Errorf("--payload is not valid JSON")
		}
		spec.Payload = json.RawMessage(submitPayload)
	}

	job, err := client.Submit(spec)
	if err != nil {
		return err
	}

	pterm.Success.Printf("%s job submitted: %s (status: %s)\n", sym.Pulse, job.ID, job.Status)
	return nil
}
