// Package handlers provides the job handlers draconic registers by
// default, the way a distributed build system ships a handful of
// built-in step types alongside its extension points. Embedding
// applications register their own queue.Handler implementations the
// same way; this package just keeps the binary useful out of the box.
package handlers

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/cheapskatecoder/draconic/errors"
	"github.com/cheapskatecoder/draconic/queue"
)

// ShellPayload is the queue.Job.Payload shape for job type "shell".
type ShellPayload struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Shell runs its payload's command as a child process, bound to the
// job's own timeout/cancellation context: the ExecutorPool already
// derives execCtx from job.TimeoutSeconds and cancels it on explicit
// Cancel, so exec.CommandContext is all that's needed here to honor
// both.
var Shell = queue.HandlerFunc(func(ctx context.Context, job *queue.Job) error {
	var payload ShellPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return queue.Permanent(errors.Wrap(err, "shell: invalid payload"))
	}
	if strings.TrimSpace(payload.Command) == "" {
		return queue.Permanent(errors.New("shell: payload.command is required"))
	}

	cmd := exec.CommandContext(ctx, payload.Command, payload.Args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			// Timeout/cancellation; let the executor classify it rather
			// than reporting a handler-side failure.
			return ctx.Err()
		}
		return errors.Wrapf(err, "shell: %s", strings.TrimSpace(string(output)))
	}
	return nil
})
