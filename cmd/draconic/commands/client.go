package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cheapskatecoder/draconic/config"
	"github.com/cheapskatecoder/draconic/errors"
	"github.com/cheapskatecoder/draconic/internal/httpclient"
	"github.com/cheapskatecoder/draconic/queue"
)

// apiClient is a thin REST client over a running `draconic serve`
// process's Core API. CLI subcommands never touch the store or the
// in-memory Scheduler directly: the ledger and priority queues live in
// one process's memory, so every mutation has to go through its HTTP
// surface (server/handlers.go) the same way multiple front ends would.
type apiClient struct {
	baseURL string
	http    *httpclient.SaferClient
}

// apiError mirrors server.errorResponse so a failed call can report the
// Scheduler's machine-readable error code, not just an HTTP status line.
type apiError struct {
	StatusCode int
	Message    string
	Code       queue.ErrorCode
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// newClient resolves the server address from --server, falling back to
// config.Config.Server.ListenAddr (e.g. ":8770" -> "http://localhost:8770").
func newClient(cmd *cobra.Command) (*apiClient, error) {
	addr, _ := cmd.Flags().GetString("server")
	if addr == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load configuration")
		}
		addr = cfg.Server.ListenAddr
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://localhost" + addr
	}
	// The target is the operator-configured draconic server address, not
	// an attacker-controlled URL, so private-IP/localhost blocking (the
	// whole point of SaferClient for arbitrary URLs) would just break
	// the common case of talking to a server on the same host.
	blockPrivateIP := false
	client := httpclient.NewSaferClientWithOptions(10*time.Second, httpclient.SaferClientOptions{
		BlockPrivateIP: &blockPrivateIP,
	})

	return &apiClient{
		baseURL: strings.TrimSuffix(addr, "/"),
		http:    client,
	}, nil
}

func (c *apiClient) do(method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to reach draconic server at %s", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string          `json:"error"`
			Code  queue.ErrorCode `json:"code,omitempty"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error == "" {
			errBody.Error = resp.Status
		}
		return &apiError{StatusCode: resp.StatusCode, Message: errBody.Error, Code: errBody.Code}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode server response")
	}
	return nil
}

func (c *apiClient) Submit(spec queue.Spec) (*queue.Job, error) {
	var job queue.Job
	if err := c.do(http.MethodPost, "/v1/jobs", spec, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) Get(id string) (*queue.Job, error) {
	var job queue.Job
	if err := c.do(http.MethodGet, "/v1/jobs/"+id, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) List() ([]*queue.Job, error) {
	var out struct {
		Jobs []*queue.Job `json:"jobs"`
	}
	if err := c.do(http.MethodGet, "/v1/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func (c *apiClient) Cancel(id string) (*queue.Job, error) {
	var job queue.Job
	if err := c.do(http.MethodPost, "/v1/jobs/"+id+"/cancel", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) Metrics() (*queue.Metrics, error) {
	var metrics queue.Metrics
	if err := c.do(http.MethodGet, "/v1/metrics", nil, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (c *apiClient) DLQList() ([]string, error) {
	var out struct {
		JobIDs []string `json:"job_ids"`
	}
	if err := c.do(http.MethodGet, "/v1/dlq", nil, &out); err != nil {
		return nil, err
	}
	return out.JobIDs, nil
}

func (c *apiClient) DLQRetry(id string) (*queue.Job, error) {
	var job queue.Job
	if err := c.do(http.MethodPost, "/v1/dlq/"+id+"/retry", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
