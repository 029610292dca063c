package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrTimeout is returned when a command outlives the runner's timeout.
var ErrTimeout = errors.New("command timed out")

// Request is written as JSON to a bound command's stdin.
type Request struct {
	Gesture gesture.Kind  `json:"gesture"`
	Label   string        `json:"label"`
	Event   gesture.Event `json:"event"`
	Seq     uint64        `json:"seq"`
}

// Response is what a command may print on stdout. Commands that print
// nothing succeed with an empty response.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ExecRunner runs bound commands with a timeout.
type ExecRunner struct {
	timeout time.Duration
}

// NewExecRunner creates a runner that kills commands after timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{timeout: timeout}
}

// Run executes b's command with req on stdin and parses its stdout.
func (r *ExecRunner) Run(ctx context.Context, b Binding, req Request) (*Response, error) {
	if len(b.Command) == 0 {
		return nil, errors.New("binding has no command")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, b.Command[0], b.Command[1:]...)
	cmd.Dir = b.Dir
	cmd.WaitDelay = time.Second

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, errors.Wrapf(ErrTimeout, "%s after %s", b.Command[0], r.timeout)
	}
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, errors.Wrapf(err, "%s failed, stderr: %s", b.Command[0], msg)
		}
		return nil, errors.Wrapf(err, "%s failed", b.Command[0])
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return &Response{Success: true}, nil
	}

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to parse response, stdout: %s", out)
	}
	return &resp, nil
}
