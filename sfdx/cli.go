package sfdx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoOutput   = errors.New("sfdx: no output on stdout or stderr")
	ErrStderrOnly = errors.New("sfdx: command wrote only to stderr")
	ErrNoPayload  = errors.New("sfdx: no JSON payload in stdout")
)

// Advisories the CLI prints on stderr that do not mean the command failed.
var benignStderr = []string{
	"update available",
}

// Runner abstracts process execution so tests can script the CLI.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), err
	}

	exitCode := 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// DefaultCommand is the CLI executable name for the current platform.
func DefaultCommand() string {
	if runtime.GOOS == "windows" {
		return "sfdx.cmd"
	}
	return "sfdx"
}

type CLI struct {
	Command string
	Runner  Runner
	Log     logrus.FieldLogger
}

func New(command string, log logrus.FieldLogger) *CLI {
	if command == "" {
		command = DefaultCommand()
	}
	return &CLI{
		Command: command,
		Runner:  ExecRunner{},
		Log:     log.WithField("component", "sfdx"),
	}
}

// Invoke runs the CLI with args plus --json and decodes the response envelope.
// A non-zero process exit is not an error as long as an envelope was printed;
// the envelope status carries the failure.
func (c *CLI) Invoke(ctx context.Context, args ...string) (*Response, error) {
	args = append(append([]string{}, args...), "--json")
	c.Log.Debugf("ARGS: %s %s", c.Command, strings.Join(args, " "))

	stdout, stderr, exitCode, err := c.Runner.Run(ctx, c.Command, args...)
	c.Log.Debugf("STDOUT:\n%s", stdout)
	if len(stderr) > 0 {
		c.Log.Debugf("STDERR:\n%s", stderr)
	}

	if len(bytes.TrimSpace(stdout)) == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if len(bytes.TrimSpace(stderr)) == 0 {
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrNoOutput, args[0], err)
			}
			return nil, fmt.Errorf("%w: %s", ErrNoOutput, args[0])
		}
		if !isBenign(stderr) {
			return nil, fmt.Errorf("%w: %s", ErrStderrOnly, strings.TrimSpace(string(stderr)))
		}
		return nil, fmt.Errorf("%w: %s", ErrNoPayload, args[0])
	}

	resp, decodeErr := ParseResponse(stdout)
	if decodeErr != nil {
		if err != nil {
			return nil, fmt.Errorf("%s exited %d: %w", c.Command, exitCode, err)
		}
		return nil, decodeErr
	}
	c.Log.Debugf("status=%d name=%s message=%s", resp.Status, resp.Name, resp.Message)
	return resp, nil
}

// ParseResponse decodes the first JSON object in out. The CLI may print banner
// text ahead of the payload, so decoding starts at the first opening brace.
func ParseResponse(out []byte) (*Response, error) {
	start := bytes.IndexByte(out, '{')
	if start < 0 {
		return nil, ErrNoPayload
	}

	resp := &Response{}
	dec := json.NewDecoder(bytes.NewReader(out[start:]))
	if err := dec.Decode(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPayload, err)
	}
	return resp, nil
}

func isBenign(stderr []byte) bool {
	s := strings.ToLower(string(stderr))
	for _, advisory := range benignStderr {
		if strings.Contains(s, advisory) {
			return true
		}
	}
	return false
}
