package builder

import (
	"errors"
	"fmt"
	"strings"
)

var ErrPollLimit = errors.New("builder: package install still in progress after poll limit")

// StepError is a failure the CLI reported for one build step.
type StepError struct {
	Step     string
	Message  string
	Failures []string
}

func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Step)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.Failures) > 0 {
		fmt.Fprintf(&b, " (%d failures: %s)", len(e.Failures), strings.Join(e.Failures, "; "))
	}
	return b.String()
}
