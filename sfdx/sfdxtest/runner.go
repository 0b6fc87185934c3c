// Package sfdxtest provides a scripted sfdx.Runner for tests.
package sfdxtest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

type Reply struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

type rule struct {
	prefix  []string
	replies []Reply
}

// Runner matches each invocation against registered argument prefixes. Replies
// for a prefix are consumed in order; the last one repeats.
type Runner struct {
	mu    sync.Mutex
	rules []*rule
	calls [][]string
}

func NewRunner() *Runner {
	return &Runner{}
}

type Expectation struct {
	r    *Runner
	rule *rule
}

func (r *Runner) On(prefix ...string) *Expectation {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ru := range r.rules {
		if strings.Join(ru.prefix, " ") == strings.Join(prefix, " ") {
			return &Expectation{r: r, rule: ru}
		}
	}
	ru := &rule{prefix: prefix}
	r.rules = append(r.rules, ru)
	return &Expectation{r: r, rule: ru}
}

func (e *Expectation) Reply(stdout string) *Expectation {
	return e.ReplyRaw(Reply{Stdout: stdout})
}

func (e *Expectation) ReplyRaw(reply Reply) *Expectation {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	e.rule.replies = append(e.rule.replies, reply)
	return e
}

func (r *Runner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trimmed := args
	if n := len(trimmed); n > 0 && trimmed[n-1] == "--json" {
		trimmed = trimmed[:n-1]
	}
	r.calls = append(r.calls, append([]string{}, trimmed...))

	// Longest prefix wins so "package install report" is not answered by
	// the "package install" rule.
	var best *rule
	for _, ru := range r.rules {
		if !hasPrefix(trimmed, ru.prefix) || len(ru.replies) == 0 {
			continue
		}
		if best == nil || len(ru.prefix) > len(best.prefix) {
			best = ru
		}
	}
	if best == nil {
		return nil, nil, 1, fmt.Errorf("sfdxtest: unexpected command %s %s", name, strings.Join(args, " "))
	}
	next := best.replies[0]
	if len(best.replies) > 1 {
		best.replies = best.replies[1:]
	}
	return []byte(next.Stdout), []byte(next.Stderr), next.ExitCode, next.Err
}

// Calls returns every invocation, without the trailing --json flag.
func (r *Runner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Commands returns every invocation joined with spaces.
func (r *Runner) Commands() []string {
	var out []string
	for _, c := range r.Calls() {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

// Count returns how many invocations started with prefix.
func (r *Runner) Count(prefix ...string) int {
	n := 0
	for _, c := range r.Calls() {
		if hasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func hasPrefix(args, prefix []string) bool {
	if len(prefix) > len(args) {
		return false
	}
	for i := range prefix {
		if args[i] != prefix[i] {
			return false
		}
	}
	return true
}

// OK renders a status 0 envelope around result.
func OK(result interface{}) string {
	return envelope(map[string]interface{}{"status": 0, "result": result})
}

// Fail renders a status 1 envelope. result may be nil.
func Fail(message string, result interface{}) string {
	env := map[string]interface{}{"status": 1, "name": "Error", "message": message}
	if result != nil {
		env["result"] = result
	}
	return envelope(env)
}

func envelope(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
