package builder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/aleksa11010/ScratchOrgBuilder/sfdx/sfdxtest"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type fakeSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slept = append(f.slept, d)
	return nil
}

func (f *fakeSleeper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.slept)
}

func newTestSteps(t *testing.T, r *sfdxtest.Runner) (*Steps, *logtest.Hook, *fakeSleeper) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	cli := sfdx.New("sfdx", log)
	cli.Runner = r

	sleeper := &fakeSleeper{}
	steps := NewSteps(cli, log, 2*time.Minute, 0)
	steps.Poller.Sleep = sleeper.Sleep
	return steps, hook, sleeper
}

func entriesAt(hook *logtest.Hook, level logrus.Level) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }
