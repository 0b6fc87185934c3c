package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/sirupsen/logrus"
)

// InstallTicket identifies an asynchronous package install.
type InstallTicket struct {
	OrgAlias  string
	InstallID string
}

// Poller waits for a package install to reach a terminal status. It blocks
// the caller for the whole install. MaxPolls of zero polls without limit.
type Poller struct {
	Interval time.Duration
	MaxPolls int
	Check    func(ctx context.Context, ticket InstallTicket) (sfdx.InstallRequest, error)
	Sleep    func(ctx context.Context, d time.Duration) error
	Log      logrus.FieldLogger
}

// Wait returns once current, or a later report for the same ticket, is no
// longer IN_PROGRESS.
func (p *Poller) Wait(ctx context.Context, ticket InstallTicket, current sfdx.InstallRequest) (sfdx.InstallRequest, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	polls := 0
	for current.Status == sfdx.InstallInProgress {
		if p.MaxPolls > 0 && polls >= p.MaxPolls {
			return current, fmt.Errorf("%w: request %s on %s after %d checks", ErrPollLimit, ticket.InstallID, ticket.OrgAlias, polls)
		}
		if p.Log != nil {
			p.Log.Debugf("install %s in progress, next check in %s", ticket.InstallID, p.Interval)
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return current, err
		}
		polls++

		next, err := p.Check(ctx, ticket)
		if err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
