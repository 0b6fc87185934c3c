package orgs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const rowFormat = "%3v %-3s %-20s %-45s %-12s %s\n"

// Actions are the CLI calls the selector makes for the chosen org.
type Actions interface {
	UserDetails(ctx context.Context, alias string) (sfdx.UserDetails, error)
	OpenOrg(ctx context.Context, username string) error
}

type Selector struct {
	In      io.Reader
	Out     io.Writer
	Actions Actions
	Log     logrus.FieldLogger

	lines chan string
}

func NewSelector(in io.Reader, out io.Writer, actions Actions, log logrus.FieldLogger) *Selector {
	return &Selector{
		In:      in,
		Out:     out,
		Actions: actions,
		Log:     log.WithField("component", "selector"),
	}
}

// Render prints the index as a table. Active orgs show their status in green,
// anything else in red.
func (s *Selector) Render(idx Index) {
	fmt.Fprintln(s.Out)
	fmt.Fprintf(s.Out, rowFormat, "idx", "", "Alias", "Username", "Expiration", "Status")
	fmt.Fprintf(s.Out, rowFormat, "---", "", "-----", "--------", "----------", "------")
	for i, env := range idx.Entries {
		status := color.GreenString(env.Status)
		if !env.Active() {
			status = color.RedString(env.Status)
		}
		fmt.Fprintf(s.Out, rowFormat, i+1, env.DefaultMarker, env.Alias, env.Username, env.ExpirationDate, status)
	}
	fmt.Fprintln(s.Out)
}

// Choose maps an answer to an index position. A number picks that row and U
// picks the default; anything else means quit.
func Choose(answer string, idx Index) (int, bool) {
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "u") {
		return idx.Default, idx.Len() > 0
	}
	pos, err := strconv.Atoi(answer)
	if err != nil {
		return 0, false
	}
	if _, ok := idx.At(pos); !ok {
		return 0, false
	}
	return pos, true
}

// Run shows the table, lets the user pick an org, prints its details and
// opens it on request. Quitting at either prompt returns nil; a cancelled
// ctx ends a pending prompt with ctx.Err().
func (s *Selector) Run(ctx context.Context, idx Index) error {
	s.Render(idx)
	if idx.Len() == 0 {
		fmt.Fprintln(s.Out, "No orgs found.")
		return nil
	}

	answer, ok, err := s.prompt(ctx, fmt.Sprintf("Enter choice (idx), U for default [%d] or q > ", idx.Default))
	if err != nil || !ok {
		return err
	}
	pos, ok := Choose(answer, idx)
	if !ok {
		s.Log.Debugf("quit on %q", answer)
		return nil
	}
	env, _ := idx.At(pos)
	name := env.Name()

	details, err := s.Actions.UserDetails(ctx, name)
	if err != nil {
		return fmt.Errorf("user details for %s: %w", name, err)
	}
	s.showDetails(details)

	for {
		answer, ok, err := s.prompt(ctx, fmt.Sprintf("[O]pen '%s' > ", name))
		if err != nil || !ok {
			return err
		}
		switch strings.ToUpper(strings.TrimSpace(answer)) {
		case "", "O", "OPEN":
			return s.Actions.OpenOrg(ctx, name)
		case "Q", "QUIT":
			return nil
		}
	}
}

func (s *Selector) showDetails(d sfdx.UserDetails) {
	fmt.Fprintln(s.Out)
	fmt.Fprintf(s.Out, "OrgId    : %s\n", d.OrgID)
	fmt.Fprintf(s.Out, "Username : %s\n", d.Username)
	fmt.Fprintf(s.Out, "Url      : %s\n", d.InstanceURL)
	fmt.Fprintf(s.Out, "Alias    : %s\n", d.Alias)
	fmt.Fprintf(s.Out, "Token    : %s\n", d.AccessToken)
	fmt.Fprintln(s.Out)
}

// prompt reads one line. ok is false at end of input. Input is read on its
// own goroutine so an interrupt does not wait for the user to press enter.
func (s *Selector) prompt(ctx context.Context, text string) (string, bool, error) {
	if s.lines == nil {
		s.lines = make(chan string)
		go s.readLines()
	}
	fmt.Fprint(s.Out, text)
	select {
	case line, ok := <-s.lines:
		return line, ok, nil
	case <-ctx.Done():
		fmt.Fprintln(s.Out)
		return "", false, ctx.Err()
	}
}

func (s *Selector) readLines() {
	defer close(s.lines)
	scanner := bufio.NewScanner(s.In)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
}
