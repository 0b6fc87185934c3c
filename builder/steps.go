package builder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Messages the CLI uses when a deploy or push had nothing to send. These are
// reported with status 1 but leave the org as requested.
var nothingToDeploy = []string{
	"nothing to deploy",
	"no local changes to deploy",
	"nothing to push",
	"no results found",
}

// Steps runs one CLI action each and maps the response status to a result.
// A returned error is fatal for the build.
type Steps struct {
	CLI    *sfdx.CLI
	Log    logrus.FieldLogger
	Poller *Poller
}

func NewSteps(cli *sfdx.CLI, log logrus.FieldLogger, interval time.Duration, maxPolls int) *Steps {
	s := &Steps{
		CLI: cli,
		Log: log.WithField("component", "builder"),
	}
	s.Poller = &Poller{
		Interval: interval,
		MaxPolls: maxPolls,
		Check:    s.CheckInstall,
		Log:      log.WithField("component", "poller"),
	}
	return s
}

func (s *Steps) ListOrgs(ctx context.Context) (sfdx.OrgListResult, error) {
	resp, err := s.CLI.OrgList(ctx)
	if err != nil {
		return sfdx.OrgListResult{}, err
	}
	if resp.Failed() {
		return sfdx.OrgListResult{}, s.fail("org list", resp, nil)
	}
	var list sfdx.OrgListResult
	if err := resp.Decode(&list); err != nil {
		return sfdx.OrgListResult{}, err
	}
	return list, nil
}

// CheckOrg looks for a scratch org with alias that has not expired. The first
// match wins if the CLI ever reports the alias twice.
func (s *Steps) CheckOrg(ctx context.Context, alias string) (string, bool, error) {
	list, err := s.ListOrgs(ctx)
	if err != nil {
		return "", false, err
	}
	for _, org := range list.ScratchOrgs {
		if org.Alias == nil || *org.Alias != alias || org.IsExpired {
			continue
		}
		expires := ""
		if org.ExpirationDate != nil {
			expires = *org.ExpirationDate
		}
		s.Log.Debugf("Alias : %s, Username : %s, End Date : %s", alias, org.Username, expires)
		return org.Username, true, nil
	}
	return "", false, nil
}

func (s *Steps) CreateScratchOrg(ctx context.Context, req sfdx.ScratchOrgRequest) (string, error) {
	resp, err := s.CLI.CreateScratchOrg(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.Failed() {
		return "", s.fail("create scratch org", resp, nil)
	}
	var res sfdx.ScratchOrgResult
	if err := resp.Decode(&res); err != nil {
		return "", err
	}
	s.Log.Info(color.GreenString("USER: %s", res.Username))
	return res.Username, nil
}

// InstalledPackages returns the subscriber package version ids in the org.
func (s *Steps) InstalledPackages(ctx context.Context, alias string) ([]string, error) {
	resp, err := s.CLI.InstalledPackages(ctx, alias)
	if err != nil {
		return nil, err
	}
	if resp.Failed() {
		return nil, s.fail("installed package list", resp, nil)
	}
	var pkgs []sfdx.InstalledPackage
	if resp.HasResult() {
		if err := resp.Decode(&pkgs); err != nil {
			return nil, err
		}
	}
	ids := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		s.Log.Infof("Name: %s, Version: %s, Version Id: %s", p.SubscriberPackageName, p.SubscriberPackageVersionNumber, p.SubscriberPackageVersionID)
		ids = append(ids, p.SubscriberPackageVersionID)
	}
	return ids, nil
}

// InstallPackage starts the install and blocks until it leaves IN_PROGRESS.
func (s *Steps) InstallPackage(ctx context.Context, alias, packageID string) (string, error) {
	resp, err := s.CLI.InstallPackage(ctx, alias, packageID)
	if err != nil {
		return "", err
	}
	if resp.Failed() {
		return "", s.fail("install package "+packageID, resp, nil)
	}
	var req sfdx.InstallRequest
	if err := resp.Decode(&req); err != nil {
		return "", err
	}
	if req.Status == "" {
		return "", s.malformedInstall("install package "+packageID, resp)
	}

	if req.Status == sfdx.InstallInProgress {
		ticket := InstallTicket{OrgAlias: alias, InstallID: req.ID}
		req, err = s.Poller.Wait(ctx, ticket, req)
		if err != nil {
			return req.Status, err
		}
	}

	if req.Status == sfdx.InstallError {
		failures := req.ErrorMessages()
		s.logFailures(failures)
		return req.Status, &StepError{Step: "install package " + packageID, Message: "install request " + req.ID + " ended in ERROR", Failures: failures}
	}
	s.Log.Info(color.GreenString("Package %s ~ %s", packageID, req.Status))
	return req.Status, nil
}

// CheckInstall asks for the current state of an install request.
func (s *Steps) CheckInstall(ctx context.Context, ticket InstallTicket) (sfdx.InstallRequest, error) {
	resp, err := s.CLI.InstallReport(ctx, ticket.OrgAlias, ticket.InstallID)
	if err != nil {
		return sfdx.InstallRequest{}, err
	}
	if resp.Failed() {
		return sfdx.InstallRequest{}, s.fail("package install report", resp, nil)
	}
	var req sfdx.InstallRequest
	if err := resp.Decode(&req); err != nil {
		return sfdx.InstallRequest{}, err
	}
	if req.Status == "" {
		return sfdx.InstallRequest{}, s.malformedInstall("package install report", resp)
	}
	s.Log.Infof("Checking package install status ~ %s", req.Status)
	return req, nil
}

func (s *Steps) DeploySource(ctx context.Context, alias, path string) error {
	resp, err := s.CLI.DeploySource(ctx, alias, path)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return s.sourceFailure("deploy "+path, resp)
	}
	var res sfdx.DeployResult
	if resp.HasResult() {
		if err := resp.Decode(&res); err != nil {
			return err
		}
	}
	s.logComponents(res.DeployedSource)
	return nil
}

func (s *Steps) PushSource(ctx context.Context, alias string) error {
	resp, err := s.CLI.PushSource(ctx, alias, true)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return s.sourceFailure("source push", resp)
	}
	if !resp.HasResult() {
		return nil
	}
	var res sfdx.PushResult
	if err := resp.Decode(&res); err != nil {
		var flat []sfdx.SourceComponent
		if flatErr := resp.Decode(&flat); flatErr != nil {
			return err
		}
		res.PushedSource = flat
	}
	s.logComponents(res.PushedSource)
	return nil
}

// AssignPermissionSet never fails the build for a reported failure; the set is
// often already assigned. Only transport errors are returned.
func (s *Steps) AssignPermissionSet(ctx context.Context, alias, name string) (bool, error) {
	resp, err := s.CLI.AssignPermissionSet(ctx, alias, name)
	if err != nil {
		return false, err
	}

	var res sfdx.PermSetResult
	if resp.HasResult() {
		if err := resp.Decode(&res); err != nil {
			s.Log.Debugf("permset result not decoded: %v", err)
		}
	}

	if resp.Failed() {
		var msgs []string
		for _, f := range res.Failures {
			msgs = append(msgs, f.Message)
		}
		if len(msgs) == 0 && resp.Message != "" {
			msgs = append(msgs, resp.Message)
		}
		for _, m := range msgs {
			s.Log.Warn(color.HiYellowString("Permission set %s not assigned - %s", name, m))
		}
		s.Log.Debugf("%s", resp)
		return false, nil
	}

	for _, ok := range res.Successes {
		s.Log.Infof("Assigned %s to %s", ok.Value, ok.Name)
	}
	return true, nil
}

// RunScript executes an anonymous Apex file.
func (s *Steps) RunScript(ctx context.Context, alias, file string) error {
	resp, err := s.CLI.ExecuteApex(ctx, alias, file)
	if err != nil {
		return err
	}

	var res sfdx.ApexResult
	if resp.HasResult() {
		if err := resp.Decode(&res); err != nil {
			s.Log.Debugf("apex result not decoded: %v", err)
		}
	}

	if resp.Failed() {
		var failures []string
		if res.CompileProblem != "" {
			failures = append(failures, fmt.Sprintf("CompileProblem: %s (line %d, column %d)", res.CompileProblem, res.Line, res.Column))
		}
		if res.ExceptionMessage != "" {
			failures = append(failures, "ExceptionMessage: "+res.ExceptionMessage)
		}
		return s.fail("run script "+file, resp, failures)
	}

	s.Log.Infof("Compiled: %t, Success: %t", res.Compiled, res.Success)
	if res.Logs != "" {
		s.Log.Debugf("%s", res.Logs)
	}
	return nil
}

func (s *Steps) PublishCommunity(ctx context.Context, alias, site string) error {
	resp, err := s.CLI.PublishCommunity(ctx, alias, site)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return s.fail("publish community "+site, resp, nil)
	}
	var res sfdx.CommunityResult
	if err := resp.Decode(&res); err != nil {
		return err
	}
	s.Log.Infof("Name \t: %s", res.Name)
	s.Log.Infof("Status \t: %s", res.Status)
	s.Log.Infof("url \t: %s", res.URL)
	return nil
}

func (s *Steps) UserDetails(ctx context.Context, alias string) (sfdx.UserDetails, error) {
	resp, err := s.CLI.DisplayUser(ctx, alias)
	if err != nil {
		return sfdx.UserDetails{}, err
	}
	if resp.Failed() {
		return sfdx.UserDetails{}, s.fail("display user", resp, nil)
	}
	var details sfdx.UserDetails
	if err := resp.Decode(&details); err != nil {
		return sfdx.UserDetails{}, err
	}
	return details, nil
}

func (s *Steps) OpenOrg(ctx context.Context, username string) error {
	resp, err := s.CLI.OpenOrg(ctx, username)
	if err != nil {
		return err
	}
	if resp.Failed() {
		return s.fail("open org", resp, nil)
	}
	var res sfdx.OpenResult
	if resp.HasResult() {
		if err := resp.Decode(&res); err == nil && res.URL != "" {
			s.Log.Debugf("Opened %s", res.URL)
		}
	}
	return nil
}

// sourceFailure handles a failed deploy or push. Component level failures
// are preferred over the flat message because they name the broken file.
func (s *Steps) sourceFailure(step string, resp *sfdx.Response) error {
	failures := sourceFailures(resp)
	if len(failures) == 0 && isNothingToDeploy(resp.Message) {
		s.Log.Info(color.HiYellowString("%s: %s", step, resp.Message))
		return nil
	}
	return s.fail(step, resp, failures)
}

func sourceFailures(resp *sfdx.Response) []string {
	if !resp.HasResult() {
		return nil
	}
	var out []string

	var deploy sfdx.DeployResult
	if err := resp.Decode(&deploy); err == nil && deploy.Details != nil {
		for _, f := range deploy.Details.ComponentFailures {
			line := ""
			if f.LineNumber != "" {
				line = fmt.Sprintf(" (line %s)", f.LineNumber)
			}
			out = append(out, fmt.Sprintf("Type: %s, Name: %s, Problem: %s%s", f.ComponentType, f.FullName, f.Problem, line))
		}
		return out
	}

	var files []sfdx.SourceComponent
	if err := resp.Decode(&files); err == nil {
		for _, f := range files {
			if f.Error == "" {
				continue
			}
			out = append(out, fmt.Sprintf("Type: %s, Name: %s, Problem: %s", f.Type, f.FullName, f.Error))
		}
	}
	return out
}

func isNothingToDeploy(message string) bool {
	m := strings.ToLower(message)
	for _, benign := range nothingToDeploy {
		if strings.Contains(m, benign) {
			return true
		}
	}
	return false
}

// malformedInstall reports a status 0 install reply without a request status.
func (s *Steps) malformedInstall(step string, resp *sfdx.Response) error {
	msg := "install request has no Status"
	s.Log.Error(color.RedString("MESSAGE: %s", msg))
	s.Log.Debugf("%s", resp)
	return &StepError{Step: step, Message: msg}
}

func (s *Steps) fail(step string, resp *sfdx.Response, failures []string) error {
	s.logFailures(failures)
	if resp.Message != "" {
		s.Log.Error(color.RedString("MESSAGE: %s", resp.Message))
	}
	s.Log.Debugf("%s", resp)
	return &StepError{Step: step, Message: resp.Message, Failures: failures}
}

func (s *Steps) logFailures(failures []string) {
	for _, f := range failures {
		s.Log.Error(color.RedString("FAILURE: %s", f))
	}
}

func (s *Steps) logComponents(items []sfdx.SourceComponent) {
	for _, item := range items {
		s.Log.Infof("Type: %s, State: %s, Name: %s", item.Type, item.State, item.FullName)
	}
}
