package builder

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aleksa11010/ScratchOrgBuilder/config"
	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/aleksa11010/ScratchOrgBuilder/sfdx/sfdxtest"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() config.Config {
	return config.Config{
		Duration:   1,
		DevHub:     "hub",
		ScratchDef: "config/project-scratch-def.json",
	}
}

func userDetailsReply() string {
	return sfdxtest.OK(sfdx.UserDetails{
		OrgID:       "00D000000000001",
		Username:    "test-abc@example.com",
		InstanceURL: "https://test1.scratch.my.salesforce.com",
		Alias:       "test1",
		AccessToken: "token",
	})
}

func newTestPipeline(t *testing.T, r *sfdxtest.Runner, cfg config.Config, opts Options) (*Pipeline, *logtest.Hook) {
	t.Helper()
	steps, hook, _ := newTestSteps(t, r)
	return NewPipeline(cfg, steps, opts, steps.Log), hook
}

func TestPipeline_FreshOrgMinimalConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.SrcFolders = config.StringList{"force-app"}

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{}))
	r.On("org", "create", "scratch").Reply(sfdxtest.OK(sfdx.ScratchOrgResult{Username: "test-abc@example.com", OrgID: "00D000000000001"}))
	r.On("force", "source", "push").Reply(sfdxtest.OK(sfdx.PushResult{}))
	r.On("force:source:deploy").Reply(sfdxtest.OK(sfdx.DeployResult{}))
	r.On("org", "display", "user").Reply(userDetailsReply())

	p, _ := newTestPipeline(t, r, cfg, Options{Alias: "test1"})
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"org list --all",
		"org create scratch -f config/project-scratch-def.json -d -y 1 -a test1 -v hub --no-namespace",
		"force source push -u test1 -f -g",
		"force:source:deploy -p force-app -u test1 -g --loglevel fatal",
		"org display user -o test1",
	}, r.Commands())
	assert.Zero(t, r.Count("package"))
	assert.Zero(t, r.Count("org", "assign", "permset"))

	assert.True(t, report.Created)
	assert.Equal(t, "test-abc@example.com", report.Username)
	assert.Equal(t, "https://test1.scratch.my.salesforce.com", report.Details.InstanceURL)
	assert.Len(t, report.RunID, 36)
}

func TestPipeline_NothingToDeployContinues(t *testing.T) {
	cfg := baseConfig()
	cfg.SrcFolders = config.StringList{"force-app", "unpackaged"}

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{}))
	r.On("org", "create", "scratch").Reply(sfdxtest.OK(sfdx.ScratchOrgResult{Username: "test-abc@example.com"}))
	r.On("force", "source", "push").Reply(sfdxtest.OK(sfdx.PushResult{}))
	r.On("force:source:deploy", "-p", "force-app").Reply(sfdxtest.Fail("Nothing to deploy", nil))
	r.On("force:source:deploy", "-p", "unpackaged").Reply(sfdxtest.OK(sfdx.DeployResult{}))
	r.On("org", "display", "user").Reply(userDetailsReply())

	p, _ := newTestPipeline(t, r, cfg, Options{Alias: "test1"})
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Count("force:source:deploy"))
	assert.Equal(t, 1, r.Count("org", "display", "user"))
}

func TestPipeline_PermSetFailureContinues(t *testing.T) {
	cfg := baseConfig()
	cfg.PSets = config.StringList{"Admin", "Recruiter"}
	cfg.SrcFolders = config.StringList{"force-app"}

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{}))
	r.On("org", "create", "scratch").Reply(sfdxtest.OK(sfdx.ScratchOrgResult{Username: "test-abc@example.com"}))
	r.On("force", "source", "push").Reply(sfdxtest.OK(sfdx.PushResult{}))
	r.On("force:source:deploy").Reply(sfdxtest.OK(sfdx.DeployResult{}))
	r.On("org", "assign", "permset", "-n", "Admin").Reply(sfdxtest.Fail("Permission set not found: Admin", nil))
	r.On("org", "assign", "permset", "-n", "Recruiter").Reply(sfdxtest.OK(map[string]interface{}{
		"successes": []map[string]string{{"name": "test-abc@example.com", "value": "Recruiter"}},
	}))
	r.On("org", "display", "user").Reply(userDetailsReply())

	p, _ := newTestPipeline(t, r, cfg, Options{Alias: "test1"})
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Admin"}, report.FailedPermSets)
	assert.Equal(t, 2, r.Count("org", "assign", "permset"))
	assert.Equal(t, 1, r.Count("org", "display", "user"))
}

func TestPipeline_RerunSkipsInstalledPackages(t *testing.T) {
	cfg := baseConfig()
	cfg.PackageIDs = config.StringList{"04tA", "04tB"}

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{
		ScratchOrgs: []sfdx.Org{{Username: "test-abc@example.com", Alias: strPtr("test1")}},
	}))
	r.On("package", "installed", "list").Reply(sfdxtest.OK([]sfdx.InstalledPackage{
		{SubscriberPackageVersionID: "04tA"},
		{SubscriberPackageVersionID: "04tB"},
	}))
	r.On("force", "source", "push").Reply(sfdxtest.Fail("No local changes to deploy", nil))
	r.On("org", "display", "user").Reply(userDetailsReply())

	p, _ := newTestPipeline(t, r, cfg, Options{Alias: "test1"})
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Created)
	assert.Zero(t, r.Count("org", "create"))
	assert.Zero(t, r.Count("package", "install", "-p"))
	assert.Equal(t, []string{"04tA", "04tB"}, report.AlreadyInstalled)
	assert.Empty(t, report.Installed)
}

func TestPipeline_InstallsOnlyMissingPackages(t *testing.T) {
	cfg := baseConfig()
	cfg.PackageIDs = config.StringList{"04tA", "04tB"}

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{
		ScratchOrgs: []sfdx.Org{{Username: "test-abc@example.com", Alias: strPtr("test1")}},
	}))
	r.On("package", "installed", "list").Reply(sfdxtest.OK([]sfdx.InstalledPackage{{SubscriberPackageVersionID: "04tA"}}))
	r.On("package", "install").Reply(installReply(sfdx.InstallSuccess))
	r.On("force", "source", "push").Reply(sfdxtest.OK(sfdx.PushResult{}))
	r.On("org", "display", "user").Reply(userDetailsReply())

	var progress bytes.Buffer
	p, _ := newTestPipeline(t, r, cfg, Options{Alias: "test1", Progress: &progress})
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, r.Count("package", "install", "-p"))
	assert.Equal(t, 1, r.Count("package", "install", "-p", "04tB"))
	assert.Equal(t, []string{"04tB"}, report.Installed)
	assert.Contains(t, progress.String(), "Installing Packages")
}

func TestPipeline_DuplicatePackageIDInstalledOnce(t *testing.T) {
	cfg := baseConfig()
	cfg.PackageIDs = config.StringList{"04tA", "04tB", "04tB", "04tA"}

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{
		ScratchOrgs: []sfdx.Org{{Username: "test-abc@example.com", Alias: strPtr("test1")}},
	}))
	r.On("package", "installed", "list").Reply(sfdxtest.OK([]sfdx.InstalledPackage{{SubscriberPackageVersionID: "04tA"}}))
	r.On("package", "install").Reply(installReply(sfdx.InstallSuccess))
	r.On("force", "source", "push").Reply(sfdxtest.OK(sfdx.PushResult{}))
	r.On("org", "display", "user").Reply(userDetailsReply())

	p, _ := newTestPipeline(t, r, cfg, Options{Alias: "test1"})
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, r.Count("package", "install", "-p", "04tB"))
	assert.Zero(t, r.Count("package", "install", "-p", "04tA"))
	assert.Equal(t, []string{"04tB"}, report.Installed)
	assert.Equal(t, []string{"04tA"}, report.AlreadyInstalled)
}

func TestPipeline_FatalStepStopsRun(t *testing.T) {
	cfg := baseConfig()
	cfg.SrcFolders = config.StringList{"force-app", "unpackaged"}
	cfg.BuildDataCmd = config.StringList{"scripts/apex/data.apex"}

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{}))
	r.On("org", "create", "scratch").Reply(sfdxtest.OK(sfdx.ScratchOrgResult{Username: "test-abc@example.com"}))
	r.On("force", "source", "push").Reply(sfdxtest.OK(sfdx.PushResult{}))
	r.On("force:source:deploy").Reply(sfdxtest.Fail("Deploy failed.", map[string]interface{}{
		"details": map[string]interface{}{
			"componentFailures": map[string]string{"componentType": "ApexClass", "fullName": "Broken", "problem": "syntax"},
		},
	}))

	p, _ := newTestPipeline(t, r, cfg, Options{Alias: "test1"})
	report, err := p.Run(context.Background())

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "deploy force-app", stepErr.Step)
	assert.NotNil(t, report)
	assert.Equal(t, 1, r.Count("force:source:deploy"))
	assert.Zero(t, r.Count("apex"))
	assert.Zero(t, r.Count("org", "display", "user"))
}

func TestPipeline_AllStagesInOrder(t *testing.T) {
	cfg := baseConfig()
	cfg.UseNamespace = true
	cfg.PackageIDs = config.StringList{"04tA"}
	cfg.PreDeploy = config.StringList{"pre"}
	cfg.PackagePSets = config.StringList{"PkgAdmin"}
	cfg.SrcFolders = config.StringList{"force-app"}
	cfg.PSets = config.StringList{"Admin"}
	cfg.TemplateName = "Customer Service"
	cfg.SiteName = "Portal"
	cfg.BuildDataCmd = config.StringList{"scripts/data.apex"}
	cfg.PostDeploy = config.StringList{"post"}

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{}))
	r.On("org", "create", "scratch").Reply(sfdxtest.OK(sfdx.ScratchOrgResult{Username: "test-abc@example.com"}))
	r.On("package", "installed", "list").Reply(sfdxtest.OK([]sfdx.InstalledPackage{}))
	r.On("package", "install").Reply(installReply(sfdx.InstallSuccess))
	r.On("force:source:deploy").Reply(sfdxtest.OK(sfdx.DeployResult{}))
	r.On("org", "assign", "permset").Reply(sfdxtest.OK(sfdx.PermSetResult{}))
	r.On("force", "source", "push").Reply(sfdxtest.OK(sfdx.PushResult{}))
	r.On("apex", "run").Reply(sfdxtest.OK(sfdx.ApexResult{Compiled: true, Success: true}))
	r.On("force:community:publish").Reply(sfdxtest.OK(sfdx.CommunityResult{Name: "Portal", Status: "Published"}))
	r.On("org", "display", "user").Reply(userDetailsReply())

	p, _ := newTestPipeline(t, r, cfg, Options{Alias: "test1", WorkDir: "/work"})
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"org list --all",
		"org create scratch -f /work/config/project-scratch-def.json -d -y 1 -a test1 -v hub",
		"package installed list -o test1",
		"package install -p 04tA -o test1 -r",
		"force:source:deploy -p /work/pre -u test1 -g --loglevel fatal",
		"org assign permset -n PkgAdmin -o test1",
		"force source push -u test1 -f -g",
		"force:source:deploy -p /work/force-app -u test1 -g --loglevel fatal",
		"org assign permset -n Admin -o test1",
		"apex run -f /work/scripts/data.apex -o test1",
		"force:community:publish -u test1 -n Portal",
		"force:source:deploy -p /work/post -u test1 -g --loglevel fatal",
		"org display user -o test1",
	}, r.Commands())
}

func TestPipeline_SkipPush(t *testing.T) {
	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{
		ScratchOrgs: []sfdx.Org{{Username: "test-abc@example.com", Alias: strPtr("test1")}},
	}))
	r.On("org", "display", "user").Reply(userDetailsReply())

	p, _ := newTestPipeline(t, r, baseConfig(), Options{Alias: "test1", SkipPush: true})
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"org list --all", "org display user -o test1"}, r.Commands())
}

func TestPipeline_ProbeFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := sfdxtest.NewRunner()
	r.On("org", "list").Reply(sfdxtest.OK(sfdx.OrgListResult{
		ScratchOrgs: []sfdx.Org{{Username: "test-abc@example.com", Alias: strPtr("test1")}},
	}))
	r.On("org", "display", "user").Reply(sfdxtest.OK(sfdx.UserDetails{Username: "test-abc@example.com", InstanceURL: srv.URL}))

	p, hook := newTestPipeline(t, r, baseConfig(), Options{Alias: "test1", SkipPush: true, Probe: NewInstanceProbe()})
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.APIVersion)
	assert.NotEmpty(t, entriesAt(hook, logrus.WarnLevel))
}
