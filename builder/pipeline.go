package builder

import (
	"context"
	"io"
	"path/filepath"

	"github.com/aleksa11010/ScratchOrgBuilder/config"
	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Alias      string
	AdminEmail string
	// SkipPush leaves out the full project source push.
	SkipPush bool
	// WorkDir is the base for relative source folders and scripts.
	WorkDir string
	// Progress receives progress bars for list stages; nil disables them.
	Progress io.Writer
	// Probe checks the instance URL after the build; nil disables it.
	Probe *InstanceProbe
}

// Report summarizes a finished build.
type Report struct {
	RunID            string
	Alias            string
	Username         string
	Created          bool
	Installed        []string
	AlreadyInstalled []string
	FailedPermSets   []string
	Details          sfdx.UserDetails
	APIVersion       string
}

// Pipeline builds one scratch org. Stages always run in the same order; a
// stage whose config is empty is skipped, and the first error ends the run.
type Pipeline struct {
	Config  config.Config
	Steps   *Steps
	Options Options
	Log     logrus.FieldLogger
}

type stage struct {
	name string
	skip func() bool
	run  func(ctx context.Context, r *Report) error
}

func NewPipeline(cfg config.Config, steps *Steps, opts Options, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{Config: cfg, Steps: steps, Options: opts, Log: log}
}

func (p *Pipeline) stages() []stage {
	cfg := p.Config
	never := func() bool { return false }
	return []stage{
		{"Check if Org Already Exists", never, p.ensureOrg},
		{"Installing Packages", func() bool { return len(cfg.PackageIDs) == 0 }, p.installPackages},
		{"Pre-Deploy Source", func() bool { return len(cfg.PreDeploy) == 0 }, p.deployFolders("Pre-Deploy", cfg.PreDeploy)},
		{"Assigning Package Permission Sets", func() bool { return len(cfg.PackagePSets) == 0 }, p.assignPermSets(cfg.PackagePSets)},
		{"Installing Source", func() bool { return p.Options.SkipPush }, p.pushSource},
		{"Deploy Source Folders", func() bool { return len(cfg.SrcFolders) == 0 }, p.deployFolders("Source", cfg.SrcFolders)},
		{"Assigning Permission Sets", func() bool { return len(cfg.PSets) == 0 }, p.assignPermSets(cfg.PSets)},
		{"Create Community", func() bool { return cfg.TemplateName == "" }, p.createCommunity},
		{"Running Build Data", func() bool { return len(cfg.BuildDataCmd) == 0 }, p.runScripts},
		{"Publish Community", func() bool { return cfg.SiteName == "" }, p.publishCommunity},
		{"Post-Deploy Source", func() bool { return len(cfg.PostDeploy) == 0 }, p.deployFolders("Post-Deploy", cfg.PostDeploy)},
		{"Details", never, p.details},
	}
}

func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID: uuid.NewString(),
		Alias: p.Options.Alias,
	}
	log := p.Log.WithField("category", report.RunID[:8])
	boldCyan := color.New(color.Bold, color.FgBlue)

	log.Info(boldCyan.Sprintf("~~~ Setting up Scratch Org %s ~~~", p.Options.Alias))
	for _, st := range p.stages() {
		if st.skip() {
			log.Debugf("skipping stage %q", st.name)
			continue
		}
		log.Info(boldCyan.Sprintf("~~~ %s ~~~", st.name))
		if err := st.run(ctx, report); err != nil {
			return report, err
		}
	}
	log.Info(color.GreenString("~~~ Scratch Org Complete ~~~"))
	return report, nil
}

func (p *Pipeline) ensureOrg(ctx context.Context, r *Report) error {
	username, found, err := p.Steps.CheckOrg(ctx, p.Options.Alias)
	if err != nil {
		return err
	}
	if found {
		p.Log.Infof("Org %s already exists as %s", p.Options.Alias, username)
		r.Username = username
		return nil
	}

	p.Log.Info(color.New(color.Bold, color.FgBlue).Sprint("~~~ Create New Scratch Org ~~~"))
	username, err = p.Steps.CreateScratchOrg(ctx, sfdx.ScratchOrgRequest{
		Alias:        p.Options.Alias,
		DurationDays: p.Config.Duration,
		DevHub:       p.Config.DevHub,
		Definition:   p.resolve(p.Config.ScratchDef),
		AdminEmail:   p.Options.AdminEmail,
		NoNamespace:  !p.Config.UseNamespace,
		Preview:      p.Config.Preview,
	})
	if err != nil {
		return err
	}
	r.Username = username
	r.Created = true
	return nil
}

// installPackages installs only the configured packages the org lacks, so a
// rebuild of an existing org does not reinstall anything. Each id is handled
// once even if the config lists it twice.
func (p *Pipeline) installPackages(ctx context.Context, r *Report) error {
	installed, err := p.Steps.InstalledPackages(ctx, p.Options.Alias)
	if err != nil {
		return err
	}
	have := make(map[string]struct{}, len(installed))
	for _, id := range installed {
		have[id] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{}, len(p.Config.PackageIDs))
	for _, id := range p.Config.PackageIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := have[id]; ok {
			p.Log.Infof("Package %s is already installed, skipping...", id)
			r.AlreadyInstalled = append(r.AlreadyInstalled, id)
			continue
		}
		missing = append(missing, id)
	}

	bar := newStageBar(p.Options.Progress, "Installing Packages", len(missing))
	defer bar.done()
	for _, id := range missing {
		p.Log.Infof("~~~ Installing Package %s ~~~", id)
		if _, err := p.Steps.InstallPackage(ctx, p.Options.Alias, id); err != nil {
			return err
		}
		r.Installed = append(r.Installed, id)
		bar.step()
	}
	return nil
}

func (p *Pipeline) deployFolders(title string, folders []string) func(context.Context, *Report) error {
	return func(ctx context.Context, _ *Report) error {
		bar := newStageBar(p.Options.Progress, title, len(folders))
		defer bar.done()
		for _, folder := range folders {
			p.Log.Infof("~~~ Installing Source (%s) ~~~", folder)
			if err := p.Steps.DeploySource(ctx, p.Options.Alias, p.resolve(folder)); err != nil {
				return err
			}
			bar.step()
		}
		return nil
	}
}

// assignPermSets records failures in the report and carries on.
func (p *Pipeline) assignPermSets(names []string) func(context.Context, *Report) error {
	return func(ctx context.Context, r *Report) error {
		bar := newStageBar(p.Options.Progress, "Permission Sets", len(names))
		defer bar.done()
		for _, name := range names {
			p.Log.Infof("~~~ Installing Permission Set (%s) ~~~", name)
			ok, err := p.Steps.AssignPermissionSet(ctx, p.Options.Alias, name)
			if err != nil {
				return err
			}
			if !ok {
				r.FailedPermSets = append(r.FailedPermSets, name)
			}
			bar.step()
		}
		return nil
	}
}

func (p *Pipeline) pushSource(ctx context.Context, _ *Report) error {
	return p.Steps.PushSource(ctx, p.Options.Alias)
}

// createCommunity only announces the site. Creating it from the template is
// not automated; the site is expected to come from source.
func (p *Pipeline) createCommunity(_ context.Context, _ *Report) error {
	p.Log.Infof("Create Community(%s) from template %s", p.Config.SiteName, p.Config.TemplateName)
	return nil
}

func (p *Pipeline) runScripts(ctx context.Context, _ *Report) error {
	bar := newStageBar(p.Options.Progress, "Build Data", len(p.Config.BuildDataCmd))
	defer bar.done()
	for _, script := range p.Config.BuildDataCmd {
		p.Log.Infof("~~~ Running Build data(%s) ~~~", script)
		if err := p.Steps.RunScript(ctx, p.Options.Alias, p.resolve(script)); err != nil {
			return err
		}
		bar.step()
	}
	return nil
}

func (p *Pipeline) publishCommunity(ctx context.Context, _ *Report) error {
	p.Log.Infof("~~~ Publish Community(%s) ~~~", p.Config.SiteName)
	return p.Steps.PublishCommunity(ctx, p.Options.Alias, p.Config.SiteName)
}

func (p *Pipeline) details(ctx context.Context, r *Report) error {
	details, err := p.Steps.UserDetails(ctx, p.Options.Alias)
	if err != nil {
		return err
	}
	r.Details = details
	if r.Username == "" {
		r.Username = details.Username
	}
	p.Log.Infof("OrgId \t: %s", details.OrgID)
	p.Log.Infof("Username \t: %s", details.Username)
	p.Log.Infof("Url \t: %s", details.InstanceURL)
	p.Log.Infof("Alias \t: %s", details.Alias)

	if p.Options.Probe == nil {
		return nil
	}
	version, err := p.Options.Probe.LatestAPIVersion(ctx, details.InstanceURL)
	if err != nil {
		p.Log.Warn(color.HiYellowString("Instance %s did not answer - %s", details.InstanceURL, err))
		return nil
	}
	r.APIVersion = version.Version
	p.Log.Infof("API \t: %s (%s)", version.Version, version.Label)
	return nil
}

func (p *Pipeline) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.Options.WorkDir == "" {
		return path
	}
	return filepath.Join(p.Options.WorkDir, path)
}
