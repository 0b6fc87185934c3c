package sfdx

import (
	"context"
	"strconv"
)

type ScratchOrgRequest struct {
	Alias        string
	DurationDays int
	DevHub       string
	Definition   string
	AdminEmail   string
	NoNamespace  bool
	Preview      bool
}

func (c *CLI) OrgList(ctx context.Context) (*Response, error) {
	return c.Invoke(ctx, "org", "list", "--all")
}

func (c *CLI) CreateScratchOrg(ctx context.Context, req ScratchOrgRequest) (*Response, error) {
	args := []string{
		"org", "create", "scratch",
		"-f", req.Definition,
		"-d",
		"-y", strconv.Itoa(req.DurationDays),
		"-a", req.Alias,
		"-v", req.DevHub,
	}
	if req.AdminEmail != "" {
		args = append(args, "--admin-email", req.AdminEmail)
	}
	if req.NoNamespace {
		args = append(args, "--no-namespace")
	}
	if req.Preview {
		args = append(args, "--release", "preview")
	}
	return c.Invoke(ctx, args...)
}

func (c *CLI) InstalledPackages(ctx context.Context, alias string) (*Response, error) {
	return c.Invoke(ctx, "package", "installed", "list", "-o", alias)
}

func (c *CLI) InstallPackage(ctx context.Context, alias, packageID string) (*Response, error) {
	return c.Invoke(ctx, "package", "install", "-p", packageID, "-o", alias, "-r")
}

func (c *CLI) InstallReport(ctx context.Context, alias, requestID string) (*Response, error) {
	return c.Invoke(ctx, "package", "install", "report", "-i", requestID, "-o", alias)
}

func (c *CLI) DeploySource(ctx context.Context, alias, path string) (*Response, error) {
	return c.Invoke(ctx, "force:source:deploy", "-p", path, "-u", alias, "-g", "--loglevel", "fatal")
}

// PushSource pushes the whole project. force overwrites conflicts and ignores
// warnings, matching how scratch orgs are rebuilt from source control.
func (c *CLI) PushSource(ctx context.Context, alias string, force bool) (*Response, error) {
	args := []string{"force", "source", "push", "-u", alias}
	if force {
		args = append(args, "-f", "-g")
	}
	return c.Invoke(ctx, args...)
}

func (c *CLI) AssignPermissionSet(ctx context.Context, alias, name string) (*Response, error) {
	return c.Invoke(ctx, "org", "assign", "permset", "-n", name, "-o", alias)
}

func (c *CLI) ExecuteApex(ctx context.Context, alias, file string) (*Response, error) {
	return c.Invoke(ctx, "apex", "run", "-f", file, "-o", alias)
}

func (c *CLI) PublishCommunity(ctx context.Context, alias, name string) (*Response, error) {
	return c.Invoke(ctx, "force:community:publish", "-u", alias, "-n", name)
}

func (c *CLI) DisplayUser(ctx context.Context, alias string) (*Response, error) {
	return c.Invoke(ctx, "org", "display", "user", "-o", alias)
}

func (c *CLI) OpenOrg(ctx context.Context, username string) (*Response, error) {
	return c.Invoke(ctx, "org", "open", "-o", username)
}
