package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/aleksa11010/ScratchOrgBuilder/builder"
	"github.com/aleksa11010/ScratchOrgBuilder/config"
	"github.com/aleksa11010/ScratchOrgBuilder/logging"
	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/fatih/color"
)

type buildFlags struct {
	alias      string
	duration   int
	devHub     string
	adminEmail string
	debug      bool
	skipPush   bool
	configFile string
	envFile    string
	noProbe    bool
	noProgress bool
}

func main() {
	f := buildFlags{}
	flag.StringVar(&f.alias, "a", "", "Alias for the scratch org (required).")
	flag.StringVar(&f.alias, "alias", "", "Alias for the scratch org (required).")
	flag.IntVar(&f.duration, "d", 0, "Days until the scratch org expires (1-30). Overrides DURATION.")
	flag.IntVar(&f.duration, "duration", 0, "Days until the scratch org expires (1-30). Overrides DURATION.")
	flag.StringVar(&f.devHub, "v", "", "Dev Hub username or alias. Overrides DEVHUB.")
	flag.StringVar(&f.devHub, "devhub", "", "Dev Hub username or alias. Overrides DEVHUB.")
	flag.StringVar(&f.adminEmail, "e", "", "Email address for the scratch org admin user.")
	flag.StringVar(&f.adminEmail, "email", "", "Email address for the scratch org admin user.")
	flag.BoolVar(&f.debug, "debug", false, "Log CLI arguments and responses.")
	flag.BoolVar(&f.skipPush, "skip-push", false, "Do not push the full project source.")
	flag.StringVar(&f.configFile, "config", config.DefaultPath, "Provide a config file (.yml, .json or .toml).")
	flag.StringVar(&f.envFile, "env", ".env", "Provide a dotenv file.")
	flag.BoolVar(&f.noProbe, "no-probe", false, "Do not check the instance URL after the build.")
	flag.BoolVar(&f.noProgress, "no-progress", false, "Do not draw progress bars.")

	flag.Parse()

	if f.alias == "" {
		fmt.Fprintln(flag.CommandLine.Output(), "Scratch org alias is required.")
		flag.Usage()
		return
	}

	if err := run(f); err != nil {
		os.Exit(1)
	}
}

func run(f buildFlags) error {
	// The dotenv file can set LOG_LEVEL, so it is read before the logger exists.
	envLoaded, envErr := config.LoadEnv(f.envFile)
	log := logging.New(f.debug, config.LogLevel())
	if envErr != nil {
		log.Error(color.RedString("Unable to read env file - %s", envErr))
		return envErr
	}
	if envLoaded {
		log.Debugf("Loaded environment from %s", f.envFile)
	}

	cfg, err := config.Load(f.configFile)
	if err != nil {
		log.Error(color.RedString("Unable to load config - %s", err))
		return err
	}
	cfg, err = cfg.WithOverrides(config.Overrides{Duration: f.duration, DevHub: f.devHub})
	if err != nil {
		log.Error(color.RedString("Invalid command line value - %s", err))
		return err
	}

	cli := sfdx.New(config.SfdxCommand(), log)
	steps := builder.NewSteps(cli, log, cfg.PollInterval(), cfg.MaxPolls)

	workDir, err := os.Getwd()
	if err != nil {
		log.Error(color.RedString("Unable to resolve working directory - %s", err))
		return err
	}
	opts := builder.Options{
		Alias:      f.alias,
		AdminEmail: f.adminEmail,
		SkipPush:   f.skipPush,
		WorkDir:    workDir,
	}
	if !f.noProgress {
		opts.Progress = os.Stderr
	}
	if !f.noProbe {
		opts.Probe = builder.NewInstanceProbe()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := builder.NewPipeline(cfg, steps, opts, log).Run(ctx)
	if err != nil {
		var stepErr *builder.StepError
		switch {
		case errors.As(err, &stepErr):
			log.Error(color.RedString("Build stopped at %s", stepErr.Step))
		case errors.Is(err, builder.ErrPollLimit):
			log.Error(color.RedString("Gave up waiting for a package install - %s", err))
		case errors.Is(err, context.Canceled):
			log.Error(color.RedString("Build interrupted"))
		default:
			log.Error(color.RedString("Build failed - %s", err))
		}
		return err
	}

	log.Infof("Run %s finished for %s (%s)", report.RunID, report.Alias, report.Username)
	if len(report.FailedPermSets) > 0 {
		log.Warn(color.HiYellowString("Permission sets not assigned: %v", report.FailedPermSets))
	}
	return nil
}
