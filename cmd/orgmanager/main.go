package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/aleksa11010/ScratchOrgBuilder/builder"
	"github.com/aleksa11010/ScratchOrgBuilder/config"
	"github.com/aleksa11010/ScratchOrgBuilder/logging"
	"github.com/aleksa11010/ScratchOrgBuilder/orgs"
	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/fatih/color"
)

func main() {
	debug := flag.Bool("debug", false, "Log CLI arguments and responses.")
	cachePath := flag.String("cache", orgs.DefaultSnapshotPath, "Provide the org list snapshot file.")
	envFile := flag.String("env", ".env", "Provide a dotenv file.")

	flag.Parse()

	_, envErr := config.LoadEnv(*envFile)
	log := logging.New(*debug, config.LogLevel())
	if envErr != nil {
		log.Error(color.RedString("Unable to read env file - %s", envErr))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := sfdx.New(config.SfdxCommand(), log)
	steps := builder.NewSteps(cli, log, config.DefaultPollInterval, 0)

	// The background refresh is not waited for; a run that exits first
	// leaves the old snapshot in place.
	cache := orgs.NewCache(*cachePath, steps.ListOrgs, log)
	listing, err := cache.Get(ctx)
	if err != nil {
		log.Error(color.RedString("Unable to list orgs - %s", err))
		stop()
		os.Exit(1)
	}
	if listing.FromSnapshot {
		log.Debugf("Showing org list saved %s", listing.UpdatedAt.Format("02-Jan-06 15:04:05"))
	}

	selector := orgs.NewSelector(os.Stdin, os.Stdout, steps, log)
	if err := selector.Run(ctx, orgs.BuildIndex(listing.Orgs)); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error(color.RedString("%s", err))
		stop()
		os.Exit(1)
	}
}
