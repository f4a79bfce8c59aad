package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/aggregation"
	"github.com/jonathan/applypilot/internal/observability"
	"github.com/jonathan/applypilot/internal/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the sync core until interrupted",
	Long:  "Cold-load the signed-in user's entities, attach the change feed, and keep the local cache reconciled until interrupted.",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	printer := observability.NewPrinter(os.Stdout)
	a.syncer.OnSynced = func(id types.Identity) {
		profile, hasProfile := a.store.Profile()
		resume, hasResume := a.store.CurrentResume()

		var profilePtr *types.Profile
		if hasProfile {
			profilePtr = &profile
		}
		var resumePtr *types.Resume
		if hasResume {
			resumePtr = &resume
		}

		printer.PrintProfile(profilePtr, aggregation.ProfileCompletion(profilePtr, hasResume), resumePtr)
		printer.PrintDashboard(aggregation.Summarize(a.store.Applications(), a.store.Wishlist()))
	}

	err = a.syncer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
