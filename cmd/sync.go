package cmd

import (
	"context"

	"github.com/marcus/roster/internal/output"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Drain queued changes and reconcile with the remote directory",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusOnly, _ := cmd.Flags().GetBool("status")
		offline, _ := cmd.Flags().GetBool("offline")

		a, err := openApp(offline)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if statusOnly {
			return runSyncStatus(a)
		}

		if a.Cached.Sync(context.Background()) {
			output.Success("sync complete")
			return nil
		}

		pending, err := a.Store.PendingChanges()
		if err == nil && pending > 0 {
			output.Warning("sync did not run to completion; %d change(s) still queued", pending)
		} else {
			output.Warning("sync did not run to completion")
		}
		return nil
	},
}

func runSyncStatus(a *app) error {
	pending, err := a.Store.PendingChanges()
	if err != nil {
		output.Error("count pending: %v", err)
		return err
	}
	local, err := a.DB.Count()
	if err != nil {
		output.Error("count users: %v", err)
		return err
	}

	stats := a.Cached.Stats()
	output.Info("local users:     %d", local)
	output.Info("queued changes:  %d", pending)
	output.Info("cache pages:     %d (hits %d, misses %d, evictions %d)",
		stats.CachedPages, stats.Hits, stats.Misses, stats.Evictions)
	return nil
}

func init() {
	syncCmd.Flags().Bool("status", false, "show queue depth and cache stats")
	syncCmd.Flags().Bool("offline", false, "skip connectivity checks")
	rootCmd.AddCommand(syncCmd)
}
