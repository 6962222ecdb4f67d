package cmd

import (
	"context"
	"strconv"

	"github.com/marcus/roster/internal/output"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a user",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			output.Error("invalid id %q", args[0])
			return err
		}
		offline, _ := cmd.Flags().GetBool("offline")

		a, err := openApp(offline)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Cached.Delete(context.Background(), id); err != nil {
			output.Error("remove user: %v", err)
			return err
		}

		output.Success("removed user %d", id)
		return nil
	},
}

func init() {
	removeCmd.Flags().Bool("offline", false, "skip connectivity checks")
	rootCmd.AddCommand(removeCmd)
}
