package cmd

import (
	"context"

	"github.com/marcus/roster/internal/models"
	"github.com/marcus/roster/internal/output"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:     "add <email> <first> <last>",
	Short:   "Add a user (applies locally at once, replicates when online)",
	GroupID: "data",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		avatar, _ := cmd.Flags().GetString("avatar")
		offline, _ := cmd.Flags().GetBool("offline")

		a, err := openApp(offline)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		created, err := a.Cached.Create(context.Background(), models.User{
			Email:     args[0],
			FirstName: args[1],
			LastName:  args[2],
			AvatarURL: avatar,
		})
		if err != nil {
			output.Error("add user: %v", err)
			return err
		}

		if created.Pending() {
			output.Success("added %s (placeholder id %d, queued for sync)", created.DisplayName(), created.ID)
		} else {
			output.Success("added %s", created.DisplayName())
		}
		return nil
	},
}

func init() {
	addCmd.Flags().String("avatar", "", "avatar URL")
	addCmd.Flags().Bool("offline", false, "skip connectivity checks")
	rootCmd.AddCommand(addCmd)
}
