package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/marcus/roster/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Update a user's fields",
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

		cur, err := a.DB.GetByID(id)
		if err != nil {
			output.Error("load user: %v", err)
			return err
		}
		if cur == nil {
			output.Error("no user with id %d", id)
			return fmt.Errorf("no user with id %d", id)
		}

		u := *cur
		touched := false
		cmd.Flags().Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "email":
				u.Email = f.Value.String()
			case "first":
				u.FirstName = f.Value.String()
			case "last":
				u.LastName = f.Value.String()
			case "avatar":
				u.AvatarURL = f.Value.String()
			default:
				return
			}
			touched = true
		})
		if !touched {
			output.Warning("nothing to update; pass --email, --first, --last or --avatar")
			return nil
		}

		updated, err := a.Cached.Update(context.Background(), u)
		if err != nil {
			output.Error("update user: %v", err)
			return err
		}

		output.Success("updated %s (version %d)", updated.DisplayName(), updated.Version)
		return nil
	},
}

func init() {
	updateCmd.Flags().String("email", "", "new email")
	updateCmd.Flags().String("first", "", "new first name")
	updateCmd.Flags().String("last", "", "new last name")
	updateCmd.Flags().String("avatar", "", "new avatar URL")
	updateCmd.Flags().Bool("offline", false, "skip connectivity checks")
	rootCmd.AddCommand(updateCmd)
}
