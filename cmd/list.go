package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcus/roster/internal/output"
	"github.com/marcus/roster/internal/repo"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users (paged, or --all for the full local snapshot)",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		all, _ := cmd.Flags().GetBool("all")
		offline, _ := cmd.Flags().GetBool("offline")

		a, err := openApp(offline)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		ctx := context.Background()

		if all {
			users, err := a.DB.All()
			if err != nil {
				output.Error("read users: %v", err)
				return err
			}
			fmt.Println(output.UserList(users))
			return nil
		}

		users, totalPages, err := a.Cached.ReadPage(ctx, page)
		if err != nil {
			if errors.Is(err, repo.ErrInvalidPage) {
				output.Error("page %d is out of range", page)
				return err
			}
			output.Error("read page: %v", err)
			return err
		}

		fmt.Println(output.UserList(users))
		output.Info("page %d of %d", page, totalPages)
		return nil
	},
}

func init() {
	listCmd.Flags().IntP("page", "p", 1, "page number")
	listCmd.Flags().Bool("all", false, "show the full local snapshot")
	listCmd.Flags().Bool("offline", false, "skip connectivity checks")
	rootCmd.AddCommand(listCmd)
}
