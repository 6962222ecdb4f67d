package cmd

import (
	"context"
	"fmt"

	"github.com/marcus/roster/internal/output"
	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:     "count",
	Short:   "Total user count (remote when reachable, local otherwise)",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		offline, _ := cmd.Flags().GetBool("offline")

		a, err := openApp(offline)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		n, err := a.Cached.TotalCount(context.Background())
		if err != nil {
			output.Error("count users: %v", err)
			return err
		}

		fmt.Println(n)
		return nil
	},
}

func init() {
	countCmd.Flags().Bool("offline", false, "skip connectivity checks")
	rootCmd.AddCommand(countCmd)
}
