package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/marcus/roster/internal/output"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream live local snapshots until interrupted",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		for snapshot := range a.Cached.Read(ctx) {
			fmt.Println(output.UserList(snapshot))
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
