package cmd

import (
	"github.com/marcus/roster/internal/db"
	"github.com/marcus/roster/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local roster database",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Initialize(getBaseDir())
		if err != nil {
			output.Error("initialize database: %v", err)
			return err
		}
		defer database.Close()

		output.Success("initialized roster database in %s/.roster", getBaseDir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
