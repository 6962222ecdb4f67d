package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version string
	baseDir string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Offline-first user directory CLI",
	Long: `roster - An offline-first user directory that keeps a local durable store
and a remote directory service eventually consistent.

All reads come from the local store. Writes apply locally first and are
queued for replay; 'roster sync' drains the queue and reconciles state.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initBaseDir resolves the working directory holding .roster/. ROSTER_DIR
// overrides the current directory.
func initBaseDir() {
	if dir := os.Getenv("ROSTER_DIR"); dir != "" {
		baseDir = dir
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	baseDir = dir
}

func getBaseDir() string {
	if baseDir == "" {
		initBaseDir()
	}
	return baseDir
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.Version = version
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
}
