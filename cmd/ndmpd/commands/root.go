// Package commands implements the ndmpd CLI: serve, status, and config
// management.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time by main.main.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// cfgFile is the global --config flag.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ndmpd",
	Short: "ndmpd - NDMP backup server",
	Long: `ndmpd implements the Network Data Management Protocol (NDMP) v3/v4
control connection: CONNECT/CONFIG version negotiation, the DATA and
MOVER subsystem state machines, and pluggable tar/dump archive formats
reading from and writing to a local-file or S3-backed virtual tape.

Use "ndmpd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for tests.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/ndmpd/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("ndmpd %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
