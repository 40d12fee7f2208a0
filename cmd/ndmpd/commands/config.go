package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/araujobsd/ndmpd/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage ndmpd configuration files.

Subcommands:
  show   Display the effective configuration`,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration as YAML",
	Long: `Display the configuration ndmpd would load: file values merged over
defaults, with NDMPD_* environment overrides applied.

Examples:
  # Show the configuration at the default location
  ndmpd config show

  # Show a specific config file
  ndmpd config show --config /etc/ndmpd/config.yaml`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(cfg)
}
