package commands

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/araujobsd/ndmpd/internal/cli/output"
	"github.com/araujobsd/ndmpd/pkg/config"
)

var statusTimeout time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the NDMP control port is reachable",
	Long: `Check whether the NDMP control-connection listener configured in
config.server.addr is accepting TCP connections.

ndmpd runs in the foreground; this command does not track a PID, it
only probes the listener.

Examples:
  # Check the configured server
  ndmpd status

  # Check with a custom config file
  ndmpd status --config /etc/ndmpd/config.yaml`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 2*time.Second, "dial timeout")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reachable := true
	detail := "accepting connections"
	conn, err := net.DialTimeout("tcp", cfg.Server.Addr, statusTimeout)
	if err != nil {
		reachable = false
		detail = err.Error()
	} else {
		_ = conn.Close()
	}

	status := "DOWN"
	if reachable {
		status = "UP"
	}

	return output.SimpleTable(os.Stdout, [][2]string{
		{"addr", cfg.Server.Addr},
		{"status", status},
		{"detail", detail},
	})
}
