// Command ndmpd runs the NDMP backup server: the CONNECT/CONFIG/DATA/
// MOVER control-connection dispatcher.
package main

import (
	"fmt"
	"os"

	"github.com/araujobsd/ndmpd/cmd/ndmpd/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
