// Command api serves the reconcile status API and runs reconcile jobs on
// request.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/eshaffer321/ledger-reconciler/internal/cli"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/config"
)

func main() {
	flags, err := cli.ParseServeFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(cli.ExitOK)
	}
	if err != nil {
		os.Exit(cli.ExitConfigError)
	}

	cfg := config.LoadOrEnvWithPath(flags.ConfigPath)

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
