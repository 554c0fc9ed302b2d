// Command reconcile matches budgeting-ledger transactions to retailer
// orders and writes an itemized memo onto each confident match.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/ledger-reconciler/internal/cli"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/config"
)

func main() {
	flags, err := cli.ParseReconcileFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(cli.ExitOK)
	}
	if err != nil {
		os.Exit(cli.ExitConfigError)
	}

	cfg := config.LoadOrEnvWithPath(flags.ConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.RunReconcile(ctx, cfg, flags, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(cli.ExitCode(err))
	}
}
