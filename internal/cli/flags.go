package cli

import (
	"flag"
	"io"

	"github.com/eshaffer321/ledger-reconciler/internal/application/reconcile"
)

// ReconcileFlags are the flags of the reconcile command
type ReconcileFlags struct {
	ConfigPath   string
	DryRun       bool
	LookbackDays int
	MaxOrders    int
	Verbose      bool
}

// ParseReconcileFlags parses the reconcile command line. A zero -days
// means "use the configured lookback".
func ParseReconcileFlags(args []string, output io.Writer) (*ReconcileFlags, error) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(output)

	flags := &ReconcileFlags{}
	fs.StringVar(&flags.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Match and report without writing memos")
	fs.IntVar(&flags.LookbackDays, "days", 0, "Number of days to look back (0 = config value)")
	fs.IntVar(&flags.MaxOrders, "max", 0, "Maximum orders per source (0 = all)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// ToOptions converts the flags to reconcile options. defaultLookback is
// used when -days was not given.
func (f ReconcileFlags) ToOptions(defaultLookback int) reconcile.Options {
	days := f.LookbackDays
	if days <= 0 {
		days = defaultLookback
	}
	return reconcile.Options{
		DryRun:       f.DryRun,
		LookbackDays: days,
		MaxOrders:    f.MaxOrders,
	}
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	Addr       string
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string, output io.Writer) (*ServeFlags, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(output)

	flags := &ServeFlags{}
	fs.StringVar(&flags.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.StringVar(&flags.Addr, "addr", "", "Listen address (default: api.addr from config)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}
