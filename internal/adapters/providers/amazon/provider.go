// Package amazon provides an OrderSource that reads Amazon orders from the
// amazon-order-scraper CLI (npm package), either by shelling out to it or
// by reading a JSON export it produced earlier.
//
// The CLI must be installed globally or available via npx:
//
//	npm install -g amazon-order-scraper
//
// Authentication is managed by the CLI - run `amazon-scraper --login` to authenticate.
package amazon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// ErrLoginRequired is returned when the CLI exits with its auth-required code
var ErrLoginRequired = errors.New("amazon login required: run 'amazon-scraper --login' to authenticate")

const defaultLookbackDays = 14

// validProfilePattern matches alphanumeric, dash, and underscore characters only
var validProfilePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// isValidProfile checks if a profile name is safe to pass to the CLI
func isValidProfile(profile string) bool {
	if profile == "" {
		return true
	}
	return validProfilePattern.MatchString(profile)
}

// Config holds configuration for the Amazon source
type Config struct {
	Profile      string // CLI profile for multi-account support
	Headless     bool   // run the browser headless (cron runs)
	LookbackDays int    // used when FetchOptions carries no dates
	OrdersFile   string // read CLI JSON from disk instead of running the CLI
	Retailer     string // retailer name stamped on orders, defaults to "Amazon"
}

// Source implements providers.OrderSource for Amazon
type Source struct {
	logger       *slog.Logger
	profile      string
	headless     bool
	lookbackDays int
	ordersFile   string
	retailer     string

	// run executes the CLI with args and returns stdout
	run func(ctx context.Context, args []string) ([]byte, error)
}

var _ providers.OrderSource = (*Source)(nil)

// NewSource creates a new Amazon order source
func NewSource(logger *slog.Logger, cfg *Config) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &Config{}
	}

	s := &Source{
		logger:       logger.With(slog.String("source", "amazon")),
		headless:     cfg.Headless,
		lookbackDays: cfg.LookbackDays,
		ordersFile:   cfg.OrdersFile,
		retailer:     cfg.Retailer,
	}
	// Validate profile name to prevent command injection
	if isValidProfile(cfg.Profile) {
		s.profile = cfg.Profile
	} else {
		s.logger.Warn("invalid profile name ignored (must be alphanumeric, dash, or underscore)",
			slog.String("profile", cfg.Profile))
	}
	if s.lookbackDays <= 0 {
		s.lookbackDays = defaultLookbackDays
	}
	if s.retailer == "" {
		s.retailer = "Amazon"
	}
	s.run = s.executeCLI
	return s
}

// Name returns the source identifier
func (s *Source) Name() string {
	return "amazon"
}

// Retailer returns the retailer name stamped on orders
func (s *Source) Retailer() string {
	return s.retailer
}

// FetchOrders returns purchase and return orders whose order date falls
// within the requested range
func (s *Source) FetchOrders(ctx context.Context, opts providers.FetchOptions) ([]model.Order, error) {
	s.logger.Info("fetching orders",
		slog.Time("start_date", opts.StartDate),
		slog.Time("end_date", opts.EndDate),
		slog.Int("max_orders", opts.MaxOrders),
	)

	output, err := s.readOutput(ctx, opts)
	if err != nil {
		return nil, err
	}

	cliOutput, err := ParseCLIOutputBytes(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CLI output: %w", err)
	}
	s.logger.Info("fetched orders from CLI", slog.Int("count", len(cliOutput.Orders)))

	var orders []model.Order
	kept := 0
	for _, cliOrder := range cliOutput.Orders {
		if opts.MaxOrders > 0 && kept >= opts.MaxOrders {
			break
		}

		parsed, err := ConvertCLIOrder(cliOrder)
		if err != nil {
			s.logger.Warn("failed to parse order, skipping",
				slog.String("order_id", cliOrder.OrderID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !opts.InRange(parsed.Date) {
			continue
		}
		kept++

		converted, err := ToOrders(parsed, s.retailer, s.logger)
		if err != nil {
			s.logger.Debug("purchase not matchable",
				slog.String("order_id", parsed.ID),
				slog.String("reason", err.Error()))
		}
		orders = append(orders, converted...)
	}

	s.logger.Info("processed orders", slog.Int("count", len(orders)))
	return orders, nil
}

func (s *Source) readOutput(ctx context.Context, opts providers.FetchOptions) ([]byte, error) {
	if s.ordersFile != "" {
		data, err := os.ReadFile(s.ordersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read orders file: %w", err)
		}
		return data, nil
	}
	return s.run(ctx, s.buildCLIArgs(opts))
}

// buildCLIArgs builds the command line arguments for amazon-order-scraper
func (s *Source) buildCLIArgs(opts providers.FetchOptions) []string {
	var args []string

	if !opts.StartDate.IsZero() {
		args = append(args, "--since", opts.StartDate.Format("2006-01-02"))
	}
	if !opts.EndDate.IsZero() {
		args = append(args, "--until", opts.EndDate.Format("2006-01-02"))
	}
	if opts.StartDate.IsZero() && opts.EndDate.IsZero() {
		args = append(args, "--days", strconv.Itoa(s.lookbackDays))
	}

	if s.profile != "" {
		args = append(args, "--profile", s.profile)
	}
	if s.headless {
		args = append(args, "--headless")
	}

	// Always output to stdout for parsing
	args = append(args, "--stdout")
	return args
}

// executeCLI executes the amazon-order-scraper CLI and returns stdout
func (s *Source) executeCLI(ctx context.Context, args []string) ([]byte, error) {
	cmd := s.command(ctx, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 2 {
				return nil, ErrLoginRequired
			}
			return nil, fmt.Errorf("CLI failed (exit %d): %s", exitErr.ExitCode(), stderr.String())
		}
		return nil, fmt.Errorf("failed to execute CLI: %w", err)
	}

	return stdout.Bytes(), nil
}

// command builds the CLI invocation, preferring a global install over npx
func (s *Source) command(ctx context.Context, args ...string) *exec.Cmd {
	if path, err := exec.LookPath("amazon-scraper"); err == nil {
		s.logger.Debug("executing CLI directly", slog.String("path", path), slog.Any("args", args))
		return exec.CommandContext(ctx, path, args...)
	}

	npx := "npx"
	if path, err := exec.LookPath("npx"); err == nil {
		npx = path
	}
	npxArgs := append([]string{"amazon-order-scraper"}, args...)
	s.logger.Debug("executing CLI via npx", slog.Any("args", npxArgs))
	return exec.CommandContext(ctx, npx, npxArgs...)
}

// HealthCheck verifies the orders file is readable or the CLI can start
func (s *Source) HealthCheck(ctx context.Context) error {
	if s.ordersFile != "" {
		if _, err := os.Stat(s.ordersFile); err != nil {
			return fmt.Errorf("orders file not available: %w", err)
		}
		return nil
	}
	if err := s.command(ctx, "--help").Run(); err != nil {
		return fmt.Errorf("amazon-order-scraper CLI not available: %w", err)
	}
	return nil
}
