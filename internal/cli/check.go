package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lllypuk/healthd/internal/app"
	"github.com/lllypuk/healthd/internal/config"
	"github.com/spf13/cobra"
)

// ErrDegraded is returned by the check command when any dependency is down.
var ErrDegraded = errors.New("dependencies degraded")

func newCheckCommand(opts Options) *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the database and cache once",
		Long: "Runs a single health evaluation with the server's configuration, prints the report " +
			"as JSON and exits non-zero when the status is degraded.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromPath(configPath)
			if err != nil {
				return err
			}
			if timeout > 0 {
				cfg.Health.ProbeTimeout = timeout
			}
			return runCheck(cmd.Context(), opts, cfg, quiet)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "per-probe timeout (overrides health.probe_timeout)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the report")
	return cmd
}

func runCheck(ctx context.Context, opts Options, cfg *config.Config, quiet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := app.NewLogger(cfg, opts.Stderr)

	evaluator, closeFn, err := opts.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build checker: %w", err)
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()

	report, _ := evaluator.Evaluate(ctx)

	if !quiet {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return fmt.Errorf("write report: %w", encErr)
		}
	}

	if !report.Checks.Healthy() {
		return ErrDegraded
	}
	return nil
}
