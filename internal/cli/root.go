// Package cli implements the healthctl command line interface.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/lllypuk/healthd/internal/app"
	"github.com/lllypuk/healthd/internal/config"
	"github.com/lllypuk/healthd/internal/health"
	"github.com/spf13/cobra"
)

// Evaluator runs one health evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context) (health.Report, int)
}

// BuildFunc constructs an evaluator from configuration. The returned close
// function releases every client the evaluator holds.
type BuildFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Evaluator, func() error, error)

// Options holds CLI-level configuration.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Build  BuildFunc
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Build == nil {
		opts.Build = buildContainer
	}

	root := &cobra.Command{
		Use:           "healthctl",
		Short:         "healthd - dependency health checks",
		Long:          "healthctl evaluates the database and cache dependencies once and reports the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	root.AddCommand(newCheckCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// buildContainer wires the same clients as the API server.
func buildContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Evaluator, func() error, error) {
	container, err := app.NewContainer(ctx, cfg, app.WithLogger(logger), app.WithoutStartupPing())
	if err != nil {
		return nil, nil, err
	}
	return container.Checker, container.Close, nil
}
