package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/numeval/numeval/pkg/config"
	"github.com/numeval/numeval/pkg/engine"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "numeval",
		Short: "numeval - certified arbitrary-precision numerical evaluation",
		Long: `numeval evaluates symbolic expressions to any requested decimal accuracy
with a certified error bound: every printed digit is backed by interval
(ball) arithmetic, and the working precision escalates automatically until
the request is met.

Beyond plain expressions it sums infinite series, integrates over finite
and infinite domains (tanh-sinh and oscillatory quadrature), and runs the
inverse direction: recognizing the closed form behind a numeric value.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newEvalCommand())
	rootCmd.AddCommand(newIntegrateCommand())
	rootCmd.AddCommand(newSumCommand())
	rootCmd.AddCommand(newRecognizeCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}

// loadEngine builds the engine from the shared flags.
func loadEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return engine.New(ctx, cfg)
}
