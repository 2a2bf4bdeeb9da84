package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/lineage/internal/config"
	"github.com/roach88/lineage/internal/harness"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Scenario string
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scenario through a live engine",
		Long: `Register a scenario's steps, run its checks and print the trails.

Without --scenario the built-in accumulator scenario runs. Without --config
the engine keeps records in memory only; with --config it is built from the
configuration, so its external sinks receive every record and the trail
command can replay them afterwards.

Examples:
  lineage demo
  lineage demo --scenario pricing.yaml --format json
  lineage demo --config lineage.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "path to a scenario file (default: built-in)")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logger, err := opts.logger()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to build logger", err, nil)
	}
	defer func() { _ = logger.Sync() }()

	scenario, err := loadDemoScenario(opts.Scenario)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, "failed to load scenario", err, nil)
	}
	formatter.VerboseLog("running scenario %s (%d steps)", scenario.Name, len(scenario.Steps))

	var result *harness.Result
	if opts.Config == "" {
		result, err = harness.RunWithLogger(scenario, logger)
	} else {
		result, err = runConfigured(opts.Config, scenario, logger)
	}
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			return formatter.Fail(ExitFailure, ErrCodeInvalidConfig, "invalid configuration", nil, ve.Problems)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to run scenario", err, nil)
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if err := formatter.Success(result.Report()); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, "scenario "+scenario.Name+" failed")
	}
	return nil
}

func loadDemoScenario(path string) (*harness.Scenario, error) {
	if path == "" {
		return harness.DefaultScenario()
	}
	return harness.LoadScenario(path)
}

// runConfigured runs the scenario on an engine built from the
// configuration file and closes it so queued records reach the sinks.
func runConfigured(path string, scenario *harness.Scenario, logger *zap.Logger) (*harness.Result, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	eng, err := config.Build(cfg, logger)
	if err != nil {
		return nil, err
	}
	result, runErr := harness.RunWithEngine(scenario, eng, logger)
	if err := eng.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return result, runErr
}
