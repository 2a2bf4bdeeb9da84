package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/config"
)

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid    bool           `json:"valid"`
	Problems []string       `json:"problems,omitempty"`
	Config   *config.Config `json:"config,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a lineage configuration",
		Long: `Validate the configuration named by --config.

Unknown keys, invalid policies or trail modes and incomplete sink
definitions are reported without building an engine. Environment
overrides (LINEAGE_POLICY, LINEAGE_VERBOSE) are applied first, so the
result is the configuration a process would actually run with.

Examples:
  lineage validate --config lineage.yaml
  LINEAGE_POLICY=none lineage validate --config lineage.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Config == "" {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, "--config is required", nil, nil)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, "failed to load configuration", err, nil)
	}
	formatter.VerboseLog("loaded %s: policy=%s sinks=%d", opts.Config, cfg.Policy, len(cfg.External.Sinks))

	if err := config.Validate(cfg); err != nil {
		var ve *config.ValidationError
		if !errors.As(err, &ve) {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to validate configuration", err, nil)
		}
		return outputValidationProblems(formatter, ve.Problems)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Config: &cfg})
	}
	return formatter.Success(fmt.Sprintf("%s: valid (policy %s, %d sink(s))\n", opts.Config, cfg.Policy, len(cfg.External.Sinks)))
}

func outputValidationProblems(f *OutputFormatter, problems []string) error {
	if f.Format == "json" {
		if err := f.Success(ValidationResult{Valid: false, Problems: problems}); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "Validation failed with %d problem(s):\n", len(problems))
		for _, p := range problems {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
		if err := f.Success(b.String()); err != nil {
			return err
		}
	}
	return NewExitError(ExitFailure, "invalid configuration")
}
