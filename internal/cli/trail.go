package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/record"
	"github.com/roach88/lineage/internal/sink"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/trail"
)

// TrailOptions holds flags for the trail command.
type TrailOptions struct {
	*RootOptions
	Log     string
	DB      string
	ID      int64
	Mode    string
	Process string
}

// TrailResult is the JSON payload of the trail command.
type TrailResult struct {
	Process string `json:"process"`
	ID      int64  `json:"id"`
	Mode    string `json:"mode"`
	Records int    `json:"records"`
	Trail   string `json:"trail"`
}

// NewTrailCommand creates the trail command.
func NewTrailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trail",
		Short: "Render the lineage of a recorded value",
		Long: `Rebuild the lineage of a value from an external record log.

Reads the records one process emitted through a JSONL or SQLite sink and
renders the audit trail of --id exactly as the process would have. Ids are
only unique within one process; without --process the most recent process
in the log is used.

Examples:
  lineage trail --log records.jsonl --id 42
  lineage trail --db records.db --id 42 --mode tree
  lineage trail --db records.db --id 42 --process 0190... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrail(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Log, "log", "", "path to a JSONL record log")
	cmd.Flags().StringVar(&opts.DB, "db", "", "path to a SQLite record database")
	cmd.MarkFlagsOneRequired("log", "db")
	cmd.MarkFlagsMutuallyExclusive("log", "db")
	cmd.Flags().Int64Var(&opts.ID, "id", 0, "record id to trace (required)")
	_ = cmd.MarkFlagRequired("id")
	cmd.Flags().StringVar(&opts.Mode, "mode", "table", "trail format (table|tree|expression)")
	cmd.Flags().StringVar(&opts.Process, "process", "", "process id (default: most recent)")

	return cmd
}

func runTrail(ctx context.Context, opts *TrailOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	mode, err := trail.ParseMode(opts.Mode)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid --mode", err, nil)
	}
	if opts.ID <= 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, "--id must be positive", nil, nil)
	}

	path := opts.Log
	if path == "" {
		path = opts.DB
	}
	if _, err := os.Stat(path); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to open record log", err, nil)
	}

	var process string
	var recs []*record.Record
	if opts.Log != "" {
		process, recs, err = readJSONL(opts.Log, opts.Process)
	} else {
		process, recs, err = readSQLite(ctx, opts.DB, opts.Process)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, "failed to read record log", err, nil)
	}
	formatter.VerboseLog("read %d records for process %s from %s", len(recs), process, path)

	snap := store.NewSnapshot(recs)
	id := record.ID(opts.ID)
	if _, ok := snap.Get(id); !ok {
		return formatter.Fail(ExitFailure, ErrCodeRecordNotFound, "record not found",
			fmt.Errorf("id %d is not in process %s", id, displayProcess(process)),
			map[string]any{"id": opts.ID, "process": process, "records": snap.Len()})
	}

	text, _ := trail.Render(snap, id, mode)
	if opts.Format == "json" {
		return formatter.Success(TrailResult{
			Process: process,
			ID:      opts.ID,
			Mode:    mode.String(),
			Records: snap.Len(),
			Trail:   text,
		})
	}
	return formatter.Success(text)
}

func readJSONL(path, process string) (string, []*record.Record, error) {
	events, err := sink.ReadJSONLFile(path)
	if err != nil {
		return "", nil, err
	}
	if process == "" {
		process = sink.LatestProcess(events)
	}
	recs, err := sink.Records(events, process)
	return process, recs, err
}

func readSQLite(ctx context.Context, path, process string) (string, []*record.Record, error) {
	db, err := sink.OpenSQLite(path)
	if err != nil {
		return "", nil, err
	}
	defer db.Close()

	if process == "" {
		if process, err = db.LatestProcess(ctx); err != nil {
			return "", nil, err
		}
	}
	events, err := db.Events(ctx, process)
	if err != nil {
		return "", nil, err
	}
	recs, err := sink.Records(events, process)
	return process, recs, err
}

func displayProcess(p string) string {
	if p == "" {
		return "(none)"
	}
	return p
}
