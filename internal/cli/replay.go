package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	CompileOptions
	QueryHash  string
	FailedOnly bool
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{CompileOptions: CompileOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "replay <schema-dir>",
		Short: "Recompile recorded queries and report drift",
		Long: `Recompile every recorded query source against a schema and compare
the output with what was recorded.

A drift is any change in error code, SQL, bound parameters or aliases.
Each record is recompiled with its own case sensitivity; alias options
come from the flags.

Exit codes:
  0 - No drift
  1 - Drift detected
  2 - Command error (database not found, invalid schema, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, args[0], cmd)
		},
	}

	addCompilerFlags(cmd, &opts.CompileOptions)
	cmd.Flags().StringVar(&opts.DB, "db", "", "compile log path (required)")
	cmd.Flags().StringVar(&opts.QueryHash, "query-hash", "", "only replay compilations of this query")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed", false, "only replay failed compilations")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, schemaDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, loadErrors := LoadSchema(schemaDir)
	if len(loadErrors) > 0 {
		code, message := firstLoadError(loadErrors)
		return outputCommandError(formatter, code, message)
	}

	st, err := openExistingStore(opts.DB, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := formatter.Logger()
	recompile := func(ctx context.Context, rec store.Compilation) (store.Compilation, error) {
		formatter.VerboseLog("Replaying #%d %s", rec.Seq, rec.ID)
		q, err := expr.DecodeQuery([]byte(rec.Source))
		if err != nil {
			return store.Compilation{}, fmt.Errorf("decode recorded source: %w", err)
		}
		cur, _, _ := compileQuery(ctx, loaded.Store, q, rec.Source,
			opts.compilerOptions(rec.CaseSensitive, logger), rec.CaseSensitive)
		return cur, nil
	}

	result, err := st.Replay(ctx, store.ListOptions{
		QueryHash:  opts.QueryHash,
		FailedOnly: opts.FailedOnly,
	}, recompile)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err.Error())
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result store.ReplayResult) error {
	if len(result.Drifts) == 0 {
		return formatter.Success(result)
	}

	message := fmt.Sprintf("%d drift(s) detected", len(result.Drifts))
	if err := formatter.Failure(ErrCodeDrift, message, result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, message)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result store.ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d checked, %d skipped\n", result.Checked, result.Skipped)

	if len(result.Drifts) == 0 {
		fmt.Fprintln(w, "✓ No drift")
		return nil
	}

	fmt.Fprintln(w)
	for _, d := range result.Drifts {
		fmt.Fprintf(w, "✗ #%d %s %s\n", d.Seq, d.ID, d.Field)
		fmt.Fprintf(w, "  recorded: %s\n", d.Recorded)
		fmt.Fprintf(w, "  current:  %s\n", d.Current)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✗ %d drift(s) detected\n", len(result.Drifts))
	return NewExitError(ExitFailure, fmt.Sprintf("%d drift(s) detected", len(result.Drifts)))
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
