package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB         string
	QueryHash  string
	SchemaHash string
	FailedOnly bool
	Limit      int
}

// HistoryEntry is one recorded compilation as listed by history.
type HistoryEntry struct {
	ID         string         `json:"id"`
	Seq        int64          `json:"seq"`
	Root       mapping.TypeID `json:"root"`
	QueryHash  string         `json:"query_hash"`
	SchemaHash string         `json:"schema_hash"`
	Aliases    int            `json:"aliases"`
	SQL        string         `json:"sql,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded compilations",
		Long: `List compilations recorded in a compile log, oldest first.

Examples:
  odatac history --db ./compile.db
  odatac history --db ./compile.db --failed
  odatac history --db ./compile.db --query-hash 3f2a... --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "compile log path (required)")
	cmd.Flags().StringVar(&opts.QueryHash, "query-hash", "", "only compilations of this query")
	cmd.Flags().StringVar(&opts.SchemaHash, "schema-hash", "", "only compilations against this schema")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed", false, "only failed compilations")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most the latest N compilations")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.DB, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.List(ctx, store.ListOptions{
		QueryHash:  opts.QueryHash,
		SchemaHash: opts.SchemaHash,
		FailedOnly: opts.FailedOnly,
		Limit:      opts.Limit,
	})
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err.Error())
	}

	entries := make([]HistoryEntry, len(recs))
	for i, rec := range recs {
		entries[i] = HistoryEntry{
			ID:         rec.ID,
			Seq:        rec.Seq,
			Root:       rec.RootType,
			QueryHash:  rec.QueryHash,
			SchemaHash: rec.SchemaHash,
			Aliases:    len(rec.Aliases),
			SQL:        rec.SQL,
			ErrorCode:  rec.ErrorCode,
			Error:      rec.ErrorMessage,
		}
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No compilations recorded.")
		return nil
	}
	for _, e := range entries {
		if e.ErrorCode != "" {
			fmt.Fprintf(w, "✗ #%d %s %s %s: %s\n", e.Seq, e.ID, e.Root, e.ErrorCode, e.Error)
			continue
		}
		fmt.Fprintf(w, "✓ #%d %s %s (%d alias(es))\n", e.Seq, e.ID, e.Root, e.Aliases)
		if opts.Verbose {
			fmt.Fprintf(w, "  %s\n", e.SQL)
		}
	}
	return nil
}

// openExistingStore opens a compile log that must already exist.
func openExistingStore(path string, formatter *OutputFormatter) (*store.Store, error) {
	if !fileExists(path) {
		return nil, outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path, store.WithLogger(formatter.Logger()))
	if err != nil {
		return nil, outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
	}
	return st, nil
}
