package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/odatacriteria/internal/alias"
	"github.com/roach88/odatacriteria/internal/compile"
	"github.com/roach88/odatacriteria/internal/criteria"
	"github.com/roach88/odatacriteria/internal/criteriasql"
	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/harness"
	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	CaseSensitive bool
	RootAlias     string
	NoRootAlias   bool
	AliasPrefix   string
	DB            string // compile log path; empty disables recording
}

// CompileOutput is the outcome of a successful compilation.
type CompileOutput struct {
	ID        string         `json:"id,omitempty"`
	Root      mapping.TypeID `json:"root"`
	QueryHash string         `json:"query_hash"`
	SQL       string         `json:"sql"`
	Params    []any          `json:"params"`
	Aliases   []alias.Alias  `json:"aliases"`
	Portable  bool           `json:"portable"`
	Warnings  []string       `json:"warnings,omitempty"`
	Duration  time.Duration  `json:"duration_ns"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema-dir> <query.yaml>",
		Short: "Compile a query to aliased criteria and SQL",
		Long: `Compile a YAML query against a CUE mapping schema.

Every member path is resolved against the schema, one join alias is
created per navigated path, and the criteria are rendered as
parameterized SQL. With --db the compilation, including failures, is
recorded in the compile log.

Exit codes:
  0 - Compiled
  1 - The query does not compile
  2 - Command error (missing schema, unreadable query, etc.)`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	addCompilerFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the compilation in this compile log")

	return cmd
}

func addCompilerFlags(cmd *cobra.Command, opts *CompileOptions) {
	cmd.Flags().BoolVar(&opts.CaseSensitive, "case-sensitive", false, "match member names case-sensitively")
	cmd.Flags().StringVar(&opts.RootAlias, "root-alias", compile.DefaultRootAlias, "alias qualifying root members")
	cmd.Flags().BoolVar(&opts.NoRootAlias, "no-root-alias", false, "leave root members unqualified")
	cmd.Flags().StringVar(&opts.AliasPrefix, "alias-prefix", "", "prefix of generated join aliases (default \"t\")")
}

// compilerOptions turns flags into compiler options.
func (o *CompileOptions) compilerOptions(caseSensitive bool, logger *slog.Logger) []compile.Option {
	opts := []compile.Option{
		compile.WithCaseSensitive(caseSensitive),
		compile.WithLogger(logger),
	}
	if o.NoRootAlias {
		opts = append(opts, compile.WithoutRootAlias())
	} else {
		opts = append(opts, compile.WithRootAlias(o.RootAlias))
	}
	if o.AliasPrefix != "" {
		opts = append(opts, compile.WithAliasPrefix(o.AliasPrefix))
	}
	return opts
}

func runCompile(ctx context.Context, opts *CompileOptions, schemaDir, queryFile string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, loadErrors := LoadSchema(schemaDir)
	if len(loadErrors) > 0 {
		code, message := firstLoadError(loadErrors)
		return outputCommandError(formatter, code, message)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, schemaDir)

	q, source, err := LoadQuery(queryFile)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Code == ErrCodeInvalidQuery {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitFailure, loadErr.Message)
		}
		return outputCommandError(formatter, ErrCodeNotFound, err.Error())
	}

	rec, out, compileErr := compileQuery(ctx, loaded.Store, q, source, opts.compilerOptions(opts.CaseSensitive, formatter.Logger()), opts.CaseSensitive)

	if opts.DB != "" {
		id, err := recordCompilation(ctx, opts.DB, rec, formatter.Logger())
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, err.Error())
		}
		formatter.VerboseLog("Recorded compilation %s in %s", id, opts.DB)
		if out != nil {
			out.ID = id
		}
	}

	if compileErr != nil {
		return outputCompileFailure(formatter, compileErr)
	}
	return outputCompileSuccess(formatter, out)
}

// compileQuery compiles q and renders its SQL. It always returns a record
// for the compile log; on failure the record carries the error code and
// the returned error is the compile error.
func compileQuery(ctx context.Context, mstore *mapping.Store, q *expr.Query, source string, copts []compile.Option, caseSensitive bool) (store.Compilation, *CompileOutput, error) {
	failed := func(hash string, err error) (store.Compilation, *CompileOutput, error) {
		code := string(compile.CodeOf(err))
		if code == "" {
			code = harness.ErrCodeCriteria
		}
		return store.Compilation{
			QueryHash:     hash,
			SchemaHash:    mstore.Hash(),
			RootType:      q.Root,
			CaseSensitive: caseSensitive,
			Source:        source,
			Query:         q.ToIR(),
			ErrorCode:     code,
			ErrorMessage:  err.Error(),
		}, nil, err
	}

	compiler, err := compile.New(mstore, copts...)
	if err != nil {
		return failed("", err)
	}
	hash, _ := compiler.QueryHash(q)

	res, err := compiler.Compile(ctx, q)
	if err != nil {
		return failed(hash, err)
	}

	sqlText, params, err := criteriasql.NewSQLCompiler().Compile(res.Criteria)
	if err != nil {
		return failed(hash, fmt.Errorf("render SQL: %w", err))
	}

	rec, err := store.FromResult(res, source, sqlText, params)
	if err != nil {
		return failed(hash, err)
	}

	v := criteria.Validate(res.Criteria)
	return rec, &CompileOutput{
		Root:      res.Criteria.Root,
		QueryHash: res.Hash,
		SQL:       sqlText,
		Params:    params,
		Aliases:   res.Aliases,
		Portable:  v.IsPortable,
		Warnings:  v.Warnings,
		Duration:  res.Duration,
	}, nil
}

func recordCompilation(ctx context.Context, dbPath string, rec store.Compilation, logger *slog.Logger) (string, error) {
	st, err := store.Open(dbPath, store.WithLogger(logger))
	if err != nil {
		return "", fmt.Errorf("open compile log: %w", err)
	}
	defer st.Close()

	saved, err := st.Record(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("record compilation: %w", err)
	}
	return saved.ID, nil
}

// outputCompileSuccess outputs a successful compilation.
func outputCompileSuccess(formatter *OutputFormatter, out *CompileOutput) error {
	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s (%d alias(es))\n\n", out.Root, len(out.Aliases))
	fmt.Fprintln(w, "SQL:")
	fmt.Fprintf(w, "  %s\n", out.SQL)

	if len(out.Params) > 0 {
		fmt.Fprintln(w, "\nParams:")
		for i, p := range out.Params {
			fmt.Fprintf(w, "  %d: %#v\n", i+1, p)
		}
	}

	if len(out.Aliases) > 0 {
		fmt.Fprintln(w, "\nAliases:")
		writeAliases(w, out.Aliases)
	}

	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "\nWarning: %s", warning)
	}
	if len(out.Warnings) > 0 {
		fmt.Fprintln(w)
	}

	if out.ID != "" {
		fmt.Fprintf(w, "\nRecorded as %s\n", out.ID)
	}
	return nil
}

func writeAliases(w io.Writer, aliases []alias.Alias) {
	for _, a := range aliases {
		kind := ""
		if a.Collection {
			kind = " collection"
		}
		fmt.Fprintf(w, "  %-4s %s (%s%s)\n", a.Name, a.Path, a.Type, kind)
	}
}

// outputCompileFailure outputs a compile error with its resolution
// context. A query that does not compile is exit code 1.
func outputCompileFailure(formatter *OutputFormatter, err error) error {
	code := MapCompileErrorCode(compile.CodeOf(err))
	if compile.CodeOf(err) == "" {
		code = ErrCodeCriteria
	}

	var details map[string]string
	var cerr *compile.Error
	if errors.As(err, &cerr) {
		details = map[string]string{"code": string(cerr.Code)}
		for k, v := range map[string]string{
			"name":       cerr.Name,
			"type":       cerr.Type,
			"path":       cerr.Path,
			"suggestion": cerr.Suggestion,
		} {
			if v != "" {
				details[k] = v
			}
		}
	}

	if err := formatter.Error(code, err.Error(), details); err != nil {
		return err
	}
	return WrapExitError(ExitFailure, "compilation failed", err)
}

// outputCommandError outputs a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
