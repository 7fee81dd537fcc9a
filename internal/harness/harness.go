package harness

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/odatacriteria/internal/compile"
	"github.com/roach88/odatacriteria/internal/criteria"
	"github.com/roach88/odatacriteria/internal/criteriasql"
	"github.com/roach88/odatacriteria/internal/expr"
	"github.com/roach88/odatacriteria/internal/ir"
	"github.com/roach88/odatacriteria/internal/mapping"
	"github.com/roach88/odatacriteria/internal/schema"
	"github.com/roach88/odatacriteria/internal/store"
	"github.com/roach88/odatacriteria/internal/testutil"
)

// ErrCodeCriteria marks failures raised while building criteria rather
// than while resolving names.
const ErrCodeCriteria = "CRITERIA_ERROR"

// Harness runs scenarios. Schemas are loaded once per directory and
// shared between scenarios.
type Harness struct {
	logger *slog.Logger

	mu      sync.Mutex
	schemas map[string]*mapping.Store
}

// New creates a harness. A nil logger discards everything.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger, schemas: make(map[string]*mapping.Store)}
}

// Run executes a scenario with a fresh harness.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result. An error means the
// scenario could not be executed at all (unreadable schema or fixture,
// undecodable query); compilation failures are results.
//
// Execution flow:
// 1. Load the schema (cached per directory)
// 2. Compile the query with the scenario's options
// 3. Render SQL and record the compilation in an in-memory compile log
// 4. Run the SQL against the fixture, if any
// 5. Check expectations and assertions
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	mstore, err := h.loadSchema(scenario.Schema)
	if err != nil {
		return nil, err
	}

	var q expr.Query
	if err := scenario.Query.Decode(&q); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	source, err := yaml.Marshal(&scenario.Query)
	if err != nil {
		return nil, fmt.Errorf("encode query source: %w", err)
	}

	compileLog, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)),
		store.WithLogger(h.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compile log: %w", err)
	}
	defer compileLog.Close()

	result := NewResult()
	rec, err := h.compile(ctx, mstore, scenario, &q, string(source), result)
	if err != nil {
		return nil, err
	}
	rec, err = compileLog.Record(ctx, rec)
	if err != nil {
		return nil, err
	}
	result.CompilationID = rec.ID

	if result.ErrorCode == "" && scenario.Fixture != "" {
		rows, err := runFixture(ctx, scenario.Fixture, result.SQL, result.Params)
		if err != nil {
			return nil, err
		}
		result.Rows = rows
	}

	checkExpect(scenario, result)
	if result.ErrorCode == "" {
		for _, a := range scenario.Assertions {
			if err := evaluateAssertion(a, result); err != nil {
				result.AddError(err.Error())
			}
		}
	}

	h.logger.InfoContext(ctx, "scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// compile fills result with the compilation outcome and returns the
// record to log.
func (h *Harness) compile(ctx context.Context, mstore *mapping.Store, scenario *Scenario, q *expr.Query, source string, result *Result) (store.Compilation, error) {
	failed := func(err error) store.Compilation {
		code := string(compile.CodeOf(err))
		if code == "" {
			code = ErrCodeCriteria
		}
		result.ErrorCode = code
		result.ErrorMessage = err.Error()
		return store.Compilation{
			SchemaHash:    mstore.Hash(),
			RootType:      q.Root,
			CaseSensitive: scenario.Options.CaseSensitive,
			Source:        source,
			Query:         q.ToIR(),
			ErrorCode:     code,
			ErrorMessage:  err.Error(),
		}
	}

	compiler, err := compile.New(mstore, compilerOptions(scenario.Options, h.logger)...)
	if err != nil {
		return failed(err), nil
	}

	res, err := compiler.Compile(ctx, q)
	if err != nil {
		rec := failed(err)
		if hash, herr := compiler.QueryHash(q); herr == nil {
			rec.QueryHash = hash
		}
		return rec, nil
	}

	sqlText, params, err := criteriasql.NewSQLCompiler().Compile(res.Criteria)
	if err != nil {
		return store.Compilation{}, fmt.Errorf("render SQL: %w", err)
	}

	v := criteria.Validate(res.Criteria)
	result.Aliases = res.Aliases
	result.SQL = sqlText
	result.Params = params
	result.Warnings = v.Warnings
	result.Portable = v.IsPortable

	return store.FromResult(res, source, sqlText, params)
}

func compilerOptions(o Options, logger *slog.Logger) []compile.Option {
	opts := []compile.Option{
		compile.WithCaseSensitive(o.CaseSensitive),
		compile.WithLogger(logger),
	}
	switch {
	case o.NoRootAlias:
		opts = append(opts, compile.WithoutRootAlias())
	case o.RootAlias != nil:
		opts = append(opts, compile.WithRootAlias(*o.RootAlias))
	}
	if o.AliasPrefix != "" {
		opts = append(opts, compile.WithAliasPrefix(o.AliasPrefix))
	}
	return opts
}

func (h *Harness) loadSchema(dir string) (*mapping.Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.schemas[dir]; ok {
		return s, nil
	}
	spec, err := schema.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	s, err := spec.Build()
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	h.schemas[dir] = s
	return s, nil
}

// runFixture runs query against a fresh in-memory database seeded by the
// fixture script and returns the first column of every row.
func runFixture(ctx context.Context, fixture, query string, params []any) ([]string, error) {
	script, err := os.ReadFile(fixture)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open fixture database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return nil, fmt.Errorf("load fixture: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	dest := make([]any, len(cols))
	for rows.Next() {
		var first sql.NullString
		dest[0] = &first
		for i := 1; i < len(dest); i++ {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, first.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// canonicalParams renders params as canonical JSON for comparisons.
func canonicalParams(params []any) (string, error) {
	arr := make(ir.IRArray, len(params))
	for i, p := range params {
		v, err := ir.FromGo(p)
		if err != nil {
			return "", err
		}
		arr[i] = v
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
