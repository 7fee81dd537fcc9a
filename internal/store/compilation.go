package store

import (
	"fmt"
	"time"

	"github.com/roach88/odatacriteria/internal/alias"
	"github.com/roach88/odatacriteria/internal/compile"
	"github.com/roach88/odatacriteria/internal/ir"
	"github.com/roach88/odatacriteria/internal/mapping"
)

// Compilation is one recorded compile. Failed compilations carry an
// error code and message and no SQL.
type Compilation struct {
	ID            string         `json:"id"`
	Seq           int64          `json:"seq"`
	QueryHash     string         `json:"query_hash"`
	SchemaHash    string         `json:"schema_hash"`
	RootType      mapping.TypeID `json:"root_type"`
	CaseSensitive bool           `json:"case_sensitive"`

	// Source is the query as the caller wrote it, kept for replay.
	Source string `json:"source,omitempty"`

	// Query is the normalized tree, or the input tree when compilation
	// failed.
	Query ir.IRObject `json:"query"`

	SQL     string        `json:"sql,omitempty"`
	Params  ir.IRArray    `json:"params"`
	Aliases []alias.Alias `json:"aliases"`

	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Failed reports whether the compilation ended in an error.
func (c Compilation) Failed() bool {
	return c.ErrorCode != "" || c.ErrorMessage != ""
}

// FromResult builds the record of a successful compilation.
func FromResult(res *compile.Result, source, sqlText string, params []any) (Compilation, error) {
	irParams := make(ir.IRArray, len(params))
	for i, p := range params {
		v, err := ir.FromGo(p)
		if err != nil {
			return Compilation{}, fmt.Errorf("param %d: %w", i, err)
		}
		irParams[i] = v
	}
	return Compilation{
		QueryHash:     res.Hash,
		SchemaHash:    res.SchemaHash,
		RootType:      res.Criteria.Root,
		CaseSensitive: res.CaseSensitive,
		Source:        source,
		Query:         res.Query.ToIR(),
		SQL:           sqlText,
		Params:        irParams,
		Aliases:       res.Aliases,
		Duration:      res.Duration,
	}, nil
}
