package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Record appends a compilation to the log and returns it with ID and Seq
// filled in. A compilation without an ID gets one from the store's
// IDGenerator.
//
// Recording is idempotent by ID: writing an ID that already exists
// returns the stored record unchanged.
func (s *Store) Record(ctx context.Context, c Compilation) (Compilation, error) {
	if c.ID == "" {
		c.ID = s.ids.NewID()
	}

	queryJSON, err := marshalQuery(c.Query)
	if err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}
	paramsJSON, err := marshalParams(c.Params)
	if err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Compilation{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM compilations`).Scan(&seq); err != nil {
		return Compilation{}, fmt.Errorf("next seq: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO compilations
		(id, seq, query_hash, schema_hash, root_type, case_sensitive, source, query, sql, params, error_code, error_message, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		seq,
		c.QueryHash,
		c.SchemaHash,
		string(c.RootType),
		boolToInt(c.CaseSensitive),
		c.Source,
		queryJSON,
		c.SQL,
		paramsJSON,
		c.ErrorCode,
		c.ErrorMessage,
		c.Duration.Microseconds(),
	)
	if err != nil {
		return Compilation{}, fmt.Errorf("record compilation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			return Compilation{}, fmt.Errorf("rollback: %w", err)
		}
		s.logger.DebugContext(ctx, "compilation already recorded", "id", c.ID)
		return s.Get(ctx, c.ID)
	}

	for i, a := range c.Aliases {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO compilation_aliases
			(compilation_id, position, name, path, parent, relative, type, collection)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			c.ID, i, a.Name, a.Path, a.Parent, a.Relative, string(a.Type), boolToInt(a.Collection),
		)
		if err != nil {
			return Compilation{}, fmt.Errorf("record alias %s: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Compilation{}, fmt.Errorf("commit: %w", err)
	}

	c.Seq = seq
	s.logger.DebugContext(ctx, "compilation recorded",
		"id", c.ID,
		"seq", seq,
		"query_hash", c.QueryHash,
		"failed", c.Failed(),
	)
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
