package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/odatacriteria/internal/alias"
	"github.com/roach88/odatacriteria/internal/mapping"
)

// ErrNotFound is returned when a compilation id is not in the log.
var ErrNotFound = errors.New("compilation not found")

const compilationColumns = `id, seq, query_hash, schema_hash, root_type, case_sensitive,
	source, query, sql, params, error_code, error_message, duration_us`

// ListOptions filters List. Zero values mean no filter.
type ListOptions struct {
	QueryHash  string
	SchemaHash string
	FailedOnly bool

	// Limit keeps the most recent Limit compilations, still returned in
	// seq order.
	Limit int
}

// Get returns the compilation with the given id, aliases included.
func (s *Store) Get(ctx context.Context, id string) (Compilation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+compilationColumns+` FROM compilations WHERE id = ?`, id)
	c, err := scanCompilation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Compilation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Compilation{}, err
	}
	if c.Aliases, err = s.readAliases(ctx, id); err != nil {
		return Compilation{}, err
	}
	return c, nil
}

// List returns recorded compilations ordered by seq ASC, id COLLATE BINARY
// ASC. Returns an empty slice (not nil) when nothing matches.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Compilation, error) {
	query := `SELECT ` + compilationColumns + ` FROM compilations WHERE 1 = 1`
	var args []any
	if opts.QueryHash != "" {
		query += ` AND query_hash = ?`
		args = append(args, opts.QueryHash)
	}
	if opts.SchemaHash != "" {
		query += ` AND schema_hash = ?`
		args = append(args, opts.SchemaHash)
	}
	if opts.FailedOnly {
		query += ` AND error_code <> ''`
	}
	if opts.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC LIMIT ?)`
		args = append(args, opts.Limit)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	out := []Compilation{}
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compilations: %w", err)
	}

	for i := range out {
		if out[i].Aliases, err = s.readAliases(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Latest returns the most recent compilation of a query hash.
func (s *Store) Latest(ctx context.Context, queryHash string) (Compilation, error) {
	list, err := s.List(ctx, ListOptions{QueryHash: queryHash, Limit: 1})
	if err != nil {
		return Compilation{}, err
	}
	if len(list) == 0 {
		return Compilation{}, fmt.Errorf("%w: query hash %s", ErrNotFound, queryHash)
	}
	return list[0], nil
}

func (s *Store) readAliases(ctx context.Context, id string) ([]alias.Alias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, path, parent, relative, type, collection
		FROM compilation_aliases
		WHERE compilation_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	aliases := []alias.Alias{}
	for rows.Next() {
		var a alias.Alias
		var typ string
		var collection int
		if err := rows.Scan(&a.Name, &a.Path, &a.Parent, &a.Relative, &typ, &collection); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		a.Type = mapping.TypeID(typ)
		a.Collection = collection != 0
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return aliases, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompilation(row scanner) (Compilation, error) {
	var c Compilation
	var root, queryJSON, paramsJSON string
	var caseSensitive int
	var durationUS int64
	err := row.Scan(
		&c.ID, &c.Seq, &c.QueryHash, &c.SchemaHash, &root, &caseSensitive,
		&c.Source, &queryJSON, &c.SQL, &paramsJSON, &c.ErrorCode, &c.ErrorMessage, &durationUS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan compilation: %w", err)
	}
	c.RootType = mapping.TypeID(root)
	c.CaseSensitive = caseSensitive != 0
	c.Duration = time.Duration(durationUS) * time.Microsecond

	if c.Query, err = unmarshalQuery(queryJSON); err != nil {
		return c, err
	}
	if c.Params, err = unmarshalParams(paramsJSON); err != nil {
		return c, err
	}
	return c, nil
}
