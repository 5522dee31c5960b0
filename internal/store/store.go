// Package store owns the SQLite record store: schema, seeding, principal
// lookup, and the execution boundary the pipeline hands approved queries
// to. Every query is a single autonomous read through the database/sql
// pool; no transaction state crosses requests.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/rowguard/internal/identity"
)

const (
	// Placeholders used when rendering execution results as text.
	noResults   = "No results found."
	noData      = "No data available"
	nullCell    = "N/A"
	colDelim    = " | "
	defaultPath = "users.db"
)

// Store wraps the SQLite handle for the users table.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the store at path. Empty path uses users.db in
// the working directory.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Principal loads one principal by row ID. sql.ErrNoRows maps to a
// plain error so callers need not know the driver.
func (s *Store) Principal(ctx context.Context, id int64) (identity.Principal, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, first_name, last_name FROM users WHERE id = ?", id)
	return scanPrincipal(row)
}

// RandomPrincipal picks a random row to act as the logged-in principal,
// the way a demo session authenticates.
func (s *Store) RandomPrincipal(ctx context.Context) (identity.Principal, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, first_name, last_name FROM users ORDER BY RANDOM() LIMIT 1")
	return scanPrincipal(row)
}

func scanPrincipal(row *sql.Row) (identity.Principal, error) {
	var p identity.Principal
	if err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName); err != nil {
		if err == sql.ErrNoRows {
			return identity.Principal{}, fmt.Errorf("store: no such principal")
		}
		return identity.Principal{}, fmt.Errorf("store: load principal: %w", err)
	}
	p.Access = identity.Basic
	return p, nil
}

// Execute runs an approved query and renders the result as text:
// a bare value for single-column results, " | "-joined columns with
// newline-separated rows otherwise, N/A for NULL cells, and a fixed
// no-results message for empty sets. Errors are collaborator failures;
// the caller aborts the pipeline rather than improvising a response.
func (s *Store) Execute(ctx context.Context, query string) (string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("store: execute: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("store: columns: %w", err)
	}

	var lines []string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("store: scan: %w", err)
		}

		if len(cols) == 1 {
			if !values[0].Valid {
				return noData, nil
			}
			return values[0].String, nil
		}

		cells := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				cells[i] = v.String
			} else {
				cells[i] = nullCell
			}
		}
		lines = append(lines, strings.Join(cells, colDelim))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("store: iterate: %w", err)
	}

	if len(lines) == 0 {
		return noResults, nil
	}
	return strings.Join(lines, "\n"), nil
}
