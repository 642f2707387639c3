package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pydocod/internal/extractor"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s, err := NewSQLiteStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreWithDB wraps an open database and ensures the schema exists.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS modules (
			path TEXT PRIMARY KEY,
			language TEXT,
			content_hash TEXT,
			function_count INTEGER,
			updated_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS functions (
			module_path TEXT,
			ordinal INTEGER,
			id TEXT,
			name TEXT,
			start_line INTEGER,
			end_line INTEGER,
			record JSON,
			PRIMARY KEY (module_path, ordinal)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveModule(ctx context.Context, m *extractor.Module) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO modules (path, language, content_hash, function_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language=excluded.language,
			content_hash=excluded.content_hash,
			function_count=excluded.function_count,
			updated_at=excluded.updated_at
	`, m.Path, m.Language, m.ContentHash, len(m.Functions), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save module %s: %w", m.Path, err)
	}

	// Functions are replaced as a snapshot so removed definitions disappear.
	if _, err := tx.ExecContext(ctx, "DELETE FROM functions WHERE module_path = ?", m.Path); err != nil {
		return fmt.Errorf("failed to clear functions of %s: %w", m.Path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO functions (module_path, ordinal, id, name, start_line, end_line, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, fn := range m.Functions {
		record, err := json.Marshal(fn)
		if err != nil {
			return fmt.Errorf("failed to encode function %s: %w", fn.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, m.Path, i, fn.ID, fn.Name, fn.StartLine, fn.EndLine, record); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadModule(ctx context.Context, path string) (*extractor.Module, error) {
	row := s.db.QueryRowContext(ctx, "SELECT path, language, content_hash FROM modules WHERE path = ?", path)

	m := &extractor.Module{}
	if err := row.Scan(&m.Path, &m.Language, &m.ContentHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, path)
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT record FROM functions WHERE module_path = ? ORDER BY ordinal", path)
	if err != nil {
		return nil, fmt.Errorf("failed to query functions: %w", err)
	}
	defer rows.Close()

	m.Functions = []extractor.Function{}
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan function: %w", err)
		}
		var fn extractor.Function
		if err := json.Unmarshal(record, &fn); err != nil {
			return nil, fmt.Errorf("failed to decode function in %s: %w", path, err)
		}
		m.Functions = append(m.Functions, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *SQLiteStore) ListModules(ctx context.Context) ([]ModuleSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, content_hash, function_count FROM modules ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ModuleSummary
	for rows.Next() {
		var ms ModuleSummary
		if err := rows.Scan(&ms.Path, &ms.ContentHash, &ms.FunctionCount); err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteModule(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM functions WHERE module_path = ?", path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM modules WHERE path = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ModuleHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT content_hash FROM modules WHERE path = ?", path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrModuleNotFound, path)
	}
	return hash, err
}
