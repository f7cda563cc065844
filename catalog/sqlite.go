package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	steps INTEGER NOT NULL,
	ar INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS step_texts (
	code TEXT NOT NULL REFERENCES items(code) ON DELETE CASCADE,
	step INTEGER NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY (code, step)
);
`

// SQLiteCatalog persists items in a SQLite database.
type SQLiteCatalog struct {
	sqlDB *sql.DB
}

var _ Catalog = (*SQLiteCatalog)(nil)

// OpenSQLite opens a SQLite-backed catalog at path and applies the schema.
func OpenSQLite(path string) (*SQLiteCatalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite catalog: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite catalog: %w", err)
	}
	return &SQLiteCatalog{sqlDB: sqlDB}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteCatalog) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Put inserts or replaces an item and its step texts.
func (s *SQLiteCatalog) Put(ctx context.Context, it Item) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	it.Code = strings.TrimSpace(it.Code)
	if err := it.Validate(); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO items (code, name, steps, ar) VALUES (?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET name = excluded.name, steps = excluded.steps, ar = excluded.ar`,
		it.Code, it.Name, it.Steps, boolInt(it.AR),
	); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM step_texts WHERE code = ?`, it.Code); err != nil {
		return fmt.Errorf("clear step texts: %w", err)
	}
	for i, text := range it.Texts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO step_texts (code, step, text) VALUES (?, ?, ?)`, it.Code, i, text,
		); err != nil {
			return fmt.Errorf("put step text: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Item returns one item by code.
func (s *SQLiteCatalog) Item(ctx context.Context, code string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	if s == nil || s.sqlDB == nil {
		return Item{}, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)

	var (
		it Item
		ar int
	)
	row := s.sqlDB.QueryRowContext(ctx, `SELECT code, name, steps, ar FROM items WHERE code = ?`, code)
	if err := row.Scan(&it.Code, &it.Name, &it.Steps, &ar); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, code)
		}
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	it.AR = ar != 0
	texts, err := s.texts(ctx, code)
	if err != nil {
		return Item{}, err
	}
	it.Texts = texts
	return it, nil
}

// Items returns all items ordered by code.
func (s *SQLiteCatalog) Items(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT code, name, steps, ar FROM items ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	var items []Item
	for rows.Next() {
		var (
			it Item
			ar int
		)
		if err := rows.Scan(&it.Code, &it.Name, &it.Steps, &ar); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.AR = ar != 0
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	_ = rows.Close()

	for i := range items {
		texts, err := s.texts(ctx, items[i].Code)
		if err != nil {
			return nil, err
		}
		items[i].Texts = texts
	}
	return items, nil
}

// Import stores every item of another catalog.
func (s *SQLiteCatalog) Import(ctx context.Context, src Catalog) error {
	items, err := src.Items(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := s.Put(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteCatalog) texts(ctx context.Context, code string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT text FROM step_texts WHERE code = ? ORDER BY step`, code)
	if err != nil {
		return nil, fmt.Errorf("list step texts: %w", err)
	}
	defer rows.Close()
	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan step text: %w", err)
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
