package credstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore keeps the pair as two rows of a credentials table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetLogger(log.New(io.Discard, "", 0))
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.Up(db, "migrations")
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context) (Pair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM credentials WHERE key IN (?, ?)`, AccessKey, RefreshKey)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	defer rows.Close()

	var pair Pair
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Pair{}, fmt.Errorf("failed to read credentials: %w", err)
		}
		switch key {
		case AccessKey:
			pair.Access = value
		case RefreshKey:
			pair.Refresh = value
		}
	}
	if err := rows.Err(); err != nil {
		return Pair{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	if pair.Access == "" && pair.Refresh == "" {
		return Pair{}, ErrNotFound
	}
	return pair, nil
}

// Set implements Store. Both keys are written in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, pair Pair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const upsert = `INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	for key, value := range map[string]string{AccessKey: pair.Access, RefreshKey: pair.Refresh} {
		if _, err := tx.ExecContext(ctx, upsert, key, value); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save credentials: %w", err)
		}
	}
	return tx.Commit()
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE key IN (?, ?)`, AccessKey, RefreshKey)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
