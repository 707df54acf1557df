package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// InitDB opens (and creates if needed) the SQLite database at dbPath.
func InitDB(dbPath string) (*sql.DB, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ping the database to verify the connection.
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createCooldownsTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cooldowns table: %w", err)
	}

	return db, nil
}

// createCooldownsTable creates the 'wandering_cooldowns' table if it doesn't exist.
func createCooldownsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS wandering_cooldowns (
        guild_id TEXT PRIMARY KEY,
        timestamp INTEGER NOT NULL
    );`
	_, err := db.Exec(query)
	return err
}

// SQLiteStore keeps cooldowns in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and ensures the schema exists.
// A file that is not a usable SQLite database is moved aside to
// <path>.corrupt-<unix> and a fresh database is created in its place.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := InitDB(path)
	if err != nil && isCorruptDB(err) {
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, aside); renameErr != nil {
			return nil, fmt.Errorf("%w (moving it aside failed: %v)", err, renameErr)
		}
		for _, sidecar := range []string{path + "-wal", path + "-shm"} {
			os.Remove(sidecar)
		}
		logger.Error("cooldown database is corrupt, moved aside and starting empty",
			zap.String("path", path),
			zap.String("moved_to", aside),
			zap.Error(err))
		db, err = InitDB(path)
	}
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func isCorruptDB(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt
}

// Load reads every cooldown row.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT guild_id, timestamp FROM wandering_cooldowns")
	if err != nil {
		return nil, fmt.Errorf("failed to query cooldowns: %w", err)
	}
	defer rows.Close()

	records := make(map[string]int64)
	for rows.Next() {
		var guildID string
		var ts int64
		if err := rows.Scan(&guildID, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan cooldown row: %w", err)
		}
		records[guildID] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cooldown rows: %w", err)
	}
	return records, nil
}

// Save replaces the table contents inside a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, records map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM wandering_cooldowns"); err != nil {
		return fmt.Errorf("failed to clear cooldowns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO wandering_cooldowns (guild_id, timestamp) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement for saving cooldowns: %w", err)
	}
	defer stmt.Close()

	for guildID, ts := range records {
		if _, err := stmt.ExecContext(ctx, guildID, ts); err != nil {
			return fmt.Errorf("failed to save cooldown for guild %s: %w", guildID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cooldowns: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
