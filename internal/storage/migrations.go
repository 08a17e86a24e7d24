package storage

import (
	"context"
	"errors"
	"fmt"
)

// ExpectedSchemaVersion is the schema version this build reads and writes.
const ExpectedSchemaVersion = 2

// ErrSchemaTooNew is returned when the database was written by a newer trex.
var ErrSchemaTooNew = errors.New("history database was created by a newer version")

// migration is one forward step of the captures schema. Statements run in
// order inside a single transaction.
type migration struct {
	description string
	statements  []string
	version     int
}

var migrations = []migration{
	{
		version:     1,
		description: "captures table",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS captures (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT UNIQUE NOT NULL,
				text TEXT NOT NULL,
				captured_at DATETIME NOT NULL,
				engine_name TEXT NOT NULL DEFAULT '',
				confidence REAL NOT NULL DEFAULT 0,
				languages TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_captures_captured_at ON captures(captured_at)`,
		},
	},
	{
		version:     2,
		description: "inline thumbnails",
		statements: []string{
			`ALTER TABLE captures ADD COLUMN thumbnail BLOB`,
		},
	},
}

// SchemaVersion reads the database's user_version.
func (h *SQLiteHistory) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var v int
	if err := h.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (h *SQLiteHistory) Migrate(ctx context.Context) error {
	current, err := h.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema %d, supported %d", ErrSchemaTooNew, current, ExpectedSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := h.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}
		h.logger.Info("Applied history migration", "version", m.version, "description", m.description)
	}

	final, err := h.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, final)
	}
	return nil
}

func (h *SQLiteHistory) apply(ctx context.Context, m migration) (err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range m.statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
