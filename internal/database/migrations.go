package database

import (
	"context"
	"fmt"
	"strings"
)

// migration defines a single idempotent schema migration.
type migration struct {
	name  string
	sql   string
	check string // query that returns true if the migration is already applied
}

// migrations is the ordered list of schema migrations to apply.
// Each must be idempotent (use IF NOT EXISTS, IF EXISTS, etc.).
var migrations = []migration{
	{
		name:  "add transcriptions.error",
		sql:   `ALTER TABLE transcriptions ADD COLUMN IF NOT EXISTS error text NOT NULL DEFAULT ''`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'transcriptions' AND column_name = 'error')`,
	},
	{
		name:  "add transcriptions user history index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_transcriptions_user_created ON transcriptions (user_id, created_at DESC)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_transcriptions_user_created')`,
	},
	{
		name:  "add transcriptions status check",
		sql:   `ALTER TABLE transcriptions ADD CONSTRAINT transcriptions_status_check CHECK (status IN ('completed', 'error'))`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'transcriptions_status_check')`,
	},
}

// Migrate runs all pending schema migrations. Each one is skipped when its
// check reports it already applied. A failed apply is fatal for the caller,
// since record queries depend on these columns.
func (db *DB) Migrate(ctx context.Context) error {
	var pending []migration
	for _, m := range migrations {
		if m.check != "" {
			var exists bool
			if err := db.Pool.QueryRow(ctx, m.check).Scan(&exists); err == nil && exists {
				continue
			}
		}
		pending = append(pending, m)
	}

	if len(pending) == 0 {
		return nil
	}

	// Try to apply each pending migration
	applied := 0
	for _, m := range pending {
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return &MigrationError{
				failed:  m,
				pending: pending[applied:],
				err:     err,
			}
		}
		db.log.Info().Str("migration", m.name).Msg("schema migration applied")
		applied++
	}
	db.log.Info().Int("applied", applied).Msg("schema migrations complete")
	return nil
}

// MigrationError is returned when a migration fails.
// It includes the SQL needed to apply all remaining migrations manually.
type MigrationError struct {
	failed  migration
	pending []migration
	err     error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration %q failed: %v\n\n", e.failed.name, e.err)
	b.WriteString("Run the following SQL as a database superuser to fix this:\n\n")
	for _, m := range e.pending {
		fmt.Fprintf(&b, "  %s;\n", m.sql)
	}
	b.WriteString("\nThen restart mallok.")
	return b.String()
}

func (e *MigrationError) Unwrap() error {
	return e.err
}
