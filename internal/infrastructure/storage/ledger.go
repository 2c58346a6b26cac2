package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ImageMigrator/internal/domain"
	"ImageMigrator/internal/ports"
)

const ledgerTable = "migrated_images"

const createLedgerTable = `CREATE TABLE IF NOT EXISTS migrated_images (
	run_id          TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	input_path      TEXT NOT NULL,
	original_url    TEXT NOT NULL,
	updated_url     TEXT NOT NULL DEFAULT '',
	local_path      TEXT NOT NULL DEFAULT '',
	replace_command TEXT NOT NULL DEFAULT '',
	delete_link     TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL
)`

// Ledger persists written report rows so a migration can be audited after the run.
// Rows carry a per-ledger sequence number; a Ledger serves a single run.
type Ledger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	seq     atomic.Int64
}

var _ ports.Ledger = (*Ledger)(nil)

// OpenLedger connects to the driver ("sqlite" or "postgres") and ensures the schema exists.
func OpenLedger(ctx context.Context, driver, dsn string) (*Ledger, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", driver, err)
	}
	if driver == "sqlite" {
		// Single connection keeps in-memory databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	ledger := NewLedger(db, driver)
	if err := ledger.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// NewLedger wires an open sql.DB; the driver selects the placeholder format.
func NewLedger(db *sql.DB, driver string) *Ledger {
	var format sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		format = sq.Dollar
	}
	return &Ledger{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(format).RunWith(db),
	}
}

func (l *Ledger) ensureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, createLedgerTable); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

// Record inserts one row tagged with its run id.
func (l *Ledger) Record(ctx context.Context, entry domain.LedgerEntry) error {
	if l.db == nil {
		return nil
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := l.builder.Insert(ledgerTable).
		Columns("run_id", "seq", "input_path", "original_url", "updated_url", "local_path", "replace_command", "delete_link", "created_at").
		Values(
			entry.RunID,
			l.seq.Add(1),
			entry.Row.InputPath,
			entry.Row.OriginalURL,
			entry.Row.UpdatedURL,
			entry.Row.LocalPath,
			entry.Row.ReplaceCommand,
			entry.Row.DeleteLink,
			createdAt,
		).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert ledger row: %w", err)
	}
	return nil
}

// entries returns the rows recorded for runID in insertion order.
func (l *Ledger) entries(ctx context.Context, runID string) ([]domain.LedgerEntry, error) {
	if l.db == nil {
		return nil, nil
	}

	rows, err := l.builder.Select("run_id", "input_path", "original_url", "updated_url", "local_path", "replace_command", "delete_link", "created_at").
		From(ledgerTable).
		Where(sq.Eq{"run_id": runID}).
		OrderBy("seq").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.RunID,
			&e.Row.InputPath,
			&e.Row.OriginalURL,
			&e.Row.UpdatedURL,
			&e.Row.LocalPath,
			&e.Row.ReplaceCommand,
			&e.Row.DeleteLink,
			&e.CreatedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return entries, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}
