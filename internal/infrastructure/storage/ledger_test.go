package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ImageMigrator/internal/domain"
)

func TestLedgerRecordAndEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger, err := OpenLedger(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer ledger.Close()

	base := time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC)
	rows := []domain.ReportRow{
		{
			InputPath:      "docs/a.md",
			OriginalURL:    "https://cld.pt/dl/download/abc/pic.png",
			UpdatedURL:     "https://dest/x.png",
			LocalPath:      "meocloud_images/abc/pic.png",
			ReplaceCommand: "perl ...",
			DeleteLink:     "https://dest/delete/x",
		},
		{InputPath: "docs/b.md", OriginalURL: "https://cld.pt/short"},
	}
	for i, row := range rows {
		require.NoError(t, ledger.Record(ctx, domain.LedgerEntry{
			RunID:     "run-1",
			Row:       row,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, ledger.Record(ctx, domain.LedgerEntry{RunID: "run-2", Row: rows[0]}))

	entries, err := ledger.entries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, rows[0], entries[0].Row)
	assert.Equal(t, rows[1], entries[1].Row)
	assert.True(t, entries[0].CreatedAt.Equal(base))

	other, err := ledger.entries(ctx, "run-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
	assert.False(t, other[0].CreatedAt.IsZero())
}

func TestLedgerEntriesKeepInsertionOrderForEqualTimestamps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger, err := OpenLedger(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer ledger.Close()

	at := time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC)
	// Later rows sort first by input path so an unordered scan would show up.
	paths := []string{"z.md", "m.md", "a.md", "b.md", "c.md"}
	for _, p := range paths {
		require.NoError(t, ledger.Record(ctx, domain.LedgerEntry{
			RunID:     "run-1",
			Row:       domain.ReportRow{InputPath: p, OriginalURL: "https://cld.pt/" + p},
			CreatedAt: at,
		}))
	}

	entries, err := ledger.entries(ctx, "run-1")
	require.NoError(t, err)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Row.InputPath)
	}
	assert.Equal(t, paths, got)
}

func TestOpenLedgerIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "ledger.db")

	first, err := OpenLedger(ctx, "sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, domain.LedgerEntry{RunID: "r", Row: domain.ReportRow{InputPath: "a", OriginalURL: "u"}}))
	require.NoError(t, first.Close())

	second, err := OpenLedger(ctx, "sqlite", dsn)
	require.NoError(t, err)
	defer second.Close()

	entries, err := second.entries(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNilLedgerIsNoop(t *testing.T) {
	t.Parallel()

	var ledger Ledger
	require.NoError(t, ledger.Record(context.Background(), domain.LedgerEntry{}))
	entries, err := ledger.entries(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, entries)
	require.NoError(t, ledger.Close())
}
