package ports

import (
	"context"

	"ImageMigrator/internal/domain"
)

// RecordSource yields input records one at a time; io.EOF ends the sequence.
type RecordSource interface {
	Next() (domain.InputRecord, error)
}

// Fetcher downloads origin resources to the local download tree.
type Fetcher interface {
	Identify(rawURL string) (domain.ResourceIdentity, bool)
	Fetch(ctx context.Context, rawURL string, identity domain.ResourceIdentity) (string, error)
}

// Uploader re-hosts a resource on the destination service by URL.
type Uploader interface {
	Upload(ctx context.Context, rawURL string) (domain.UploadResult, error)
}

// ReportWriter appends rows to the migration report.
type ReportWriter interface {
	WriteRow(row domain.ReportRow) error
	Flush() error
}

// Ledger persists written rows for later audit.
type Ledger interface {
	Record(ctx context.Context, entry domain.LedgerEntry) error
}

// Notifier publishes the run summary to an outbound channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}
