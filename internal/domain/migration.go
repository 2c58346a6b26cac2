package domain

import "time"

// InputRecord is a single "<document>:<url>" reference read from the input file.
type InputRecord struct {
	DocumentPath string
	SourceURL    string
	Line         int
}

// ResourceIdentity is the (id, filename) pair recovered from an origin download URL.
type ResourceIdentity struct {
	ID       string
	Filename string
}

// UploadResult holds the links scraped from the destination host's response page.
type UploadResult struct {
	Hotlink    string
	DeleteLink string
}

// ReportRow is one line of the migration report.
type ReportRow struct {
	InputPath      string
	OriginalURL    string
	UpdatedURL     string
	LocalPath      string
	ReplaceCommand string
	DeleteLink     string
}

// Fields returns the row in report column order.
func (r ReportRow) Fields() []string {
	return []string{
		r.InputPath,
		r.OriginalURL,
		r.UpdatedURL,
		r.LocalPath,
		r.ReplaceCommand,
		r.DeleteLink,
	}
}

// ReportHeader lists the report columns.
var ReportHeader = []string{
	"input_path",
	"original_url",
	"updated_url",
	"local_path",
	"replace_command",
	"delete_link",
}

// RecordStage enumerates the milestones a record passes through.
type RecordStage string

const (
	StagePending           RecordStage = "pending"
	StageDownloadAttempted RecordStage = "download_attempted"
	StageDownloadSkipped   RecordStage = "download_skipped"
	StageUploadAttempted   RecordStage = "upload_attempted"
	StageUploadSkipped     RecordStage = "upload_skipped"
	StageWritten           RecordStage = "written"
)

// LedgerEntry is a report row persisted to the migration ledger.
type LedgerEntry struct {
	RunID     string
	Row       ReportRow
	CreatedAt time.Time
}

// RunSummary aggregates per-record outcomes of one run.
type RunSummary struct {
	RunID            string
	Records          int
	Downloaded       int
	DownloadFailures int
	DownloadSkipped  int
	Uploaded         int
	UploadFailures   int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Failures is the total number of failed stages.
func (s RunSummary) Failures() int {
	return s.DownloadFailures + s.UploadFailures
}
