package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ImageMigrator/internal/domain"
	"ImageMigrator/internal/ports"
)

const notifyTimeout = 10 * time.Second

// PipelineDeps wires all driven adapters into the migration pipeline.
// A nil Fetcher or Uploader disables that stage.
type PipelineDeps struct {
	Fetcher  ports.Fetcher
	Uploader ports.Uploader
	Ledger   ports.Ledger
	Notifier ports.Notifier
	Logger   *slog.Logger
	RunID    string
	Now      func() time.Time
}

// Pipeline downloads, re-uploads and reports every input record in order.
type Pipeline struct {
	fetcher  ports.Fetcher
	uploader ports.Uploader
	ledger   ports.Ledger
	notifier ports.Notifier
	logger   *slog.Logger
	runID    string
	now      func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		fetcher:  deps.Fetcher,
		uploader: deps.Uploader,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		logger:   logger,
		runID:    deps.RunID,
		now:      now,
	}
}

// Run processes records until the source is exhausted. Stage failures only
// blank the affected report fields; input and report errors abort the run
// after flushing the rows written so far.
func (p *Pipeline) Run(ctx context.Context, source ports.RecordSource, report ports.ReportWriter) (domain.RunSummary, error) {
	summary := domain.RunSummary{RunID: p.runID, StartedAt: p.now()}

	runErr := p.loop(ctx, source, report, &summary)
	if err := report.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush report: %w", err)
	}
	summary.FinishedAt = p.now()

	p.logger.Info("migration finished",
		"run_id", summary.RunID,
		"records", summary.Records,
		"downloaded", summary.Downloaded,
		"uploaded", summary.Uploaded,
		"failures", summary.Failures(),
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
	)
	p.notify(ctx, summary, runErr)

	return summary, runErr
}

func (p *Pipeline) loop(ctx context.Context, source ports.RecordSource, report ports.ReportWriter, summary *domain.RunSummary) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := source.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		row := p.process(ctx, rec, summary)
		if err := report.WriteRow(row); err != nil {
			return err
		}
		summary.Records++
		p.stage(rec, domain.StageWritten)

		if p.ledger != nil {
			entry := domain.LedgerEntry{RunID: p.runID, Row: row, CreatedAt: p.now().UTC()}
			if err := p.ledger.Record(ctx, entry); err != nil {
				p.logger.Warn("ledger write failed", "url", rec.SourceURL, "error", err)
			}
		}
	}
}

func (p *Pipeline) process(ctx context.Context, rec domain.InputRecord, summary *domain.RunSummary) domain.ReportRow {
	p.stage(rec, domain.StagePending)

	row := domain.ReportRow{
		InputPath:   rec.DocumentPath,
		OriginalURL: rec.SourceURL,
	}

	row.LocalPath = p.download(ctx, rec, summary)

	result := p.upload(ctx, rec, summary)
	row.UpdatedURL = result.Hotlink
	row.DeleteLink = result.DeleteLink
	row.ReplaceCommand = ReplaceCommand(rec.DocumentPath, rec.SourceURL, result.Hotlink)

	return row
}

func (p *Pipeline) download(ctx context.Context, rec domain.InputRecord, summary *domain.RunSummary) string {
	if p.fetcher == nil {
		p.stage(rec, domain.StageDownloadSkipped)
		return ""
	}

	identity, ok := p.fetcher.Identify(rec.SourceURL)
	if !ok {
		summary.DownloadSkipped++
		p.stage(rec, domain.StageDownloadSkipped)
		p.logger.Warn("download skipped", "url", rec.SourceURL, "error", domain.ErrUnrecognizedOriginURL)
		return ""
	}

	p.stage(rec, domain.StageDownloadAttempted)
	path, err := p.fetcher.Fetch(ctx, rec.SourceURL, identity)
	if err != nil {
		summary.DownloadFailures++
		p.logger.Warn("download failed", "url", rec.SourceURL, "error", err)
		return ""
	}

	summary.Downloaded++
	p.logger.Debug("downloaded", "url", rec.SourceURL, "path", path)
	return path
}

func (p *Pipeline) upload(ctx context.Context, rec domain.InputRecord, summary *domain.RunSummary) domain.UploadResult {
	if p.uploader == nil {
		p.stage(rec, domain.StageUploadSkipped)
		return domain.UploadResult{}
	}

	p.stage(rec, domain.StageUploadAttempted)
	result, err := p.uploader.Upload(ctx, rec.SourceURL)
	if err != nil {
		summary.UploadFailures++
		p.logger.Warn("upload failed", "url", rec.SourceURL, "error", err)
		return domain.UploadResult{}
	}

	if result.Hotlink != "" {
		summary.Uploaded++
	}
	p.logger.Debug("uploaded", "url", rec.SourceURL, "hotlink", result.Hotlink)
	return result
}

func (p *Pipeline) stage(rec domain.InputRecord, stage domain.RecordStage) {
	p.logger.Debug("record stage", "line", rec.Line, "url", rec.SourceURL, "stage", stage)
}

func (p *Pipeline) notify(ctx context.Context, summary domain.RunSummary, runErr error) {
	if p.notifier == nil {
		return
	}
	// An interrupted run still reports what it got through.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := p.notifier.PublishSummary(ctx, buildSummaryMessage(summary, runErr)); err != nil {
		p.logger.Warn("publish summary failed", "error", err)
	}
}

func buildSummaryMessage(s domain.RunSummary, runErr error) string {
	msg := fmt.Sprintf("Image migration %s: %d records, %d downloaded, %d uploaded, %d download failures, %d skipped downloads, %d upload failures",
		s.RunID, s.Records, s.Downloaded, s.Uploaded, s.DownloadFailures, s.DownloadSkipped, s.UploadFailures)
	if runErr != nil {
		msg += fmt.Sprintf("\nAborted: %v", runErr)
	}
	return msg
}
