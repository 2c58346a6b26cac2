package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"

	"ImageMigrator/internal/config"
	"ImageMigrator/internal/infrastructure/input"
	"ImageMigrator/internal/infrastructure/origin"
	"ImageMigrator/internal/infrastructure/report"
	"ImageMigrator/internal/infrastructure/storage"
	"ImageMigrator/internal/infrastructure/telegram"
	"ImageMigrator/internal/infrastructure/upload"
	"ImageMigrator/internal/logging"
	"ImageMigrator/internal/relay"
	"ImageMigrator/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	ledger   *storage.Ledger
	runID    string
}

// New builds the pipeline with one HTTP client shared by every outbound request.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging)
	}

	runID := uuid.NewString()
	client := &http.Client{Timeout: cfg.HTTP.Timeout}

	deps := usecase.PipelineDeps{
		Logger: baseLogger.With("component", "pipeline", "run_id", runID),
		RunID:  runID,
	}

	if cfg.DownloadEnabled() {
		deps.Fetcher = origin.NewFetcher(client, origin.Options{
			Root:      cfg.Download.Dir,
			ChunkSize: cfg.Download.ChunkSize,
			UserAgent: cfg.HTTP.UserAgent,
		})
	}

	if cfg.UploadEnabled() {
		registry := relay.NewRegistry()
		registry.Register(upload.NewEightUpload(client, cfg.Upload.URL, cfg.HTTP.UserAgent,
			baseLogger.With("component", "relay."+upload.ProviderName)))

		uploader, err := registry.Resolve(cfg.Upload.Provider)
		if err != nil {
			return nil, err
		}
		deps.Uploader = uploader
	}

	var ledger *storage.Ledger
	if cfg.Ledger.DSN != "" {
		var err error
		ledger, err = storage.OpenLedger(ctx, cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		deps.Ledger = ledger
	}

	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		deps.Notifier = telegram.NewNotifier(client, tg.APIBase, tg.BotToken, tg.ChatID)
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: usecase.NewPipeline(deps),
		ledger:   ledger,
		runID:    runID,
	}, nil
}

// Run migrates every record of inputPath and writes the report to outputPath.
func (a *Application) Run(ctx context.Context, inputPath, outputPath string) (err error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close output: %w", closeErr))
		}
	}()

	writer, err := report.NewWriter(out, a.cfg.Report.Separator)
	if err != nil {
		return err
	}

	reader := input.NewReader(in, a.cfg.Input.Separator)

	a.logger.Info("migration started", "run_id", a.runID, "input", inputPath, "output", outputPath,
		"download", a.cfg.DownloadEnabled(), "upload", a.cfg.UploadEnabled())

	_, err = a.pipeline.Run(ctx, reader, writer)
	return err
}

// Close releases the ledger connection, if any.
func (a *Application) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}
