package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ImageMigrator/internal/app"
	"ImageMigrator/internal/config"
	"ImageMigrator/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "imagemigrator <input_file> <output_file>",
		Short: "Move images referenced by documents from MEO Cloud to 8upload",
		Long: `Reads "<document_path>:<url>" lines from input_file, downloads each file,
re-uploads it to 8upload and writes a CSV report with replacement commands to output_file.`,
		// Errors are reported once: argument errors here, run errors through the logger.
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				cmd.PrintErrln("Error:", err)
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				slog.Error("load config", "error", err)
				return err
			}
			logger := logging.New(cfg.Logging)

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("application setup failed", "error", err)
				return err
			}
			defer application.Close()

			if err := application.Run(cmd.Context(), args[0], args[1]); err != nil {
				logger.Error("application stopped", "error", err)
				return err
			}
			return nil
		},
	}
}
