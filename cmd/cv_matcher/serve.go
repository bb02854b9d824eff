package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/cv-matcher/internal/archive"
	"github.com/jonathan/cv-matcher/internal/llm"
	"github.com/jonathan/cv-matcher/internal/logger"
	"github.com/jonathan/cv-matcher/internal/matching"
	"github.com/jonathan/cv-matcher/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort    int
	serveMigrate bool
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that matches uploaded CVs against job listings and stores the verdicts.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply the database schema before serving")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "Allowed CORS origins (default any)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if serveMigrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		log.Info("database schema applied")
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	opts := matching.Options{
		MaxFiles: cfg.Server.MaxFiles,
		Retry:    retryPolicy(cfg, log),
		Logger:   log,
	}
	if cfg.Archive.Bucket != "" {
		store, err := archive.NewGCSArchive(ctx, cfg.Archive.Bucket, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts.Archive = store
		log.Info("archiving profiles", zap.String("bucket", cfg.Archive.Bucket))
	}

	service := matching.NewService(
		newListingFetcher(cfg, log),
		llm.NewMatcher(client, log),
		database,
		opts,
	)

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    serveOrigins,
	}, service, database, log)

	log.Info("configured",
		zap.String("environment", cfg.Environment),
		zap.String(logger.FieldProvider, cfg.LLM.Provider),
		zap.Int("max_files", service.MaxFiles()),
	)
	return srv.Start(ctx)
}
