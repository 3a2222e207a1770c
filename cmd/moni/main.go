package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"moni/internal/ai"
	"moni/internal/amqp"
	"moni/internal/cache"
	"moni/internal/cli"
	"moni/internal/config"
	"moni/internal/dashboard"
	apphttp "moni/internal/http"
	"moni/internal/log"
	"moni/internal/report"
	"moni/internal/services"
	"moni/internal/sheets"
	gsheet "moni/internal/sheets/google"
	mem "moni/internal/sheets/memory"
	"moni/web"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	logger.Info("Starting moni server", log.FieldOperation, log.OpStartup)

	rules := cli.LoadRules(logger, cfg)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	store := cache.NewStore(cfg.CacheOptions())
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache))
	cacheManager.Register(store)
	cacheManager.StartCleanup(cfg.CacheCleanupInterval)

	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, insights refresh messages disabled", log.FieldError, err)
		} else {
			amqpClient = client
			publisher = client
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var completer report.Completer
	if aiClient, err := ai.NewClient(cfg.AIConfig()); err == nil {
		completer = aiClient
		logger.Info("Text generation enabled", "model", cfg.AIModel)
	} else if errors.Is(err, ai.ErrDisabled) {
		logger.Info("Text generation disabled - reports use the fallback commentary")
	} else {
		logger.Error("Failed to initialize text generation client", log.FieldError, err)
		os.Exit(1)
	}

	exporter, err := newExporter(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize report exporter", log.FieldError, err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}

	renderer, err := report.NewRenderer(repo, web.TemplatesFS, report.Options{
		Completer: completer,
		AITimeout: cfg.AITimeout,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to load report templates", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions: services.NewTransactionService(repo, store, publisher, logger),
		Accounts:     services.NewAccountsService(repo, store, logger),
		Insights:     services.NewInsightsService(repo, repo, store, rules, logger),
		Reports:      services.NewReportService(renderer, store, exporter, logger),
		Dashboard:    services.NewDashboardService(dashboard.NewService(repo, logger), store),
		Database:     repo,
		Cache:        store,
	}, apphttp.Options{
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Warn("Database close error", log.FieldError, err)
		}
	})

	logger.Info("Listening", "port", cfg.Port, "export_backend", cfg.ExportBackend, log.FieldRulesVersion, rules.Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newExporter returns the configured report exporter, or nil for "none".
func newExporter(cfg *config.Config, logger *log.Logger) (sheets.ReportExporter, error) {
	switch cfg.ExportBackend {
	case "sheets":
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Report export to Google Sheets enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return client, nil
	case "memory":
		return mem.New(), nil
	default:
		return nil, nil
	}
}
