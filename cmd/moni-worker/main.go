package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"moni/internal/amqp"
	"moni/internal/cli"
	"moni/internal/log"
	"moni/internal/services"
	"moni/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting moni-worker", log.FieldOperation, log.OpStartup)

	rules := cli.LoadRules(logger, cfg)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// the worker has no cache: snapshots are its only output
	insights := services.NewInsightsService(repo, repo, nil, rules, logger)
	insightsWorker := worker.NewInsightsWorker(insights, repo, rules.Version, cfg.SweepBatchSize, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		} else {
			amqpClient = client
		}
	} else {
		logger.Info("AMQP disabled - relying on periodic sweeps only")
	}

	var wg sync.WaitGroup
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		wg.Wait()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Warn("Database close error", log.FieldError, err)
		}
	})

	logger.Info("Performing startup snapshot sweep...")
	if n, err := insightsWorker.RefreshStale(ctx); err != nil {
		logger.Error("Startup snapshot sweep failed", log.FieldError, err)
	} else {
		logger.Info("Startup snapshot sweep done", "refreshed", n)
	}

	if amqpClient != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := amqpClient.ConsumeInsightsRefresh(ctx, insightsWorker.HandleRefresh)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err, log.FieldOperation, log.OpConsume)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		insightsWorker.RunSweeps(ctx, cfg.SweepInterval)
	}()

	logger.Info("Worker running", "sweep_interval", cfg.SweepInterval.String(), log.FieldRulesVersion, rules.Version)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
