package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"healthcare-analytics/config"
	"healthcare-analytics/metrics"
	"healthcare-analytics/models"
	"healthcare-analytics/services"
	"healthcare-analytics/storage"
	"healthcare-analytics/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger().Error("Invalid configuration: %v", err)
		return 2
	}

	runID := uuid.NewString()
	logger := utils.NewLoggerWithOptions(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("run_id", runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Healthcare batch job starting ===")
	logger.Info("Config: sinks=%v | null policy=%s | top-n=%d | senior age=%d | concurrency=%d",
		cfg.SinkList(), cfg.NullPolicy, cfg.TopN, cfg.SeniorAge, cfg.MaxConcurrency)

	runLog, err := storage.OpenRunLog(cfg.RunLogPath)
	if err != nil {
		logger.Error("Failed to open run log: %v", err)
		return 1
	}
	defer runLog.Close()

	fileDate, ok := cfg.ParsedFileDate()
	if !ok {
		fileDate, err = runLog.NextFileDate(ctx)
		if errors.Is(err, storage.ErrNoHistory) {
			logger.Error("No successful run recorded; set HEALTH_FILE_DATE for the first run")
			return 2
		}
		if err != nil {
			logger.Error("Failed to resolve next file date: %v", err)
			return 1
		}
	}
	inputPath := cfg.InputPath(fileDate)
	logger.Info("Processing %s (file date %s)", inputPath, fileDate.Format(models.DateLayout))

	if err := runLog.Start(ctx, runID, fileDate); err != nil {
		logger.Error("Failed to record run start: %v", err)
		return 1
	}
	// the run log is written even when ctx was cancelled
	finish := func(status string, result *services.RunResult, runErr error) {
		var report *models.CleaningReport
		if result != nil {
			report = result.Report
		}
		if err := runLog.Finish(context.Background(), runID, status, report, runErr); err != nil {
			logger.Error("Failed to record run result: %v", err)
		}
	}

	batch, err := storage.ReadBatch(inputPath)
	if err != nil {
		logger.Error("Failed to read input batch: %v", err)
		finish(storage.RunFailed, nil, err)
		return 1
	}

	sink, err := buildSinks(cfg, runID, logger)
	if err != nil {
		logger.Error("Failed to initialise sinks: %v", err)
		finish(storage.RunFailed, nil, err)
		return 1
	}
	defer sink.Close()

	reg := metrics.NewRegistry()
	pipeline := services.NewPipeline(cfg.Policy(), sink, logger, services.Options{
		Workers:        cfg.MaxConcurrency,
		SinkThrottleMs: cfg.SinkThrottleMs,
		Retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		},
		Metrics: reg,
	})

	result, runErr := pipeline.Run(ctx, runID, batch)
	if cfg.MetricsTextfile != "" {
		if err := reg.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("Failed to write metrics textfile: %v", err)
		}
	}

	var schemaErr *services.SchemaError
	switch {
	case runErr == nil:
		finish(storage.RunSucceeded, result, nil)
	case errors.Is(runErr, services.ErrDegraded):
		finish(storage.RunDegraded, result, runErr)
	case errors.As(runErr, &schemaErr):
		logger.Error("Schema validation failed, nothing was stored: %v", schemaErr)
		finish(storage.RunFailed, nil, runErr)
		return 1
	default:
		logger.Error("Run failed: %v", runErr)
		finish(storage.RunFailed, result, runErr)
		return 1
	}

	services.NewSummaryPrinter(os.Stdout).Print(result)
	if result.Degraded {
		fmt.Printf("  Run %s finished degraded; see log for failed datasets.\n\n", runID)
		return 1
	}
	fmt.Printf("  Done. %d cleaned records from %s stored in %v\n\n",
		result.Report.CleanedRecords, inputPath, cfg.SinkList())
	return 0
}

// buildSinks opens every configured backend and fans writes out to all of them.
func buildSinks(cfg *config.Config, runID string, logger *utils.Logger) (storage.Sink, error) {
	var sinks storage.MultiSink
	for _, kind := range cfg.SinkList() {
		var (
			s   storage.Sink
			err error
		)
		switch kind {
		case "mongo":
			s, err = storage.NewMongoSink(cfg.MongoURL, cfg.MongoDB, cfg.MongoCollectionSuffix, cfg.MongoTimeout)
		case "postgres":
			s, err = storage.NewPostgresSink(cfg.DSN(), runID)
		case "csv":
			s, err = storage.NewCSVSink(cfg.CSVOutputDir)
		default:
			err = fmt.Errorf("unknown sink %q", kind)
		}
		if err != nil {
			_ = sinks.Close()
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		logger.Info("Sink %s ready", kind)
		sinks = append(sinks, s)
	}
	return sinks, nil
}
