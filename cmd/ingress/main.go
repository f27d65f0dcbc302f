package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/cleaner"
	"github.com/David-Botos/retail-ingress/pkg/config"
	"github.com/David-Botos/retail-ingress/pkg/connector"
	"github.com/David-Botos/retail-ingress/pkg/converter"
	"github.com/David-Botos/retail-ingress/pkg/extract"
	"github.com/David-Botos/retail-ingress/pkg/model"
	"github.com/David-Botos/retail-ingress/pkg/transfer"
)

func main() {
	var (
		datasets   = flag.String("datasets", "", "comma-separated datasets to run, overrides DATASETS")
		once       = flag.Bool("once", false, "run once even when INGRESS_SCHEDULE is set")
		listTables = flag.Bool("list-tables", false, "list the source tables and exit")
		envFile    = flag.String("env", ".env", "dotenv file to load")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *datasets != "" {
		kinds, err := parseDatasetFlag(*datasets)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cfg.Datasets = kinds
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *once, *listTables); err != nil {
		logger.Error("Ingress failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, once, listTables bool) error {
	factory := connector.NewConnectorFactory(cfg, logger)
	source, sink, err := factory.CreateAllConnectors(ctx)
	if err != nil {
		return err
	}
	defer source.Close()
	defer sink.Close()

	if err := source.Validate(ctx); err != nil {
		return fmt.Errorf("source validation failed: %w", err)
	}
	if err := sink.Validate(ctx); err != nil {
		return fmt.Errorf("destination validation failed: %w", err)
	}

	if listTables {
		tables, err := source.ListTables(ctx)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Println(t)
		}
		return nil
	}

	objects := extract.NewAnonymousS3Client(cfg.Extract.ProductsRegion, cfg.Extract.ProductsEndpoint)
	catalog := extract.NewCatalog(cfg.Extract, source, objects, logger)

	manager := transfer.NewTransferManager(
		catalog,
		cleaner.NewPipeline(logger),
		transfer.NewLoader(sink, converter.NewTypeConverterWithConfig(logger, converterConfig(cfg.Storage)), cfg.InsertBatchSize, logger),
		transfer.NewVerifier(sink, logger),
		logger,
	).WithWorkerCount(cfg.WorkerPoolSize)

	if cfg.RecordOperations {
		recorder, err := cleaner.NewOperationRecorder(ctx, sink.DB(), logger)
		if err != nil {
			return err
		}
		manager.WithRecorder(recorder)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := transfer.NewMetrics(reg)
	if err != nil {
		return err
	}
	manager.WithMetrics(metrics)

	state := &runState{}
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           newRouter(reg, state, sink.DB()),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("Serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	runOnce := func() error {
		summary, err := manager.Run(ctx, cfg.Datasets)
		if summary != nil {
			state.set(summary)
			logger.Info(summary.GenerateReport())
			if err == nil && summary.FailedDatasets > 0 {
				err = fmt.Errorf("%d of %d datasets failed", summary.FailedDatasets, len(summary.Results))
			}
		}
		return err
	}

	if cfg.Schedule == "" || once {
		return runOnce()
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()})))
	if _, err := scheduler.AddFunc(cfg.Schedule, func() {
		if err := runOnce(); err != nil {
			logger.Error("Scheduled run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	logger.Info("Scheduler started", zap.String("schedule", cfg.Schedule))
	scheduler.Start()
	<-ctx.Done()
	logger.Info("Shutting down scheduler")
	<-scheduler.Stop().Done()
	return nil
}

// converterConfig maps the storage settings onto the type converter
func converterConfig(storage *config.StorageConfig) converter.TypeConverterConfig {
	cc := converter.DefaultConfig()
	if storage == nil {
		return cc
	}
	cc.OptimizeStorage = storage.OptimizeStorage
	cc.MaxVarcharLength = storage.MaxVarcharLength
	cc.TypedDates = storage.TypedDates
	cc.EmptyStringAsNull = storage.EmptyStringAsNull
	cc.WriteIndex = storage.WriteIndex
	return cc
}

func parseDatasetFlag(value string) ([]model.DatasetKind, error) {
	var kinds []model.DatasetKind
	for _, name := range strings.Split(value, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		kind, err := model.ParseDatasetKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	if len(kinds) == 0 {
		return nil, errors.New("-datasets names no dataset")
	}
	return kinds, nil
}
