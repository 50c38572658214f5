package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duckcsv/duckcsv/internal/api"
	"github.com/duckcsv/duckcsv/internal/api/uistatic"
	"github.com/duckcsv/duckcsv/internal/config"
	"github.com/duckcsv/duckcsv/internal/history"
	historypostgres "github.com/duckcsv/duckcsv/internal/history/postgres"
	"github.com/duckcsv/duckcsv/internal/ingest"
	"github.com/duckcsv/duckcsv/internal/observability"
	duckdbstore "github.com/duckcsv/duckcsv/internal/query/duckdb"
	"github.com/duckcsv/duckcsv/internal/storage"
	s3store "github.com/duckcsv/duckcsv/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("duckcsv-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	startupCtx := context.Background()

	store, err := duckdbstore.Open(startupCtx, duckdbstore.Config{
		Path:      cfg.Database.Path,
		TableName: cfg.Database.TableName,
	})
	if err != nil {
		logger.Error("failed to open duckdb", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var objects storage.UploadSource
	if cfg.ObjectStore.Enabled() {
		s3, err := s3store.New(startupCtx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			ForcePathStyle:   cfg.ObjectStore.ForcePathStyle,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		objects = s3
		logger.Info("object storage enabled", slog.String("bucket", cfg.ObjectStore.Bucket), slog.String("region", cfg.ObjectStore.Region))
	} else {
		logger.Info("object storage disabled; presigned uploads unavailable")
	}

	var (
		recorder    history.Recorder
		lister      history.Lister
		historyPing api.ReadinessCheck
	)
	if cfg.History.DSN != "" {
		historyDB, err := historypostgres.Open(startupCtx, historypostgres.DBConfig{
			DSN:             cfg.History.DSN,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxIdleTime: cfg.History.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open history db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = historyDB.Close() }()

		repo := historypostgres.NewRepository(historyDB)
		recorder, lister, historyPing = repo, repo, repo.HealthCheck
	}

	ingestService, err := ingest.NewService(ingest.Config{
		ScratchDir:        cfg.Upload.ScratchDir,
		MaxBytes:          cfg.Upload.MaxBytes,
		PresignExpiry:     cfg.Upload.PresignExpiry,
		TableName:         store.TableName(),
		DeleteAfterImport: cfg.ObjectStore.DeleteAfterImport,
	}, store, objects, recorder, logger)
	if err != nil {
		logger.Error("failed to initialize ingest service", slog.Any("error", err))
		os.Exit(1)
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger: logger,
		Readiness: api.CombineReadinessChecks(
			api.PingCheck(store.Ping),
			historyPing,
		),
		DependencyTimeout: 2 * time.Second,
		Store:             store,
		Ingest:            ingestService,
		History:           lister,
		UI:                uistatic.Handler(),
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(
			"starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("db_path", cfg.Database.Path),
			slog.String("table", store.TableName()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
