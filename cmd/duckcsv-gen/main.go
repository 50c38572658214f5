package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/duckcsv/duckcsv/internal/demo/employees"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := employees.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		logger.Error("failed to load generator config", slog.Any("error", err))
		os.Exit(1)
	}

	fs := flag.NewFlagSet("duckcsv-gen", flag.ExitOnError)
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "output path")
	format := fs.String("format", string(cfg.Format), "output format: csv or parquet (default: from -out extension)")
	fs.Int64Var(&cfg.TargetBytes, "bytes", cfg.TargetBytes, "target CSV size in bytes")
	fs.Int64Var(&cfg.Rows, "rows", cfg.Rows, "Parquet row count")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for reproducible output")
	fs.IntVar(&cfg.FlushBytes, "flush-bytes", cfg.FlushBytes, "CSV buffer size before flushing to disk")
	_ = fs.Parse(os.Args[1:])
	cfg.Format = employees.Format(*format)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid generator flags", slog.Any("error", err))
		os.Exit(2)
	}

	started := time.Now()
	summary, err := generate(cfg)
	if err != nil {
		logger.Error("generation failed", slog.String("out", cfg.OutPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info(
		"dataset written",
		slog.String("out", cfg.OutPath),
		slog.String("format", string(cfg.Format)),
		slog.Int64("rows", summary.Rows),
		slog.Int64("bytes", summary.Bytes),
		slog.Duration("duration", time.Since(started)),
	)
}

func generate(cfg employees.Config) (employees.Summary, error) {
	if dir := filepath.Dir(cfg.OutPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return employees.Summary{}, fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(cfg.OutPath)
	if err != nil {
		return employees.Summary{}, fmt.Errorf("create output: %w", err)
	}

	gen := employees.NewGenerator(cfg.Seed)
	var summary employees.Summary
	switch cfg.Format {
	case employees.FormatParquet:
		summary, err = employees.WriteParquet(file, gen, cfg.Rows)
	default:
		summary, err = employees.WriteCSV(file, gen, cfg.TargetBytes, cfg.FlushBytes)
	}
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close output: %w", closeErr)
	}
	return summary, err
}
