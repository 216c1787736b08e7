package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MrJamesThe3rd/ledgerport/internal/config"
	"github.com/MrJamesThe3rd/ledgerport/internal/database"
	ledgerportHttp "github.com/MrJamesThe3rd/ledgerport/internal/http"
	ledgerHandler "github.com/MrJamesThe3rd/ledgerport/internal/http/ledger"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/rowkey"
	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/ledgerport/internal/ledger/store"
	"github.com/MrJamesThe3rd/ledgerport/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.App.LogLevel, cfg.App.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.ConnectionString(), cfg.DB.MaxConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	keyMode, err := rowkey.ParseMode(cfg.Import.KeyMode)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := metrics.New(reg)

	var (
		ledgerService = ledger.NewService(ledgerStore.New(db), ledger.Options{
			ChunkSize: cfg.Import.ChunkSize,
			MaxLimit:  cfg.Search.MaxLimit,
			SumScope:  ledger.SumScope(cfg.Search.SumScope),
			ExportMax: cfg.Search.ExportMax,
			Metrics:   m,
		})
		importService = importer.NewService(ledgerService, importer.Options{
			HeaderScanRows: cfg.Import.HeaderScanRows,
			KeyMode:        keyMode,
			SampleRows:     cfg.Import.SampleRows,
		}, m)
	)

	ledgerH := ledgerHandler.NewHandler(importService, ledgerService, cfg.Import.MaxUpload)

	router := ledgerportHttp.New(ledgerH, ledgerportHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       reg,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr, "chunk_size", ledgerService.ChunkSize(), "key_mode", keyMode)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
