// Package main запускает пакетный прогон конвейера скриптендрука.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/skriptendruck-system/internal/binding"
	"github.com/mmeshcher/skriptendruck-system/internal/config"
	"github.com/mmeshcher/skriptendruck-system/internal/directory"
	"github.com/mmeshcher/skriptendruck-system/internal/document"
	"github.com/mmeshcher/skriptendruck-system/internal/layout"
	"github.com/mmeshcher/skriptendruck-system/internal/metrics"
	"github.com/mmeshcher/skriptendruck-system/internal/pipeline"
	"github.com/mmeshcher/skriptendruck-system/internal/pricing"
	"github.com/mmeshcher/skriptendruck-system/internal/report"
	"github.com/mmeshcher/skriptendruck-system/internal/storage"
	"github.com/mmeshcher/skriptendruck-system/internal/users"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	started := time.Now()

	lay := layout.New(cfg.BasePath, started)
	if err := lay.EnsureStructure(); err != nil {
		sugar.Fatalw("layout initialization error", "error", err.Error())
	}

	table := binding.Default()
	if cfg.BindingTablePath != "" {
		table, err = binding.Load(cfg.BindingTablePath)
		if err != nil {
			sugar.Fatalw("binding table error", "path", cfg.BindingTablePath, "error", err.Error())
		}
	}

	fallback, err := users.LoadFallback(cfg.FallbackPath)
	if err != nil {
		sugar.Fatalw("fallback table error", "error", err.Error())
	}
	blocklist, err := users.LoadBlocklist(cfg.BlocklistPath)
	if err != nil {
		sugar.Fatalw("blocklist error", "error", err.Error())
	}

	var dir users.Directory
	if cfg.DirectoryAddress != "" {
		dir = directory.NewClient(cfg.DirectoryAddress, cfg.DirectoryRetries)
	}
	resolver := users.NewResolver(dir, fallback, blocklist)

	storagePath := cfg.StoragePath
	if storagePath == "" {
		storagePath = filepath.Join(cfg.BasePath, "auftraege.db")
	}
	store, err := storage.NewOrderStore(storagePath)
	if err != nil {
		sugar.Fatalw("order store error", "path", storagePath, "error", err.Error())
	}
	defer store.Close()

	reg := metrics.NewRegistry()
	pdfService := document.NewPDFService()

	// Артефакты собираются в каталоге ручных заданий: всё, что не удалось
	// разместить, остаётся там для ручного восстановления.
	proc := pipeline.NewProcessor(
		resolver, pdfService, pdfService,
		table, pricing.NewCalculator(cfg.Rates()),
		lay, store, lay.ManualDir(), sugar,
	)
	runner := pipeline.NewRunner(proc, store, reg, cfg.Workers, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	var metricsServer *http.Server
	if cfg.MetricsAddress != "" {
		metricsServer = &http.Server{Addr: cfg.MetricsAddress, Handler: reg.Handler()}

		g.Go(func() error {
			sugar.Infow("starting metrics endpoint", "addr", cfg.MetricsAddress)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("metrics shutdown error: %w", err)
			}
			return nil
		})
	}

	var result *pipeline.Result
	g.Go(func() error {
		defer stop()

		res, err := runner.Run(ctx, lay.InputDir())
		result = res
		if err != nil && ctx.Err() != nil && res != nil {
			sugar.Warnw("batch interrupted", "processed", len(res.Orders))
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}

	if result != nil && len(result.Orders) > 0 {
		reportDir := cfg.ReportDir
		if reportDir == "" {
			reportDir = filepath.Join(cfg.BasePath, "Export")
		}
		reportPath := filepath.Join(reportDir, report.FileName(started))
		if err := report.WriteOrders(result.Orders, reportPath); err != nil {
			sugar.Errorw("report export error", "path", reportPath, "error", err.Error())
		} else {
			sugar.Infow("report exported", "path", reportPath)
		}
	}
}
