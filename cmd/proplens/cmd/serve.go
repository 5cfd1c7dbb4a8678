package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dohyunlee/proplens/internal/api"
	"github.com/dohyunlee/proplens/internal/api/handlers"
	"github.com/dohyunlee/proplens/internal/config"
	"github.com/dohyunlee/proplens/internal/filter"
	"github.com/dohyunlee/proplens/internal/pipeline"
	"github.com/dohyunlee/proplens/internal/store"
	"github.com/dohyunlee/proplens/internal/telemetry"
	"github.com/dohyunlee/proplens/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and profile scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, Version, log)
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				log.Warn("trace shutdown failed", "error", err)
			}
		}()
	}

	var st store.Store
	if cfg.Database.Enabled() {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pg.Close()
		st = pg
	} else {
		log.Info("no database configured, reports are not persisted")
	}

	orchestrator, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	var health *handlers.HealthHandler
	var saver pipeline.ReportSaver
	if st != nil {
		health = handlers.NewHealthHandler(st)
		saver = st
	} else {
		health = handlers.NewHealthHandler(nil)
	}

	e, humaAPI := api.New(log, Version, health)

	handlers.RegisterAnalyzeRoutes(humaAPI,
		handlers.NewAnalyzeHandler(orchestrator, filter.NewEngine(), saver, log))
	if st != nil {
		handlers.RegisterReportRoutes(humaAPI, handlers.NewReportsHandler(st))
	}

	var scheduler *pipeline.Scheduler
	if len(cfg.Profiles) > 0 {
		scheduler, err = pipeline.NewScheduler(orchestrator, saver, cfg.Profiles, log)
		if err != nil {
			return fmt.Errorf("building scheduler: %w", err)
		}
		scheduler.Start()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	log.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
