package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "matrix_orchestrator/docs"
	"matrix_orchestrator/internal/commands"
	"matrix_orchestrator/internal/config"
	"matrix_orchestrator/internal/handlers"
	"matrix_orchestrator/internal/logger"
	"matrix_orchestrator/internal/platform"
	"matrix_orchestrator/internal/repository"
	"matrix_orchestrator/internal/repository/db"
	"matrix_orchestrator/internal/schedule"
	"matrix_orchestrator/internal/server"
	"matrix_orchestrator/internal/service"
	"matrix_orchestrator/internal/supervisor"
	"matrix_orchestrator/internal/weather"
)

const (
	instanceName    = "matrix-orchestrator"
	shutdownTimeout = 10 * time.Second
)

// @title                       Matrix Orchestrator API
// @version                     1.0
// @description                 Read-only status API of the LED matrix display orchestrator.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if len(os.Args) > 1 && os.Args[1] == commands.HashPasswordName {
		os.Exit(commands.HashPassword(os.Args[2:]))
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Console(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Warnw("log_file_unavailable", "path", cfg.Log.File, "err", err)
	}
	if !logger.KnownLevel(cfg.Log.Level) {
		log.Warnw("unknown log level, logging everything", "level", cfg.Log.Level)
	}
	defer func() { _ = log.Close() }()

	guard, err := platform.Acquire(instanceName)
	if err != nil {
		log.Errorw("another orchestrator is running", "err", err)
		_ = log.Close()
		os.Exit(1)
	}
	defer func() { _ = guard.Release() }()

	log.Infow("orchestrator_starting",
		"config_file", cfg.File,
		"default_program", cfg.DefaultProgram,
		"weather_enabled", cfg.WeatherEnabled(),
		"pass_through", cfg.PassThrough,
	)

	sqlDB := openDB(cfg.DB.Path, log)
	defer func() {
		if sqlDB == nil {
			return
		}
		if cerr := sqlDB.Close(); cerr != nil {
			log.Warnw("failed to close sqlite", "err", cerr)
		}
	}()

	entries, err := schedule.NewStore(log).Load(cfg.ScheduleFile)
	if err != nil {
		log.Warnw("schedule_unreadable", "path", cfg.ScheduleFile, "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(sqlDB, cfg.Operators())
	sup := supervisor.New(cfg.SupervisorConfig(), repos.ProcessRepo, log)
	services := service.NewService(repos, service.Deps{
		Supervisor:     sup,
		Weather:        weather.New(cfg.WeatherControllerConfig(), sup, log),
		Entries:        entries,
		DefaultProgram: cfg.DefaultProgram,
		Retry:          cfg.RetryPolicy(),
		Auth:           cfg.AuthServiceConfig(),
		Log:            log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n, err := services.EventLog.Prune(ctx, time.Now(), cfg.DB.Retention); err != nil {
		log.Warnw("journal_prune_failed", "err", err)
	} else if n > 0 {
		log.Infow("journal_pruned", "deleted", n, "retention", cfg.DB.Retention)
	}

	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		services.Orchestrator.Run(ctx, cfg.PollInterval)
	}()

	var api *handlers.Handler
	var srv *server.Server
	if cfg.HTTP.Enabled {
		api = handlers.NewHandler(services, log)
		srv = server.New(cfg.HTTP.Port, api.InitRoutes())
		runHTTPServer(srv, log)
	}

	waitForShutdown(cancel, orchestratorDone, api, srv, log)
}

// openDB opens the journal database. The display does not depend on it, so a
// failure only costs the journal and the process records.
func openDB(path string, log *logger.Logger) *sql.DB {
	if path == "" {
		log.Warnw("db.path not set; journal disabled")
		return nil
	}
	sqlDB, err := db.InitDB(path)
	if err != nil {
		log.Warnw("failed to init sqlite; journal disabled", "path", path, "err", err)
		return nil
	}
	return sqlDB
}

// runHTTPServer runs the status API in a separate goroutine. The display
// keeps running if the API cannot listen.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Errorw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT/SIGTERM, then stops the orchestrator
// (which stops its display programs) and the HTTP server.
func waitForShutdown(cancel context.CancelFunc, orchestratorDone <-chan struct{}, api *handlers.Handler, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Infow("shutting down", "signal", sig.String())

	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	select {
	case <-orchestratorDone:
	case <-ctx.Done():
		log.Warnw("orchestrator did not stop in time")
	}

	if api != nil {
		api.Close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnw("server forced to shutdown", "err", err)
	}
}
