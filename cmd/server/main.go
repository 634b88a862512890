package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"idadmin/internal/audit"
	"idadmin/internal/dashboard"
	dashboardhandler "idadmin/internal/dashboard/handler"
	dashboardmetrics "idadmin/internal/dashboard/metrics"
	"idadmin/internal/grant/events"
	granthandler "idadmin/internal/grant/handler"
	"idadmin/internal/grant/metrics"
	"idadmin/internal/grant/service"
	grantstore "idadmin/internal/grant/store"
	"idadmin/internal/platform/config"
	"idadmin/internal/platform/database"
	"idadmin/internal/platform/httpserver"
	"idadmin/internal/platform/logger"
	httptransport "idadmin/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("initializing idadmin",
		"addr", cfg.Addr,
		"auto_save_changes", cfg.AutoSaveChanges,
		"database_configured", cfg.DatabaseURL != "",
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var (
		grants    service.Store
		committer service.Committer
		directory service.SubjectDirectory
		counters  dashboard.Counters
		auditSink audit.Store
	)
	if pool != nil {
		var pgOpts []grantstore.PostgresOption
		if !cfg.AutoSaveChanges {
			pgOpts = append(pgOpts, grantstore.WithPostgresDeferredWrites())
		}
		pgStore := grantstore.NewPostgres(pool.DB(), pgOpts...)
		grants = pgStore
		if !cfg.AutoSaveChanges {
			committer = pgStore
		}
		directory = grantstore.NewPostgresDirectory(pool.DB())
		counters = dashboard.NewPostgresCounters(pool.DB())
		auditSink = audit.NewPostgres(pool.DB())
	} else {
		var memOpts []grantstore.Option
		if !cfg.AutoSaveChanges {
			memOpts = append(memOpts, grantstore.WithDeferredWrites())
		}
		memStore := grantstore.New(memOpts...)
		grants = memStore
		if !cfg.AutoSaveChanges {
			committer = memStore
		}
		counters = dashboard.NewMemoryCounters()
		auditSink = audit.NewInMemoryStore()
	}

	auditor := audit.NewPublisher(auditSink,
		audit.WithAsyncBuffer(cfg.AuditBuffer),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	bus := events.NewBus(log)
	defer bus.Close()

	grantMetrics := metrics.New()
	queries := service.NewQueryService(grants, directory, log,
		service.WithQueryMetrics(grantMetrics),
	)
	commandOpts := []service.CommandOption{
		service.WithCommandMetrics(grantMetrics),
		service.WithEventBus(bus),
	}
	if committer != nil {
		commandOpts = append(commandOpts, service.WithCommitter(committer))
	}
	commands := service.NewCommandService(grants, auditor, log, commandOpts...)
	dashboards := dashboard.NewService(counters, log,
		dashboard.WithMetrics(dashboardmetrics.New()),
	)

	opts := httptransport.Options{
		Logger:          log,
		AdminSigningKey: []byte(cfg.AdminSigningKey),
		RequestTimeout:  cfg.RequestTimeout,
	}
	if pool != nil {
		opts.Health = pool.Health
	}

	router := httptransport.NewRouter(opts,
		granthandler.New(queries, commands, log,
			granthandler.WithDefaultPageSize(cfg.DefaultPageSize),
		),
		dashboardhandler.New(dashboards, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	if pool != nil {
		if err := pool.Close(); err != nil {
			log.Error("failed to close database pool", "error", err)
		}
	}

	log.Info("server stopped")
}
