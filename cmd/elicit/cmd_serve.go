package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Elicit/internal/api"
	"github.com/MikeSquared-Agency/Elicit/internal/broker"
	"github.com/MikeSquared-Agency/Elicit/internal/metrics"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and execute queued runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	if a.cfg.Oracle.Kind == "interactive" {
		return errors.New("the interactive oracle is not available in serve mode")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Store
	db, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	logger.Info("run store ready", "driver", a.cfg.Store.Driver)

	// Hermes (optional)
	hermesClient, err := a.connectHermes(ctx)
	if err != nil {
		if a.cfg.Oracle.Kind == "remote" {
			return err
		}
		logger.Warn("failed to connect to hermes, running without events", "error", err)
		hermesClient = nil
	}
	if hermesClient != nil {
		defer hermesClient.Close()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	factory, err := a.oracleFactory(nil, nil, hermesClient)
	if err != nil {
		return err
	}
	r, err := a.newRunner(m, factory, true)
	if err != nil {
		return err
	}

	// Broker
	b := broker.New(db, hermesClient, r, a.cfg, logger).
		WithObservers(m).
		WithRecorder(m)
	b.Start(ctx)
	defer b.Stop()
	logger.Info("broker started", "tick_interval", a.cfg.TickInterval())

	b.SetupSubscriptions()

	// API server
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler: api.NewRouter(db, hermesClient, a.cfg, logger),
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(registry),
	}

	go func() {
		logger.Info("API server starting", "port", a.cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
			cancel()
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", a.cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}
