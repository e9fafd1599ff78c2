// Command proxy runs one a2a-proxy process: it loads a proxy
// configuration, connects to the Service Bus namespace it names, and
// serves the external HTTP surface for every agent this proxy hosts
// locally while routing calls to agents hosted elsewhere over the bus.
//
// Usage:
//
//	proxy -config ./proxy.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/piizei/a2a-proxy/internal/appctx"
	"github.com/piizei/a2a-proxy/internal/config"
	"github.com/piizei/a2a-proxy/internal/httpapi"
	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "proxy.yaml", "path to the proxy configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error("proxy: fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("proxy: starting", "id", cfg.ID, "role", cfg.Role, "namespace", cfg.BusNamespace)

	tp, err := tracing.NewProvider(cfg.ID)
	if err != nil {
		return fmt.Errorf("start tracing provider: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := appctx.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build app context: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start app context: %w", err)
	}

	card := httpapi.AgentCard{
		Name:               cfg.ID,
		Description:        fmt.Sprintf("a2a-proxy instance %s", cfg.ID),
		URL:                fmt.Sprintf("http://localhost:%d", cfg.Port),
		Version:            cfg.Version,
		DefaultInputModes:  []string{"application/json"},
		DefaultOutputModes: []string{"application/json"},
	}

	opts := []httpapi.ServerOption{httpapi.WithCard(card)}
	if cfg.IsCoordinator() && app.TopicManager != nil {
		opts = append(opts, httpapi.WithTopicManager(app.TopicManager, cfg.AgentGroups))
	}
	server := httpapi.New(cfg.ID, cfg.IsCoordinator(), cfg.Port, app.Router, app.Registry, app.Sessions, opts...)

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("proxy: listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil {
			serveErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("proxy: shutdown signal received")
	case err := <-serveErrCh:
		if err != nil {
			logger.Error("proxy: http server exited", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("proxy: error during http shutdown", "error", err)
	}
	if err := app.Close(shutdownCtx); err != nil {
		logger.Warn("proxy: error during app shutdown", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("proxy: error shutting down tracing provider", "error", err)
	}

	logger.Info("proxy: stopped")
	return nil
}
