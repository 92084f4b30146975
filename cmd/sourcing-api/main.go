// Package main is the entry point for the sourcing engine's HTTP
// collaborator.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/engine"
	"github.com/outreachly/sourcing-engine/internal/httpapi"
	"github.com/outreachly/sourcing-engine/internal/logging"
	"github.com/outreachly/sourcing-engine/internal/version"
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting sourcing-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	eng := engine.New(cfg, logger)
	handler := httpapi.NewHandler(eng, cfg.Orchestrator.GlobalMaxInFlight, logger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		CORSOrigins:       cfg.Server.CORSOrigins,
		IPRateLimitPerMin: cfg.Server.IPRateLimitPerMinute,
		ReadTimeout:       cfg.Server.ReadTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
