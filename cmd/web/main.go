package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"spacesprotocol.org/marketplace-web/internal/config"
	"spacesprotocol.org/marketplace-web/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// flags override the environment for local runs
	flag.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "HTTP listen address")
	flag.StringVar(&cfg.Site.TemplatesDir, "templates", cfg.Site.TemplatesDir, "templates directory")
	flag.StringVar(&cfg.Site.PublicDir, "public", cfg.Site.PublicDir, "public assets directory")
	flag.StringVar(&cfg.Site.ContentDir, "content", cfg.Site.ContentDir, "markdown content directory")
	flag.StringVar(&cfg.Backend.URL, "backend", cfg.Backend.URL, "marketplace backend base URL")
	flag.Parse()

	baseLogger, err := observability.NewLogger(cfg.Logging.Level, cfg.Site.DevMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")
	observability.InstallPropagator()

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise app", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("marketplace web listening",
			zap.String("network", cfg.Site.Network.String()),
			zap.String("backend", cfg.Backend.URL),
			zap.Bool("dev", cfg.Site.DevMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
