// Package main is the entrypoint for the studentauth HTTP server.
// The server validates registration forms, registers students, issues login
// sessions and serves the admin listing.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/student-auth/studentauth/internal/bootstrap"
	"github.com/student-auth/studentauth/internal/config"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "studentauth-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "config file (default: ~/.studentauth/config.yaml)")
		showVer    = flag.Bool("version", false, "Show version")
		devMode    = flag.Bool("dev", false, "Development mode (in-memory repository, no secret required)")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("studentauth-server %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	// Startup fails if the store or redis is unreachable.
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := bootstrap.Build(startCtx, cfg, *devMode, log)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer app.Close()

	handler, err := server.New(app.Accounts, app.Admin, app.Checker, log, server.Config{Version: version})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	readTimeout, writeTimeout, err := cfg.Timeouts()
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown error", zap.Error(err))
		}
		close(done)
	}()

	log.Info("studentauth server starting",
		zap.String("addr", addr),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Bool("dev", *devMode),
	)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Info("server stopped")
	return nil
}
