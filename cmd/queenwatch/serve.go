package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queenwatch/internal/config"
	apihttp "queenwatch/internal/http"
)

const gracefulShutdownTimeout = 5 * time.Second

func runServe(args []string) error {
	s := newSettings("serve")
	apiHost := s.fs.String("api-host", "", "API server host (default localhost)")
	apiPort := s.fs.Int("api-port", 0, "API server port (default 8080)")
	rateLimit := s.fs.Int("rate-limit", 0, "Analyses per minute per client (default 10)")
	pidPath := s.fs.String("pid", "", "Optional path to write PID file")
	pidLock := s.fs.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")

	if err := s.fs.Parse(args); err != nil {
		return err
	}

	if *pidLock && *pidPath == "" {
		return errors.New("-pid-lock flag requires the -pid flag to be set")
	}

	cfg, err := s.load(func(cfg *config.Config, f *flag.Flag) {
		switch f.Name {
		case "api-host":
			cfg.APIHost = *apiHost
		case "api-port":
			cfg.APIPort = *apiPort
		case "rate-limit":
			cfg.RateLimit = *rateLimit
		}
	})
	if err != nil {
		return err
	}

	log := NewLogger(cfg.Dev)
	defer log.Sync()

	if *pidPath != "" {
		pid, err := acquirePIDFile(*pidPath, *pidLock)
		if err != nil {
			return err
		}
		defer pid.Release()
		log.Infow("PID file created", "path", *pidPath, "lock", *pidLock)
	}

	c, err := setup(cfg, log)
	if err != nil {
		return err
	}
	defer c.close()

	if c.store == nil {
		log.Info("persistent storage disabled (use -storage-path to enable)")
	}

	// a nil *storage.Store must not become a non-nil interface
	var runs apihttp.RunReader
	if c.store != nil {
		runs = c.store
	}

	app := apihttp.NewFiberApp(c.analyzer, runs, apihttp.Config{
		RateLimit: cfg.RateLimit,
		DevMode:   cfg.Dev,
	}, log)

	apiAddr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)

	go func() {
		log.Infow("queenwatch API listening",
			"addr", "http://"+apiAddr,
			"analyses", fmt.Sprintf("http://%s/api/v1/analyses", apiAddr),
			"health", fmt.Sprintf("http://%s/health", apiAddr),
			"rateLimitPerMinute", cfg.RateLimit,
			"dev", cfg.Dev,
		)
		if err := app.Listen(apiAddr); err != nil {
			log.Errorw("API server listen error", "error", err)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warnw("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
	return nil
}
