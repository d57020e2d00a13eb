// Package cmd hosts the shared process runner: config resolution, bootstrap,
// HTTP serving, and graceful shutdown on SIGINT/SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"log/slog"

	coreconfig "github.com/cisnemotors/leadbot/core/config"
	"github.com/cisnemotors/leadbot/core/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Options describe how to load configuration and build the application.
type Options struct {
	// ConfigEnvVar names the env var holding the config path, CONFIG_PATH
	// by default; DefaultConfigPath applies when the variable is unset.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)

	// Bootstrap builds the HTTP handler and returns a cleanup func invoked
	// after the server stopped.
	Bootstrap func(cfg *coreconfig.Config) (http.Handler, func(), error)

	ShutdownTimeout time.Duration
}

// Run loads configuration, bootstraps the application, and serves until the
// process receives an interrupt or termination signal.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return fmt.Errorf("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	startedAt := time.Now()
	handler, cleanup, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer func() {
		if cleanup != nil {
			cleanup()
		}
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	addr := net.JoinHostPort(cfg.Server.Listen, strconv.Itoa(cfg.Server.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	logger.Info(ctx, "app", "ready",
		slog.String("status", "ok"),
		slog.String("listen", addr),
		slog.Duration("duration", logger.RoundMS(time.Since(startedAt))),
	)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("cmd: server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "app", "shutdown",
		slog.String("status", "ok"),
	)

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("cmd: shutdown failed: %w", err)
	}
	<-serveErr
	return nil
}
