package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smileynet/tripdeck/internal/devserver"
)

// DevserverCmd runs the in-memory backend for local development.
type DevserverCmd struct {
	Addr string `help:"Listen address (default from config)."`
}

// Run executes the devserver command.
func (c *DevserverCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("devserver: %w", err)
	}
	if c.Addr != "" {
		cfg.DevServer.Addr = c.Addr
	}
	logger, err := newLogger(os.Stderr, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("devserver: %w", err)
	}

	srv := devserver.New(devserver.Options{
		Secret:   []byte(cfg.DevServer.Secret),
		TokenTTL: cfg.DevServer.TokenTTL,
		Logger:   logger,
	})
	httpSrv := &http.Server{
		Addr:              cfg.DevServer.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devserver listening", "addr", cfg.DevServer.Addr, "token_ttl", cfg.DevServer.TokenTTL)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("devserver: %w", err)
	case <-ctx.Done():
	}

	logger.Info("devserver shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("devserver: shutdown: %w", err)
	}
	return nil
}
