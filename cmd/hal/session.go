package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/koscakluka/ema-hal/internal/config"
	"github.com/koscakluka/ema-hal/internal/telemetry"
	"github.com/spf13/cobra"
)

// session is the process-wide setup shared by commands: config, log file
// and telemetry.
type session struct {
	ctx    context.Context
	cfg    config.Config
	logger *slog.Logger

	closers []func()
}

func startSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, logFile, err := telemetry.NewLogger(cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	s := &session{ctx: ctx, cfg: cfg, logger: logger}
	s.onClose(func() { _ = logFile.Close() })
	s.onClose(stop)

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	s.onClose(func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("failed to shut down telemetry", slog.String("error", err.Error()))
		}
	})
	return s, nil
}

func (s *session) onClose(fn func()) {
	s.closers = append(s.closers, fn)
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
