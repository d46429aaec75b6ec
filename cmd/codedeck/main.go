package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/codedeck/codedeck/internal/api"
	"github.com/codedeck/codedeck/internal/config"
	"github.com/codedeck/codedeck/internal/service"
	"github.com/codedeck/codedeck/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "codedeck:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	var transcripts *storage.TranscriptStore
	if cfg.TranscriptDir != "" {
		transcripts, err = storage.NewTranscriptStore(cfg.TranscriptDir)
		if err != nil {
			return fmt.Errorf("open transcript store: %w", err)
		}
		logger.Info("transcripts enabled", "dir", cfg.TranscriptDir)
	}

	chat := service.NewChatService(service.Config{
		WorkspaceRoot:   cfg.WorkspaceRoot,
		TranscriptStore: transcripts,
		TerminateGrace:  time.Duration(cfg.TerminateGraceSeconds) * time.Second,
		ProbeTimeout:    time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		StreamBuffer:    cfg.StreamBuffer,
		Logger:          logger,
	})

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(api.CORSMiddleware(cfg.AllowedOrigin))
	router.Use(api.CSRFMiddleware(cfg.CSRFCookie))
	api.NewHandler(chat, logger).Mount(router)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("codedeck listening", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	grace := time.Duration(cfg.TerminateGraceSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
