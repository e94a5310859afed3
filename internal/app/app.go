package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"example.com/taskapi/internal/config"
	httphandlers "example.com/taskapi/internal/handler/http"
	"example.com/taskapi/internal/repository"
	"example.com/taskapi/internal/storage/memory"
	sqlstore "example.com/taskapi/internal/storage/sql"
	"example.com/taskapi/internal/usecase"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Router  http.Handler
	Store   repository.TaskRepository
	Service *usecase.TaskService

	tracer *sdktrace.TracerProvider
}

func New(cfg config.Config) (*App, error) {
	return NewWithOutput(cfg, os.Stderr, os.Stdout)
}

// NewWithOutput is New with the log and span destinations made explicit.
func NewWithOutput(cfg config.Config, logOut, traceOut io.Writer) (*App, error) {
	logger := NewLogger(cfg, logOut)
	tp, err := NewTracerProvider(cfg, traceOut)
	if err != nil {
		return nil, err
	}
	var store repository.TaskRepository
	switch cfg.Storage {
	case config.StorageSQL:
		s, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open sql store: %w", err)
		}
		store = s
	default:
		store = memory.New()
	}
	logger.Info("store ready", "storage", cfg.Storage, "tracing", cfg.Tracing)
	svc := usecase.NewTaskService(store)
	h := httphandlers.New(svc, httphandlers.Options{
		DefaultLimit:   cfg.DefaultPageSize,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})
	return &App{
		Config:  cfg,
		Logger:  logger,
		Router:  h,
		Store:   store,
		Service: svc,
		tracer:  tp,
	}, nil
}

// TracerProvider is nil when tracing is off.
func (a *App) TracerProvider() trace.TracerProvider {
	if a.tracer == nil {
		return nil
	}
	return a.tracer
}

// Close flushes pending spans and releases the store.
func (a *App) Close() error {
	var errs []error
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	if c, ok := a.Store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func NewLogger(cfg config.Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h).With("service", cfg.ServiceName, "env", cfg.Env)
}
