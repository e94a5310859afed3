package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Name              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// TracerProvider receives a server span per request; nil means the otel global.
	TracerProvider trace.TracerProvider
}

type Server struct {
	http *http.Server
}

func New(addr string, h http.Handler, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "taskapi"
	}
	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(h, opts.Name, otelOpts...),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}}
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Serve is Start on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	return s.http.Serve(l)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
