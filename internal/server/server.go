//go:build !ios && !android && (amd64 || arm64)

// Package server exposes frame extraction over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/framegrab"
	"github.com/obinnaokechukwu/framegrab/internal/config"
	"github.com/obinnaokechukwu/framegrab/internal/metrics"
)

const tracerName = "github.com/obinnaokechukwu/framegrab/internal/server"

// Extractor runs one extraction. *framegrab.Extractor implements it.
type Extractor interface {
	ExtractContext(ctx context.Context, src framegrab.Source, timeSec float64, opts ...framegrab.Option) (*framegrab.Image, error)
}

// Fetcher loads s3:// sources. *objstore.Store implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, error)
}

// Deps are the collaborators of a Server. Only Extractor is required.
type Deps struct {
	Extractor Extractor
	Store     Fetcher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Versions  func() (framegrab.Versions, error)
	// Ready reports whether the FFmpeg libraries are loaded.
	Ready func() bool
}

// Server routes extraction requests to an Extractor.
type Server struct {
	cfg     config.HTTPConfig
	deps    Deps
	log     *zap.Logger
	tracer  trace.Tracer
	sem     chan struct{}
	handler *gin.Engine
}

// New builds a Server. It does not start listening.
func New(cfg config.HTTPConfig, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		log:    deps.Logger,
		tracer: otel.Tracer(tracerName),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestIDMiddleware(), s.otelMiddleware(), s.logMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok", "service": "framegrab"}
		if s.deps.Ready != nil {
			body["ffmpeg_loaded"] = s.deps.Ready()
		}
		c.JSON(http.StatusOK, body)
	})
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	v1 := r.Group("/v1")
	v1.POST("/extract", s.handleExtractBody)
	v1.GET("/extract", s.handleExtractObject)
	v1.GET("/version", s.handleVersion)
	return r
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ExtractOptions turns configured defaults into extraction options.
func ExtractOptions(cfg config.ExtractConfig) ([]framegrab.Option, error) {
	format, err := framegrab.ParsePixelFormat(cfg.PixelFormat)
	if err != nil {
		return nil, err
	}
	scaling, err := framegrab.ParseScalingMethod(cfg.Scaling)
	if err != nil {
		return nil, err
	}
	negative, err := framegrab.ParseNegativeTimePolicy(cfg.NegativeTime)
	if err != nil {
		return nil, err
	}
	strategy, err := framegrab.ParseOpenStrategy(cfg.OpenStrategy)
	if err != nil {
		return nil, err
	}
	opts := []framegrab.Option{
		framegrab.WithPixelFormat(format),
		framegrab.WithScaling(scaling),
		framegrab.WithNegativeTime(negative),
		framegrab.WithOpenStrategy(strategy),
	}
	if cfg.TempDir != "" {
		opts = append(opts, framegrab.WithTempDir(cfg.TempDir))
	}
	return opts, nil
}
