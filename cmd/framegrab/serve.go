//go:build !ios && !android && (amd64 || arm64)

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/framegrab"
	"github.com/obinnaokechukwu/framegrab/internal/metrics"
	"github.com/obinnaokechukwu/framegrab/internal/objstore"
	"github.com/obinnaokechukwu/framegrab/internal/server"
	"github.com/obinnaokechukwu/framegrab/internal/tracing"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve frame extraction over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address, overrides http.addr"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.log.Sync()
	if c.IsSet("addr") {
		rt.cfg.HTTP.Addr = c.String("addr")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.initFFmpeg(); err != nil {
		return err
	}

	shutdown, err := tracing.Init(ctx, rt.cfg.TracingExporter, rt.cfg.OTLPEndpoint, os.Stdout)
	if err != nil {
		rt.log.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				rt.log.Warn("tracer shutdown", zap.Error(err))
			}
		}()
	}

	opts, err := server.ExtractOptions(rt.cfg.Extract)
	if err != nil {
		return err
	}
	deps := server.Deps{
		Extractor: framegrab.NewExtractor(opts...),
		Logger:    rt.log,
		Versions:  framegrab.LibraryVersions,
		Ready:     framegrab.IsInitialized,
	}
	if rt.cfg.MetricsEnabled {
		deps.Metrics = metrics.New()
	}
	if rt.cfg.S3.Endpoint != "" {
		store, err := objstore.New(rt.cfg.S3)
		if err != nil {
			return err
		}
		deps.Store = store
	}

	gin.SetMode(gin.ReleaseMode)
	rt.log.Info("starting framegrab server",
		zap.String("addr", rt.cfg.HTTP.Addr),
		zap.Bool("metrics", rt.cfg.MetricsEnabled),
		zap.String("tracing", rt.cfg.TracingExporter),
		zap.Bool("s3", deps.Store != nil))
	return server.New(rt.cfg.HTTP, deps).ListenAndServe(ctx)
}
