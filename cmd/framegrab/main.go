//go:build !ios && !android && (amd64 || arm64)

// Command framegrab extracts single video frames with FFmpeg.
//
// Usage:
//
//	framegrab extract -t 3.0 -o frame.png input.mp4
//	framegrab keyframes --at 3.0 input.mp4
//	framegrab serve --config framegrab.yaml
//	framegrab version
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/framegrab"
	"github.com/obinnaokechukwu/framegrab/internal/config"
	"github.com/obinnaokechukwu/framegrab/internal/logging"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "framegrab:", err)
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "framegrab",
		Usage:   "extract single frames from video files",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"FRAMEGRAB_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "auto, console or json"},
		},
		Commands: []*cli.Command{
			extractCommand(),
			keyframesCommand(),
			serveCommand(),
			versionCommand(),
		},
	}
}

// runtime is the state shared by every command.
type runtime struct {
	cfg *config.Config
	log *zap.Logger
}

// setup loads configuration and builds the logger. Global flags override
// the file and environment.
func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.LogFormat = v
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, log: log}, nil
}

// initFFmpeg loads the libraries and applies the configured log level.
func (rt *runtime) initFFmpeg() error {
	if err := framegrab.Init(); err != nil {
		return err
	}
	return framegrab.SetFFmpegLogLevel(rt.cfg.FFmpegLogLevel)
}

// exitCode is 10 plus the error code for extraction failures, 1 for
// anything else.
func exitCode(err error) int {
	if ec, ok := err.(cli.ExitCoder); ok {
		return ec.ExitCode()
	}
	if kind := framegrab.KindOf(err); kind != framegrab.Unknown {
		return 10 + kind.Code()
	}
	return 1
}
