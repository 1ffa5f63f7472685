//go:build !ios && !android && (amd64 || arm64)

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/obinnaokechukwu/framegrab"
	"github.com/obinnaokechukwu/framegrab/internal/config"
	"github.com/obinnaokechukwu/framegrab/internal/imageout"
	"github.com/obinnaokechukwu/framegrab/internal/objstore"
	"github.com/obinnaokechukwu/framegrab/internal/server"
)

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "write the frame at a timestamp as an image",
		ArgsUsage: "INPUT...",
		Description: "INPUT is a file path or s3://bucket/key. With several inputs, --output\n" +
			"names a directory or s3:// prefix and each frame is named after its input.",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "time", Aliases: []string{"t"}, Usage: "timestamp in seconds"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file, directory, s3:// URL or - for stdout"},
			&cli.StringFlag{Name: "encoding", Aliases: []string{"e"}, Usage: "png, jpeg, bmp, tiff or raw (default from output extension)"},
			&cli.IntFlag{Name: "quality", Usage: "JPEG quality 1-100"},
			&cli.StringFlag{Name: "format", Usage: "pixel format: rgb24, rgba, bgr24 or gray8"},
			&cli.StringFlag{Name: "scaling", Usage: "bilinear, bicubic, area or fast"},
			&cli.IntFlag{Name: "width", Usage: "output width, 0 keeps the source width"},
			&cli.IntFlag{Name: "height", Usage: "output height, 0 keeps the source height"},
			&cli.StringFlag{Name: "negative", Usage: "clamp or reject negative timestamps"},
			&cli.StringFlag{Name: "open", Usage: "avio or tempfile, for s3 inputs"},
			&cli.StringFlag{Name: "container", Usage: "container format hint for s3 inputs, e.g. mp4"},
			&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Value: 4, Usage: "extractions to run at once"},
		},
		Action: runExtract,
	}
}

// job is one input of an extract invocation.
type job struct {
	input  string
	output string
}

func runExtract(c *cli.Context) error {
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		return cli.Exit("extract: at least one INPUT is required", 2)
	}
	out := c.String("output")
	if out == "-" && len(inputs) > 1 {
		return cli.Exit("extract: --output - takes a single INPUT", 2)
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	opts, ecfg, err := extractOptions(c, rt)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	enc, err := resolveEncoding(c.String("encoding"), out, len(inputs) > 1)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if err := rt.initFFmpeg(); err != nil {
		return err
	}

	jobs := make([]job, len(inputs))
	needStore := objstore.IsURL(out)
	for i, in := range inputs {
		jobs[i] = job{input: in, output: outputPath(out, in, c.Float64("time"), enc, len(inputs) > 1)}
		needStore = needStore || objstore.IsURL(in)
	}
	var store *objstore.Store
	if needStore {
		if store, err = objstore.New(rt.cfg.S3); err != nil {
			return err
		}
	}

	ext := framegrab.NewExtractor(append(opts, framegrab.WithLogger(rt.log))...)
	x := &extractRun{
		ext:       ext,
		store:     store,
		log:       rt.log,
		timeSec:   c.Float64("time"),
		enc:       enc,
		quality:   c.Int("quality"),
		container: c.String("container"),
		stdout:    c.App.Writer,
	}
	if strategy, _ := framegrab.ParseOpenStrategy(ecfg.OpenStrategy); strategy == framegrab.OpenTempFile {
		x.downloadDir = ecfg.TempDir
		if x.downloadDir == "" {
			x.downloadDir = os.TempDir()
		}
	}

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(max(1, c.Int("jobs")))
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return x.one(ctx, j)
		})
	}
	return g.Wait()
}

func extractOptions(c *cli.Context, rt *runtime) ([]framegrab.Option, config.ExtractConfig, error) {
	ecfg := rt.cfg.Extract
	for flag, field := range map[string]*string{
		"format":   &ecfg.PixelFormat,
		"scaling":  &ecfg.Scaling,
		"negative": &ecfg.NegativeTime,
		"open":     &ecfg.OpenStrategy,
	} {
		if c.IsSet(flag) {
			*field = c.String(flag)
		}
	}
	opts, err := server.ExtractOptions(ecfg)
	if err != nil {
		return nil, ecfg, err
	}
	if w, h := c.Int("width"), c.Int("height"); w > 0 || h > 0 {
		opts = append(opts, framegrab.WithSize(w, h))
	}
	return opts, ecfg, nil
}

// resolveEncoding prefers the explicit name, then the output extension,
// then PNG.
func resolveEncoding(name, out string, multi bool) (imageout.Encoding, error) {
	if name != "" {
		return imageout.ParseEncoding(name)
	}
	if out != "" && out != "-" && !multi && filepath.Ext(out) != "" {
		return imageout.FromPath(out)
	}
	return imageout.PNG, nil
}

// outputPath names the file written for input. A single input writes to
// out as given; several inputs write into out as a directory.
func outputPath(out, input string, timeSec float64, enc imageout.Encoding, multi bool) string {
	if out != "" && !multi {
		return out
	}
	base := filepath.Base(input)
	if objstore.IsURL(input) {
		base = input[strings.LastIndex(input, "/")+1:]
	}
	name := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, filepath.Ext(base)),
		strconv.FormatFloat(timeSec, 'f', -1, 64), enc.Extension())
	switch {
	case out == "":
		return name
	case objstore.IsURL(out):
		return strings.TrimSuffix(out, "/") + "/" + name
	}
	return filepath.Join(out, name)
}

type extractRun struct {
	ext         *framegrab.Extractor
	store       *objstore.Store
	log         *zap.Logger
	timeSec     float64
	enc         imageout.Encoding
	quality     int
	container   string
	stdout      io.Writer
	downloadDir string // set when s3 inputs go to disk instead of memory
}

func (x *extractRun) one(ctx context.Context, j job) error {
	src, cleanup, err := x.source(ctx, j.input)
	if err != nil {
		return fmt.Errorf("%s: %w", j.input, err)
	}
	defer cleanup()
	img, err := x.ext.ExtractContext(ctx, src, x.timeSec)
	if err != nil {
		return fmt.Errorf("%s: %w", j.input, err)
	}

	var buf bytes.Buffer
	if err := imageout.Encode(&buf, img, x.enc, imageout.Options{Quality: x.quality}); err != nil {
		return fmt.Errorf("%s: encode: %w", j.input, err)
	}
	if err := x.write(ctx, j.output, &buf); err != nil {
		return fmt.Errorf("%s: %w", j.input, err)
	}
	x.log.Info("frame written",
		zap.String("input", j.input),
		zap.String("output", j.output),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Float64("frame_time", img.Time))
	return nil
}

// source resolves input. The returned cleanup removes any local copy
// made for it.
func (x *extractRun) source(ctx context.Context, input string) (framegrab.Source, func(), error) {
	noop := func() {}
	if !objstore.IsURL(input) {
		return framegrab.FileSource(input), noop, nil
	}

	var src framegrab.Source
	cleanup := noop
	if x.downloadDir != "" {
		path := filepath.Join(x.downloadDir, "framegrab-"+uuid.NewString()+filepath.Ext(input))
		if err := x.store.Download(ctx, input, path); err != nil {
			_ = os.Remove(path)
			return framegrab.Source{}, noop, err
		}
		x.log.Debug("downloaded input", zap.String("input", input), zap.String("path", path))
		src = framegrab.FileSource(path)
		cleanup = func() { _ = os.Remove(path) }
	} else {
		data, err := x.store.Fetch(ctx, input, 0)
		if err != nil {
			return framegrab.Source{}, noop, err
		}
		src = framegrab.BytesSource(data)
	}
	if x.container != "" {
		src = src.WithFormatHint(x.container)
	}
	return src, cleanup, nil
}

func (x *extractRun) write(ctx context.Context, out string, buf *bytes.Buffer) error {
	switch {
	case out == "-":
		_, err := buf.WriteTo(x.stdout)
		return err
	case objstore.IsURL(out):
		return x.store.Upload(ctx, out, buf, int64(buf.Len()), x.enc.ContentType())
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, buf.Bytes(), 0o644)
}
