//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"context"
	"fmt"

	"github.com/obinnaokechukwu/framegrab/avutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Image is an extracted frame. Data holds Height rows of
// Width*Format.BytesPerPixel() bytes with no padding.
type Image struct {
	Data   []byte
	Width  int
	Height int
	Format PixelFormat
	// PTS is the frame's presentation timestamp in its stream time base,
	// avutil.NoPTSValue if the frame had none.
	PTS int64
	// Time is PTS in seconds, or the requested time when PTS is undefined.
	Time float64
}

// Stride returns the length in bytes of one row of Data.
func (img *Image) Stride() int { return img.Width * img.Format.BytesPerPixel() }

// Extractor runs extractions with a fixed set of options. It holds no
// FFmpeg state and is safe for concurrent use.
type Extractor struct {
	opts options
}

// NewExtractor returns an Extractor using opts for every call.
func NewExtractor(opts ...Option) *Extractor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Extractor{opts: o}
}

// Extract returns the first frame of src's best video stream whose
// timestamp is at or after timeSec. Options given here apply on top of
// the Extractor's for this call only.
func (e *Extractor) Extract(src Source, timeSec float64, opts ...Option) (*Image, error) {
	return e.ExtractContext(context.Background(), src, timeSec, opts...)
}

// ExtractContext is Extract with ctx as the parent of the extraction's
// trace spans. Cancelling ctx does not interrupt the extraction.
func (e *Extractor) ExtractContext(ctx context.Context, src Source, timeSec float64, opts ...Option) (*Image, error) {
	o := e.opts
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := o.tracer.Start(ctx, "framegrab.Extract", trace.WithAttributes(
		attribute.String("framegrab.source", src.String()),
		attribute.Float64("framegrab.time_sec", timeSec),
		attribute.String("framegrab.format", o.format.String()),
	))
	defer span.End()

	cc := &callContext{ctx: ctx, opts: &o, log: o.logger.With(zap.Stringer("source", src))}
	defer cc.close()

	img, err := cc.run(src, timeSec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("framegrab.error_kind", KindOf(err).String()))
		cc.log.Debug("extraction failed", zap.Error(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("framegrab.width", img.Width),
		attribute.Int("framegrab.height", img.Height),
		attribute.Int64("framegrab.pts", img.PTS),
	)
	return img, nil
}

// Extract runs a one-off extraction with opts.
func Extract(src Source, timeSec float64, opts ...Option) (*Image, error) {
	return NewExtractor(opts...).Extract(src, timeSec)
}

// ExtractFile extracts a frame from the media file at path.
func ExtractFile(path string, timeSec float64, opts ...Option) (*Image, error) {
	return Extract(FileSource(path), timeSec, opts...)
}

// ExtractBytes extracts a frame from in-memory media. data is not retained
// after the call returns.
func ExtractBytes(data []byte, timeSec float64, opts ...Option) (*Image, error) {
	return Extract(BytesSource(data), timeSec, opts...)
}

// Result is the flat outcome of Run, suited to crossing a process or
// language boundary.
type Result struct {
	Success   bool
	ErrorCode int
	Message   string
	Image     *Image
}

// Run is Extract for callers that cannot take a Go error or a panic. It
// always returns, with ErrorCode set to the failure's ErrorKind code.
func Run(src Source, timeSec float64, opts ...Option) (res Result) {
	return NewExtractor().Run(context.Background(), src, timeSec, opts...)
}

// Run is the Extractor form of the package level Run.
func (e *Extractor) Run(ctx context.Context, src Source, timeSec float64, opts ...Option) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{ErrorCode: Unknown.Code(), Message: fmt.Sprintf("framegrab: panic: %v", r)}
		}
	}()
	img, err := e.ExtractContext(ctx, src, timeSec, opts...)
	if err != nil {
		return Result{ErrorCode: KindOf(err).Code(), Message: err.Error()}
	}
	return Result{Success: true, Image: img}
}

// callContext owns everything one extraction opens. converter stays nil
// until the first accepted frame fixes the input geometry.
type callContext struct {
	ctx  context.Context
	opts *options
	log  *zap.Logger

	backend   Backend
	container Container
	decoder   Decoder
	converter Converter
	cleanups  []func()
}

func (cc *callContext) close() {
	if cc.converter != nil {
		_ = cc.converter.Close()
	}
	if cc.decoder != nil {
		_ = cc.decoder.Close()
	}
	if cc.container != nil {
		_ = cc.container.Close()
	}
	for i := len(cc.cleanups) - 1; i >= 0; i-- {
		cc.cleanups[i]()
	}
}

// stage starts a child span; the returned func ends it, recording err.
func (cc *callContext) stage(name string) func(err error) {
	_, span := cc.opts.tracer.Start(cc.ctx, "framegrab."+name)
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (cc *callContext) validate() error {
	o := cc.opts
	if !o.format.Valid() {
		return newError(InvalidInput, "", "unsupported pixel format %v", o.format)
	}
	if _, ok := scalingNames[o.scaling]; !ok {
		return newError(InvalidInput, "", "unsupported scaling method %v", o.scaling)
	}
	if o.width < 0 || o.height < 0 {
		return newError(InvalidInput, "", "negative output size %dx%d", o.width, o.height)
	}
	return nil
}

func (cc *callContext) run(src Source, timeSec float64) (*Image, error) {
	if err := cc.validate(); err != nil {
		return nil, err
	}
	timeSec, err := checkTime(timeSec, cc.opts.negative)
	if err != nil {
		return nil, err
	}

	cc.backend = cc.opts.backend
	if cc.backend == nil {
		if err := Init(); err != nil {
			return nil, err
		}
		cc.backend = FFmpegBackend()
	}

	if err := cc.open(src); err != nil {
		return nil, err
	}

	stream, err := cc.selectStream()
	if err != nil {
		return nil, err
	}

	target, err := targetTimestamp(timeSec, stream.TimeBase)
	if err != nil {
		return nil, err
	}
	cc.log.Debug("seeking",
		zap.Int("stream", stream.Index),
		zap.Float64("time_sec", timeSec),
		zap.Int64("target_ts", target),
		zap.String("time_base", fmt.Sprintf("%d/%d", stream.TimeBase.Num, stream.TimeBase.Den)),
	)
	end := cc.stage("seek")
	err = seekBefore(cc.container, stream.Index, target)
	end(err)
	if err != nil {
		return nil, err
	}

	end = cc.stage("decode")
	frame, err := cc.decode(stream.Index, target)
	end(err)
	if err != nil {
		return nil, err
	}
	pts, hasPTS := frame.PTS()
	cc.log.Debug("frame accepted",
		zap.Int64("pts", pts),
		zap.Bool("has_pts", hasPTS),
		zap.Int("width", frame.Width()),
		zap.Int("height", frame.Height()),
		zap.Stringer("pix_fmt", frame.PixelFormat()),
	)

	end = cc.stage("convert")
	converted, err := cc.convert(frame)
	end(err)
	if err != nil {
		return nil, err
	}

	data, err := pack(converted, cc.opts.format)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Data:   data,
		Width:  converted.Width(),
		Height: converted.Height(),
		Format: cc.opts.format,
		PTS:    avutil.NoPTSValue,
		Time:   timeSec,
	}
	if hasPTS {
		img.PTS = pts
		img.Time = stream.TimeBase.Seconds(pts)
	}
	return img, nil
}

func (cc *callContext) open(src Source) error {
	end := cc.stage("open")
	var err error
	defer func() { end(err) }()

	if hint := cc.opts.formatHint; hint != "" {
		src = src.WithFormatHint(hint)
	}
	if !src.IsFile() && len(src.Bytes()) == 0 {
		err = newError(InvalidInput, StageOpen, "source has neither a path nor data")
		return err
	}
	if !src.IsFile() && cc.opts.strategy == OpenTempFile {
		var cleanup func()
		if src, cleanup, err = spillToTempFile(src, cc.opts.tempDir); err != nil {
			return err
		}
		cc.cleanups = append(cc.cleanups, cleanup)
		cc.log.Debug("spilled input to temp file", zap.String("path", src.Path()))
	}

	c, openErr := cc.backend.Open(src)
	if openErr != nil {
		err = translate(StageOpen, openErr)
		return err
	}
	cc.container = c
	return nil
}

func (cc *callContext) selectStream() (StreamInfo, error) {
	idx, ok := cc.container.BestVideoStream()
	if !ok {
		return StreamInfo{}, newError(NoVideoStream, StageSelect, "input has no decodable video stream")
	}
	for _, st := range cc.container.Streams() {
		if st.Index == idx {
			cc.log.Debug("selected video stream",
				zap.Int("stream", idx),
				zap.Stringer("codec", st.CodecID),
				zap.Int("width", st.Width),
				zap.Int("height", st.Height),
			)
			return st, nil
		}
	}
	return StreamInfo{}, newError(NoVideoStream, StageSelect, "best stream %d is not described by the container", idx)
}

func (cc *callContext) decode(stream int, target int64) (Frame, error) {
	d, err := cc.container.NewDecoder(stream)
	if err != nil {
		return nil, translate(StageDecoder, err)
	}
	cc.decoder = d
	return decodeUntil(cc.container, d, stream, target, cc.log)
}

// convert builds the converter on first use from f's geometry and reuses
// it afterwards.
func (cc *callContext) convert(f Frame) (Frame, error) {
	if cc.converter == nil {
		cfg := ConverterConfig{
			SrcWidth:  f.Width(),
			SrcHeight: f.Height(),
			SrcFormat: f.PixelFormat(),
			DstWidth:  cc.opts.width,
			DstHeight: cc.opts.height,
			DstFormat: cc.opts.format.av(),
			Method:    cc.opts.scaling,
		}
		if cfg.DstWidth == 0 {
			cfg.DstWidth = cfg.SrcWidth
		}
		if cfg.DstHeight == 0 {
			cfg.DstHeight = cfg.SrcHeight
		}
		conv, err := cc.backend.NewConverter(cfg)
		if err != nil {
			return nil, translate(StageConvert, err)
		}
		cc.converter = conv
		cc.log.Debug("converter built",
			zap.String("src", fmt.Sprintf("%v %dx%d", cfg.SrcFormat, cfg.SrcWidth, cfg.SrcHeight)),
			zap.String("dst", fmt.Sprintf("%v %dx%d", cfg.DstFormat, cfg.DstWidth, cfg.DstHeight)),
			zap.Stringer("method", cfg.Method),
		)
	}
	out, err := cc.converter.Convert(f)
	if err != nil {
		return nil, translate(StageConvert, err)
	}
	return out, nil
}
