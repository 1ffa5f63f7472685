//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// NegativeTimePolicy decides what happens to requests before time zero.
type NegativeTimePolicy int

const (
	// ClampNegative treats a negative time as zero and returns the first frame.
	ClampNegative NegativeTimePolicy = iota
	// RejectNegative fails negative times with InvalidInput.
	RejectNegative
)

func (p NegativeTimePolicy) String() string {
	if p == RejectNegative {
		return "reject"
	}
	return "clamp"
}

// ParseNegativeTimePolicy parses "clamp" or "reject".
func ParseNegativeTimePolicy(s string) (NegativeTimePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return ClampNegative, nil
	case "reject":
		return RejectNegative, nil
	}
	return 0, newError(InvalidInput, "", "unknown negative time policy %q", s)
}

// OpenStrategy selects how in-memory sources reach the demuxer.
type OpenStrategy int

const (
	// OpenAVIO reads the bytes through custom I/O callbacks.
	OpenAVIO OpenStrategy = iota
	// OpenTempFile writes the bytes to a temporary file and opens it by path.
	OpenTempFile
)

func (s OpenStrategy) String() string {
	if s == OpenTempFile {
		return "tempfile"
	}
	return "avio"
}

// ParseOpenStrategy parses "avio" or "tempfile".
func ParseOpenStrategy(s string) (OpenStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "avio":
		return OpenAVIO, nil
	case "tempfile", "temp":
		return OpenTempFile, nil
	}
	return 0, newError(InvalidInput, "", "unknown open strategy %q", s)
}

type options struct {
	format     PixelFormat
	scaling    ScalingMethod
	width      int
	height     int
	negative   NegativeTimePolicy
	strategy   OpenStrategy
	tempDir    string
	formatHint string
	logger     *zap.Logger
	tracer     trace.Tracer
	backend    Backend
}

func defaultOptions() options {
	return options{
		format:  RGB24,
		scaling: Bilinear,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
}

// Option configures an extraction.
type Option func(*options)

// WithPixelFormat sets the output pixel format. Default RGB24.
func WithPixelFormat(f PixelFormat) Option {
	return func(o *options) { o.format = f }
}

// WithScaling sets the resampling algorithm. Default Bilinear.
func WithScaling(m ScalingMethod) Option {
	return func(o *options) { o.scaling = m }
}

// WithSize sets the output size. A zero dimension keeps the source value
// for that dimension only.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithNegativeTime sets the policy for negative request times.
func WithNegativeTime(p NegativeTimePolicy) Option {
	return func(o *options) { o.negative = p }
}

// WithOpenStrategy selects how byte sources are opened.
func WithOpenStrategy(s OpenStrategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithTempDir sets the directory used by OpenTempFile. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithFormatHint names the demuxer to use for byte sources, e.g. "mp4".
func WithFormatHint(name string) Option {
	return func(o *options) { o.formatHint = name }
}

// WithLogger sets the logger. Nil restores the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = zap.NewNop()
		}
		o.logger = l
	}
}

// WithTracer sets the tracer used for per-stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// withBackend swaps the media backend; tests use it to drive the pipeline
// with fakes.
func withBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}
