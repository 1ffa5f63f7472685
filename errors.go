//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/internal/bindings"
)

// ErrorKind classifies every extraction failure. The numeric values are
// stable and exposed to callers as error codes.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	InitFailed
	NoVideoStream
	DecoderFailed
	FrameNotFound
	InvalidInput
	SeekFailed
	BackendError
)

var kindNames = [...]string{
	Unknown:       "Unknown",
	InitFailed:    "InitFailed",
	NoVideoStream: "NoVideoStream",
	DecoderFailed: "DecoderFailed",
	FrameNotFound: "FrameNotFound",
	InvalidInput:  "InvalidInput",
	SeekFailed:    "SeekFailed",
	BackendError:  "BackendError",
}

var kindDescriptions = [...]string{
	Unknown:       "unknown error",
	InitFailed:    "FFmpeg initialization failed",
	NoVideoStream: "no video stream found in input",
	DecoderFailed: "failed to create or run the video decoder",
	FrameNotFound: "no frame found at or after the requested time",
	InvalidInput:  "invalid input data or parameters",
	SeekFailed:    "failed to seek to the requested position",
	BackendError:  "FFmpeg processing error",
}

// Code returns the stable numeric code of the kind.
func (k ErrorKind) Code() int { return int(k) }

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Description returns a human readable explanation of the kind.
func (k ErrorKind) Description() string {
	if k >= 0 && int(k) < len(kindDescriptions) {
		return kindDescriptions[k]
	}
	return kindDescriptions[Unknown]
}

// KindFromCode maps a numeric code back to its kind. Out of range codes
// map to Unknown.
func KindFromCode(code int) ErrorKind {
	if code < 0 || code >= len(kindNames) {
		return Unknown
	}
	return ErrorKind(code)
}

// Error is the error type returned by every extraction entry point.
type Error struct {
	Kind    ErrorKind
	Op      string // pipeline stage that failed
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("framegrab: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("framegrab: %s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, ErrFrameNotFound)
// works for any FrameNotFound failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrInitFailed    = &Error{Kind: InitFailed, Message: kindDescriptions[InitFailed]}
	ErrNoVideoStream = &Error{Kind: NoVideoStream, Message: kindDescriptions[NoVideoStream]}
	ErrDecoderFailed = &Error{Kind: DecoderFailed, Message: kindDescriptions[DecoderFailed]}
	ErrFrameNotFound = &Error{Kind: FrameNotFound, Message: kindDescriptions[FrameNotFound]}
	ErrInvalidInput  = &Error{Kind: InvalidInput, Message: kindDescriptions[InvalidInput]}
	ErrSeekFailed    = &Error{Kind: SeekFailed, Message: kindDescriptions[SeekFailed]}
	ErrBackend       = &Error{Kind: BackendError, Message: kindDescriptions[BackendError]}
)

// KindOf returns the kind of err, Unknown if it is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Stage names a step of the pipeline; it becomes Error.Op.
type Stage string

const (
	StageInit    Stage = "init"
	StageOpen    Stage = "open"
	StageRead    Stage = "read"
	StageSelect  Stage = "select_stream"
	StageDecoder Stage = "build_decoder"
	StageSeek    Stage = "seek"
	StageSend    Stage = "send_packet"
	StageReceive Stage = "receive_frame"
	StageFlush   Stage = "flush"
	StageConvert Stage = "convert"
	StagePack    Stage = "pack"
)

var stageKinds = map[Stage]ErrorKind{
	StageInit:    InitFailed,
	StageOpen:    InvalidInput,
	StageRead:    InvalidInput,
	StageSelect:  NoVideoStream,
	StageDecoder: DecoderFailed,
	StageSeek:    SeekFailed,
	StageSend:    DecoderFailed,
	StageReceive: DecoderFailed,
	StageFlush:   DecoderFailed,
	StageConvert: BackendError,
	StagePack:    BackendError,
}

// Once a decoder is running, anything it reports is a decoder failure,
// including corrupt packets.
var decodeStages = map[Stage]bool{
	StageSend:    true,
	StageReceive: true,
	StageFlush:   true,
}

// codeKinds overrides the stage default for FFmpeg codes whose meaning
// does not depend on where they surface.
var codeKinds = map[int32]ErrorKind{
	avutil.AVERROR_STREAM_NOT_FOUND:  NoVideoStream,
	avutil.AVERROR_DECODER_NOT_FOUND: DecoderFailed,
	avutil.AVERROR_DEMUXER_NOT_FOUND: InvalidInput,
	avutil.AVERROR_INVALIDDATA:       InvalidInput,
	avutil.AVERROR_ENOENT:            InvalidInput,
	avutil.AVERROR_ENOMEM:            BackendError,
	avutil.AVERROR_BUG:               BackendError,
	avutil.AVERROR_UNKNOWN:           BackendError,
	avutil.AVERROR_PATCHWELCOME:      BackendError,
}

// translate is the single boundary between backend failures and the
// taxonomy. Errors that are already classified pass through unchanged.
func translate(stage Stage, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, bindings.ErrNotLoaded) || errors.Is(err, bindings.ErrLibraryNotFound) ||
		errors.Is(err, bindings.ErrUnsupportedVersion) {
		return &Error{Kind: InitFailed, Op: string(stage), Message: err.Error(), Err: err}
	}

	var ffErr *avutil.Error
	if errors.As(err, &ffErr) {
		kind, ok := codeKinds[ffErr.Code]
		if !ok || decodeStages[stage] {
			kind = stageKind(stage)
		}
		return &Error{Kind: kind, Op: string(stage), Message: err.Error(), Err: err}
	}

	return &Error{Kind: stageKind(stage), Op: string(stage), Message: err.Error(), Err: err}
}

func stageKind(stage Stage) ErrorKind {
	if kind, ok := stageKinds[stage]; ok {
		return kind
	}
	return BackendError
}

// newError builds a classified error for failures detected by framegrab
// itself rather than reported by the backend.
func newError(kind ErrorKind, stage Stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: string(stage), Message: fmt.Sprintf(format, args...)}
}
