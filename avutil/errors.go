//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"errors"
	"fmt"
	"syscall"
)

// FFmpeg error codes (AVERROR values).
const (
	AVERROR_EOF               int32 = -541478725
	AVERROR_EAGAIN            int32 = -int32(syscall.EAGAIN)
	AVERROR_EINVAL            int32 = -int32(syscall.EINVAL)
	AVERROR_ENOMEM            int32 = -int32(syscall.ENOMEM)
	AVERROR_ENOENT            int32 = -int32(syscall.ENOENT)
	AVERROR_EIO               int32 = -int32(syscall.EIO)
	AVERROR_BSF_NOT_FOUND     int32 = -1179861752
	AVERROR_DECODER_NOT_FOUND int32 = -1128613112
	AVERROR_DEMUXER_NOT_FOUND int32 = -1296385272
	AVERROR_OPTION_NOT_FOUND  int32 = -1414549496
	AVERROR_STREAM_NOT_FOUND  int32 = -1381258232
	AVERROR_INVALIDDATA       int32 = -1094995529
	AVERROR_PATCHWELCOME      int32 = -1163346256
	AVERROR_BUG               int32 = -558323010
	AVERROR_UNKNOWN           int32 = -1313558101
)

// Error is a failed FFmpeg call.
type Error struct {
	Code    int32  // raw AVERROR code
	Message string // av_strerror text
	Op      string // FFmpeg function that failed
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// NewError returns nil for non-negative codes and an *Error otherwise.
func NewError(code int32, op string) error {
	if code >= 0 {
		return nil
	}
	return &Error{Code: code, Message: ErrorString(code), Op: op}
}

// IsEOF reports whether err is AVERROR_EOF.
func IsEOF(err error) bool { return Code(err) == AVERROR_EOF }

// IsAgain reports whether err is AVERROR(EAGAIN).
func IsAgain(err error) bool { return Code(err) == AVERROR_EAGAIN }

// Code returns the FFmpeg error code from an error, or 0 if not an FFmpeg error.
func Code(err error) int32 {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Code
	}
	return 0
}
