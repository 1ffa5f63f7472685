//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"errors"
	"fmt"
	"testing"

	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/internal/bindings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ffErr(code int32) error {
	return &avutil.Error{Code: code, Message: "test", Op: "test"}
}

func TestErrorKindCodesAreStable(t *testing.T) {
	want := map[ErrorKind]int{
		Unknown: 0, InitFailed: 1, NoVideoStream: 2, DecoderFailed: 3,
		FrameNotFound: 4, InvalidInput: 5, SeekFailed: 6, BackendError: 7,
	}
	for kind, code := range want {
		assert.Equal(t, code, kind.Code(), kind.String())
		assert.Equal(t, kind, KindFromCode(code))
	}
	assert.Equal(t, Unknown, KindFromCode(99))
	assert.Equal(t, Unknown, KindFromCode(-1))
}

func TestErrorKindStrings(t *testing.T) {
	assert.Equal(t, "FrameNotFound", FrameNotFound.String())
	assert.Equal(t, "ErrorKind(12)", ErrorKind(12).String())
	assert.Equal(t, "no video stream found in input", NoVideoStream.Description())
	assert.Equal(t, Unknown.Description(), ErrorKind(12).Description())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		stage Stage
		err   error
		want  ErrorKind
	}{
		{StageOpen, ffErr(avutil.AVERROR_ENOENT), InvalidInput},
		{StageOpen, ffErr(avutil.AVERROR_INVALIDDATA), InvalidInput},
		{StageOpen, ffErr(avutil.AVERROR_DEMUXER_NOT_FOUND), InvalidInput},
		{StageOpen, ffErr(avutil.AVERROR_EIO), InvalidInput},
		{StageOpen, ffErr(avutil.AVERROR_ENOMEM), BackendError},
		{StageRead, ffErr(avutil.AVERROR_EIO), InvalidInput},
		{StageSelect, ffErr(avutil.AVERROR_STREAM_NOT_FOUND), NoVideoStream},
		{StageDecoder, ffErr(avutil.AVERROR_DECODER_NOT_FOUND), DecoderFailed},
		{StageDecoder, ffErr(avutil.AVERROR_STREAM_NOT_FOUND), NoVideoStream},
		{StageDecoder, ffErr(avutil.AVERROR_EINVAL), DecoderFailed},
		{StageSeek, ffErr(avutil.AVERROR_EIO), SeekFailed},
		{StageSeek, ffErr(avutil.AVERROR_BUG), BackendError},
		{StageSend, ffErr(avutil.AVERROR_INVALIDDATA), DecoderFailed},
		{StageReceive, ffErr(avutil.AVERROR_EINVAL), DecoderFailed},
		{StageFlush, ffErr(avutil.AVERROR_ENOMEM), DecoderFailed},
		{StageConvert, ffErr(avutil.AVERROR_EINVAL), BackendError},
		{StageConvert, errors.New("sws_getContext failed"), BackendError},
		{StagePack, errors.New("short plane"), BackendError},
		{StageOpen, bindings.ErrNotLoaded, InitFailed},
		{StageInit, fmt.Errorf("load: %w", bindings.ErrLibraryNotFound), InitFailed},
		{StageInit, fmt.Errorf("load: %w", bindings.ErrUnsupportedVersion), InitFailed},
		{StageRead, errors.New("truncated"), InvalidInput},
		{Stage("other"), errors.New("x"), BackendError},
		{Stage("other"), ffErr(avutil.AVERROR_EIO), BackendError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.stage, tt.err), func(t *testing.T) {
			got := translate(tt.stage, tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, string(tt.stage), got.Op)
			assert.Contains(t, got.Message, tt.err.Error())
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestTranslatePassesThroughClassifiedErrors(t *testing.T) {
	orig := newError(FrameNotFound, StageFlush, "none")
	got := translate(StageConvert, fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, got)
	assert.Nil(t, translate(StageOpen, nil))
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := translate(StageSeek, ffErr(avutil.AVERROR_EIO))
	assert.ErrorIs(t, err, ErrSeekFailed)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, SeekFailed, KindOf(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := newError(NoVideoStream, StageSelect, "input has %d streams", 0)
	assert.Equal(t, "framegrab: select_stream: NoVideoStream: input has 0 streams", err.Error())
	assert.Equal(t, "framegrab: InvalidInput: invalid input data or parameters", ErrInvalidInput.Error())
}
