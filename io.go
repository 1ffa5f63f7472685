//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/framegrab/avformat"
	"github.com/obinnaokechukwu/framegrab/avutil"
	"github.com/obinnaokechukwu/framegrab/internal/handles"
)

const ioBufferSize = 32 * 1024

// whence values FFmpeg passes to the seek callback on top of SEEK_*.
const (
	avseekSize  = 0x10000
	avseekForce = 0x20000
)

// memoryIO feeds a byte slice to the demuxer through an AVIOContext.
type memoryIO struct {
	reader *bytes.Reader
	ctx    avformat.IOContext
	handle uintptr
}

var ioTable handles.Table[*memoryIO]

// purego callbacks are a finite resource, so the read and seek
// trampolines are created once and dispatch through ioTable.
var (
	ioCallbacksOnce sync.Once
	readCallbackPtr uintptr
	seekCallbackPtr uintptr
)

func initIOCallbacks() {
	ioCallbacksOnce.Do(func() {
		// int read_packet(void *opaque, uint8_t *buf, int buf_size)
		readCallbackPtr = purego.NewCallback(func(_ purego.CDecl, opaque unsafe.Pointer, buf *byte, bufSize int32) int32 {
			m, ok := ioTable.Lookup(uintptr(opaque))
			if !ok || bufSize <= 0 {
				return avutil.AVERROR_EINVAL
			}
			n, err := m.reader.Read(unsafe.Slice(buf, bufSize))
			if n > 0 {
				return int32(n)
			}
			if errors.Is(err, io.EOF) || err == nil {
				return avutil.AVERROR_EOF
			}
			return avutil.AVERROR_EIO
		})

		// int64_t seek(void *opaque, int64_t offset, int whence)
		seekCallbackPtr = purego.NewCallback(func(_ purego.CDecl, opaque unsafe.Pointer, offset int64, whence int32) int64 {
			m, ok := ioTable.Lookup(uintptr(opaque))
			if !ok {
				return int64(avutil.AVERROR_EINVAL)
			}
			if whence&avseekSize != 0 {
				return m.reader.Size()
			}
			pos, err := m.reader.Seek(offset, int(whence&^avseekForce))
			if err != nil {
				return int64(avutil.AVERROR_EINVAL)
			}
			return pos
		})
	})
}

// newMemoryIO allocates an AVIOContext reading from data.
func newMemoryIO(data []byte) (*memoryIO, error) {
	initIOCallbacks()

	buf := avutil.Malloc(ioBufferSize)
	if buf == nil {
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "av_malloc")
	}

	m := &memoryIO{reader: bytes.NewReader(data)}
	m.handle = ioTable.Register(m)

	m.ctx = avformat.IOAllocContext(buf, ioBufferSize, m.handle, readCallbackPtr, seekCallbackPtr)
	if m.ctx == nil {
		avutil.Free(buf)
		ioTable.Unregister(m.handle)
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "avio_alloc_context")
	}
	return m, nil
}

// Close frees the AVIOContext and its buffer. It must run after the
// format context using it has been closed.
func (m *memoryIO) Close() {
	if m == nil {
		return
	}
	if m.ctx != nil {
		// FFmpeg may have swapped the buffer we gave it.
		avutil.Free(avformat.IOContextBuffer(m.ctx))
		avformat.IOContextFree(&m.ctx)
	}
	if m.handle != 0 {
		ioTable.Unregister(m.handle)
		m.handle = 0
	}
}
