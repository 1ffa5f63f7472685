//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"errors"
	"io"

	"github.com/obinnaokechukwu/framegrab/avcodec"
	"github.com/obinnaokechukwu/framegrab/avutil"
)

// fakeFrame is a frame with explicit planes and strides.
type fakeFrame struct {
	width, height int
	format        avutil.PixelFormat
	pts           int64
	hasPTS        bool
	planes        [][]byte
	strides       []int
}

func (f *fakeFrame) Width() int                      { return f.width }
func (f *fakeFrame) Height() int                     { return f.height }
func (f *fakeFrame) PixelFormat() avutil.PixelFormat { return f.format }
func (f *fakeFrame) PTS() (int64, bool)              { return f.pts, f.hasPTS }

func (f *fakeFrame) Plane(i int) ([]byte, int) {
	if i < 0 || i >= len(f.planes) {
		return nil, 0
	}
	return f.planes[i], f.strides[i]
}

// pixel is the value the fake converter writes at (x, y, channel c) for a
// source frame with timestamp pts.
func pixel(x, y, c int, pts int64) byte {
	return byte(x*7 + y*13 + c*3 + int(pts))
}

// paddedFrame builds a packed frame whose rows carry pad bytes of 0xEE.
func paddedFrame(w, h, bpp, pad int, pts int64) *fakeFrame {
	stride := w*bpp + pad
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < bpp; c++ {
				data[y*stride+x*bpp+c] = pixel(x, y, c, pts)
			}
		}
		for p := 0; p < pad; p++ {
			data[y*stride+w*bpp+p] = 0xEE
		}
	}
	return &fakeFrame{width: w, height: h, pts: pts, hasPTS: true, planes: [][]byte{data}, strides: []int{stride}}
}

type fakePacket struct {
	stream int
	pts    int64
	key    bool
}

func (p fakePacket) StreamIndex() int { return p.stream }

func (p fakePacket) PTS() (int64, bool) { return p.pts, true }

func (p fakePacket) Key() bool { return p.key }

type seekCall struct {
	stream           int
	minTS, ts, maxTS int64
}

// fakeContainer serves a fixed packet list. Seek moves to the last
// keyframe of the stream at or before ts, like a backward demuxer seek.
type fakeContainer struct {
	streams  []StreamInfo
	best     int
	packets  []fakePacket
	pos      int
	read     int
	seeks    []seekCall
	seekErr  error
	readErr  error // returned once the list is exhausted instead of io.EOF
	decoder  *fakeDecoder
	decErr   error
	closed   bool
	closeHit func()
}

func (c *fakeContainer) Streams() []StreamInfo { return c.streams }

func (c *fakeContainer) BestVideoStream() (int, bool) {
	return c.best, c.best >= 0
}

func (c *fakeContainer) Seek(stream int, minTS, ts, maxTS int64) error {
	c.seeks = append(c.seeks, seekCall{stream, minTS, ts, maxTS})
	if c.seekErr != nil {
		return c.seekErr
	}
	c.pos = 0
	for i, p := range c.packets {
		if p.stream == stream && p.key && p.pts <= ts {
			c.pos = i
		}
	}
	return nil
}

func (c *fakeContainer) ReadPacket() (Packet, error) {
	if c.pos >= len(c.packets) {
		if c.readErr != nil {
			return nil, c.readErr
		}
		return nil, io.EOF
	}
	p := c.packets[c.pos]
	c.pos++
	c.read++
	return p, nil
}

func (c *fakeContainer) NewDecoder(stream int) (Decoder, error) {
	if c.decErr != nil {
		return nil, c.decErr
	}
	if c.decoder == nil {
		c.decoder = &fakeDecoder{}
	}
	c.decoder.stream = stream
	return c.decoder, nil
}

func (c *fakeContainer) Close() error {
	c.closed = true
	if c.closeHit != nil {
		c.closeHit()
	}
	return nil
}

// fakeDecoder emits one frame per packet, holding back delay frames
// until flushed, the way a decoder with reordering does.
type fakeDecoder struct {
	stream     int
	delay      int
	noPTS      bool
	width      int
	height     int
	sendErr    error
	receiveErr error
	flushErr   error
	// eofErr is returned by ReceiveFrame once the decoder is draining.
	eofErr     error
	queue      []int64
	sent       []fakePacket
	eof        bool
	closed     bool
}

func (d *fakeDecoder) SendPacket(p Packet) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	fp := p.(fakePacket)
	d.sent = append(d.sent, fp)
	d.queue = append(d.queue, fp.pts)
	return nil
}

func (d *fakeDecoder) ReceiveFrame() (Frame, error) {
	if d.receiveErr != nil {
		return nil, d.receiveErr
	}
	if d.eof && d.eofErr != nil {
		return nil, d.eofErr
	}
	if len(d.queue) == 0 {
		if d.eof {
			return nil, io.EOF
		}
		return nil, ErrWouldBlock
	}
	if !d.eof && len(d.queue) <= d.delay {
		return nil, ErrWouldBlock
	}
	pts := d.queue[0]
	d.queue = d.queue[1:]
	w, h := d.width, d.height
	if w == 0 {
		w, h = 32, 24
	}
	return &fakeFrame{width: w, height: h, format: avutil.PixelFormatYUV420P, pts: pts, hasPTS: !d.noPTS}, nil
}

func (d *fakeDecoder) SendEOF() error {
	d.eof = true
	return d.flushErr
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}

type fakeConverter struct {
	cfg    ConverterConfig
	calls  int
	closed bool
}

func (c *fakeConverter) Convert(f Frame) (Frame, error) {
	if f.Width() != c.cfg.SrcWidth || f.Height() != c.cfg.SrcHeight {
		return nil, errors.New("geometry mismatch")
	}
	c.calls++
	pts, _ := f.PTS()
	bpp := map[avutil.PixelFormat]int{
		avutil.PixelFormatRGB24: 3, avutil.PixelFormatBGR24: 3,
		avutil.PixelFormatRGBA: 4, avutil.PixelFormatGray8: 1,
	}[c.cfg.DstFormat]
	out := paddedFrame(c.cfg.DstWidth, c.cfg.DstHeight, bpp, 16, pts)
	out.format = c.cfg.DstFormat
	return out, nil
}

func (c *fakeConverter) Close() error {
	c.closed = true
	return nil
}

type fakeBackend struct {
	container  *fakeContainer
	openErr    error
	onOpen     func(Source)
	opened     []Source
	convErr    error
	converters []*fakeConverter
	panicOpen  bool
}

func (b *fakeBackend) Open(src Source) (Container, error) {
	if b.panicOpen {
		panic("boom")
	}
	b.opened = append(b.opened, src)
	if b.onOpen != nil {
		b.onOpen(src)
	}
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.container, nil
}

func (b *fakeBackend) NewConverter(cfg ConverterConfig) (Converter, error) {
	if b.convErr != nil {
		return nil, b.convErr
	}
	c := &fakeConverter{cfg: cfg}
	b.converters = append(b.converters, c)
	return c, nil
}

// clip returns a container with a video stream at 30fps in a 1/30 time
// base, a keyframe every gop frames, and audio packets interleaved after
// every video packet when withAudio is set.
func clip(frames, gop int, withAudio bool) *fakeContainer {
	c := &fakeContainer{
		best: 0,
		streams: []StreamInfo{
			{Index: 0, MediaType: avutil.MediaTypeVideo, CodecID: avcodec.CodecIDH264, Width: 32, Height: 24,
				PixelFormat: avutil.PixelFormatYUV420P, TimeBase: avutil.Rational{Num: 1, Den: 30}, StartTime: 0, Duration: int64(frames)},
			{Index: 1, MediaType: avutil.MediaTypeAudio, TimeBase: avutil.Rational{Num: 1, Den: 48000}},
		},
	}
	for i := 0; i < frames; i++ {
		c.packets = append(c.packets, fakePacket{stream: 0, pts: int64(i), key: i%gop == 0})
		if withAudio {
			c.packets = append(c.packets, fakePacket{stream: 1, pts: int64(i) * 1600, key: true})
		}
	}
	return c
}
