//go:build !ios && !android && (amd64 || arm64)

package avformat

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/obinnaokechukwu/framegrab/avcodec"
	"github.com/obinnaokechukwu/framegrab/avutil"
)

var ffmpegAvailable bool

func TestMain(m *testing.M) {
	if err := Register(); err == nil {
		ffmpegAvailable = true
	}
	os.Exit(m.Run())
}

// createTestVideo writes a 2s 320x240 clip with a video and an audio stream.
func createTestVideo(t *testing.T) string {
	t.Helper()
	if !ffmpegAvailable {
		t.Skip("FFmpeg libraries not available")
	}

	testFile := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg", "-y", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=30",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=2",
		"-c:v", "libx264", "-preset", "ultrafast", "-g", "30",
		"-c:a", "aac", "-b:a", "64k",
		"-pix_fmt", "yuv420p",
		testFile)
	if err := cmd.Run(); err != nil {
		t.Skipf("ffmpeg not available or failed: %v", err)
	}
	return testFile
}

func openTestVideo(t *testing.T) FormatContext {
	t.Helper()
	testFile := createTestVideo(t)

	var ctx FormatContext
	if err := OpenInput(&ctx, testFile, nil); err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	t.Cleanup(func() { CloseInput(&ctx) })
	if err := FindStreamInfo(ctx); err != nil {
		t.Fatalf("FindStreamInfo failed: %v", err)
	}
	return ctx
}

func TestOpenInputMissingFile(t *testing.T) {
	if !ffmpegAvailable {
		t.Skip("FFmpeg libraries not available")
	}
	var ctx FormatContext
	err := OpenInput(&ctx, filepath.Join(t.TempDir(), "missing.mp4"), nil)
	if err == nil {
		CloseInput(&ctx)
		t.Fatal("expected an error for a missing file")
	}
	if avutil.Code(err) != avutil.AVERROR_ENOENT {
		t.Errorf("code = %d, want ENOENT", avutil.Code(err))
	}
	if ctx != nil {
		t.Error("context should be nil after a failed open")
	}
}

func TestStreamsAndBestStream(t *testing.T) {
	ctx := openTestVideo(t)

	if n := GetNumStreams(ctx); n != 2 {
		t.Fatalf("expected 2 streams, got %d", n)
	}

	idx := FindBestStream(ctx, avutil.MediaTypeVideo)
	if idx < 0 {
		t.Fatalf("FindBestStream(video) = %d", idx)
	}
	stream := GetStream(ctx, int(idx))
	par := GetStreamCodecPar(stream)
	if GetCodecParType(par) != avutil.MediaTypeVideo {
		t.Errorf("best stream type = %v", GetCodecParType(par))
	}
	if GetCodecParCodecID(par) != avcodec.CodecIDH264 {
		t.Errorf("codec = %v, want h264", GetCodecParCodecID(par))
	}
	if GetCodecParWidth(par) != 320 || GetCodecParHeight(par) != 240 {
		t.Errorf("size = %dx%d", GetCodecParWidth(par), GetCodecParHeight(par))
	}
	if GetCodecParFormat(par) != avutil.PixelFormatYUV420P {
		t.Errorf("format = %v, want yuv420p", GetCodecParFormat(par))
	}
	if tb := GetStreamTimeBase(stream); !tb.Valid() {
		t.Errorf("invalid time base %d/%d", tb.Num, tb.Den)
	}
	if GetStream(ctx, 99) != nil {
		t.Error("out of range index should return nil")
	}
}

func TestSeekFileAndReadFrame(t *testing.T) {
	ctx := openTestVideo(t)
	idx := FindBestStream(ctx, avutil.MediaTypeVideo)
	tb := GetStreamTimeBase(GetStream(ctx, int(idx)))

	target := tb.Timestamp(1.5)
	if err := SeekFile(ctx, idx, -1<<62, target, target, 0); err != nil {
		t.Fatalf("SeekFile: %v", err)
	}

	pkt := avcodec.PacketAlloc()
	defer avcodec.PacketFree(&pkt)
	for {
		if err := ReadFrame(ctx, pkt); err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if avcodec.GetPacketStreamIndex(pkt) == idx {
			break
		}
		avcodec.PacketUnref(pkt)
	}
	defer avcodec.PacketUnref(pkt)

	// GOP of 30 frames at 30fps: the landing keyframe is at 1.0s.
	if avcodec.GetPacketFlags(pkt)&avcodec.PacketFlagKey == 0 {
		t.Error("first packet after seek should be a keyframe")
	}
	if pts := avcodec.GetPacketPTS(pkt); pts > target {
		t.Errorf("landed at pts %d, after target %d", pts, target)
	}
}

func TestReadFrameEOF(t *testing.T) {
	ctx := openTestVideo(t)
	pkt := avcodec.PacketAlloc()
	defer avcodec.PacketFree(&pkt)

	var err error
	for i := 0; i < 10000; i++ {
		if err = ReadFrame(ctx, pkt); err != nil {
			break
		}
		avcodec.PacketUnref(pkt)
	}
	if !avutil.IsEOF(err) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestFindInputFormat(t *testing.T) {
	if !ffmpegAvailable {
		t.Skip("FFmpeg libraries not available")
	}
	if FindInputFormat("mov") == nil {
		t.Error("mov demuxer should exist")
	}
	if FindInputFormat("no-such-demuxer") != nil {
		t.Error("unknown demuxer should be nil")
	}
	if FindInputFormat("") != nil {
		t.Error("empty name should be nil")
	}
}

func TestCodecParLayoutByMajor(t *testing.T) {
	v60 := codecParLayoutFor(60)
	if v60 != (codecParLayout{format: 28, width: 56, height: 60}) {
		t.Errorf("avcodec 60 layout = %+v", v60)
	}
	v61 := codecParLayoutFor(61)
	if v61 != (codecParLayout{format: 44, width: 72, height: 76}) {
		t.Errorf("avcodec 61 layout = %+v", v61)
	}
	// width and height stay adjacent ints in both layouts.
	for _, l := range []codecParLayout{v60, v61} {
		if l.height-l.width != 4 {
			t.Errorf("width/height not adjacent in %+v", l)
		}
	}
}
