//go:build !ios && !android && (amd64 || arm64)

package main

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/framegrab"
	"github.com/obinnaokechukwu/framegrab/internal/config"
	"github.com/obinnaokechukwu/framegrab/internal/imageout"
	"github.com/obinnaokechukwu/framegrab/internal/objstore"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name  string
		out   string
		input string
		multi bool
		want  string
	}{
		{"explicit single", "frame.jpg", "/media/a.mp4", false, "frame.jpg"},
		{"default name", "", "/media/a.mp4", false, "a_3.5.png"},
		{"directory", "frames", "/media/a.mp4", true, filepath.Join("frames", "a_3.5.png")},
		{"s3 input", "", "s3://bucket/clips/b.mov", false, "b_3.5.png"},
		{"s3 prefix", "s3://out/frames/", "/media/a.mp4", true, "s3://out/frames/a_3.5.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputPath(tt.out, tt.input, 3.5, imageout.PNG, tt.multi))
		})
	}
}

func TestResolveEncoding(t *testing.T) {
	enc, err := resolveEncoding("", "frame.tiff", false)
	require.NoError(t, err)
	assert.Equal(t, imageout.TIFF, enc)

	enc, err = resolveEncoding("bmp", "frame.tiff", false)
	require.NoError(t, err)
	assert.Equal(t, imageout.BMP, enc)

	enc, err = resolveEncoding("", "frames", true)
	require.NoError(t, err)
	assert.Equal(t, imageout.PNG, enc)

	enc, err = resolveEncoding("", "-", false)
	require.NoError(t, err)
	assert.Equal(t, imageout.PNG, enc)

	_, err = resolveEncoding("", "frame.webp", false)
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	err := fmt.Errorf("a.mp4: %w", &framegrab.Error{Kind: framegrab.FrameNotFound, Message: "past the end"})
	assert.Equal(t, 14, exitCode(err))
	assert.Equal(t, 1, exitCode(io.ErrUnexpectedEOF))
	assert.Equal(t, 3, exitCode(cli.Exit("bad", 3)))
}

func testApp(t *testing.T) (*cli.App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard

	prevExiter, prevErr := cli.OsExiter, cli.ErrWriter
	cli.OsExiter = func(int) {}
	cli.ErrWriter = io.Discard
	t.Cleanup(func() { cli.OsExiter, cli.ErrWriter = prevExiter, prevErr })
	return app, &out
}

func TestExtractNeedsInput(t *testing.T) {
	app, _ := testApp(t)
	err := app.Run([]string{"framegrab", "extract", "-t", "1"})
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

// writeClip writes a two-GOP fragmented MP4 with keyframes at 0s and 2s.
func writeClip(t *testing.T) string {
	t.Helper()
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(30, "video", "und")

	var buf bytes.Buffer
	require.NoError(t, mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6"}).Encode(&buf))
	require.NoError(t, init.Moov.Encode(&buf))
	for g := 0; g < 2; g++ {
		frag, err := mp4.CreateFragment(uint32(g+1), 1)
		require.NoError(t, err)
		for i := 0; i < 60; i++ {
			flags := mp4.NonSyncSampleFlags
			if i == 0 {
				flags = mp4.SyncSampleFlags
			}
			frag.AddFullSample(mp4.FullSample{
				Sample:     mp4.Sample{Flags: flags, Size: 4, Dur: 1},
				DecodeTime: uint64(g*60 + i),
				Data:       []byte{0, 0, 0, 0},
			})
		}
		require.NoError(t, frag.Encode(&buf))
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestKeyframesCommand(t *testing.T) {
	path := writeClip(t)

	app, out := testApp(t)
	require.NoError(t, app.Run([]string{"framegrab", "keyframes", path}))
	assert.Contains(t, out.String(), "120 samples")
	assert.Contains(t, out.String(), "SAMPLE")
	assert.Contains(t, out.String(), "2.000000")

	app, out = testApp(t)
	require.NoError(t, app.Run([]string{"framegrab", "keyframes", "--at", "3", path}))
	assert.Equal(t, "t=3 lands on sample 61 at 2.000000s, 1.000000s to decode\n", out.String())

	app, out = testApp(t)
	require.NoError(t, app.Run([]string{"framegrab", "keyframes", "--json", path}))
	assert.Contains(t, out.String(), `"fragmented": true`)
}

func TestExtractCommand(t *testing.T) {
	if err := framegrab.Init(); err != nil {
		t.Skipf("FFmpeg libraries not available: %v", err)
	}
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip.mp4")
	cmd := exec.Command("ffmpeg", "-y", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=3:size=160x120:rate=30",
		"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p", clip)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg CLI failed: %v: %s", err, out)
	}

	data, err := os.ReadFile(clip)
	require.NoError(t, err)
	other := filepath.Join(dir, "other.mp4")
	require.NoError(t, os.WriteFile(other, data, 0o644))

	app, _ := testApp(t)
	outDir := filepath.Join(dir, "frames")
	require.NoError(t, app.Run([]string{"framegrab", "--log-format", "json", "extract",
		"-t", "1.5", "--width", "80", "-o", outDir, clip, other}))
	assert.FileExists(t, filepath.Join(outDir, "other_1.5.png"))

	f, err := os.Open(filepath.Join(outDir, "clip_1.5.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

// objectServer answers S3 GET and HEAD requests for a single object.
func objectServer(t *testing.T, path string, data []byte) *objstore.Store {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>no such key</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", "Tue, 02 Jan 2024 03:04:05 GMT")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	}))
	t.Cleanup(srv.Close)

	store, err := objstore.New(config.S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	return store
}

func TestSourceS3Download(t *testing.T) {
	data := []byte("pretend this is a movie")
	store := objectServer(t, "/media/clips/b.mov", data)
	dir := t.TempDir()
	ctx := context.Background()

	x := &extractRun{store: store, log: zap.NewNop(), container: "mov", downloadDir: dir}
	src, cleanup, err := x.source(ctx, "s3://media/clips/b.mov")
	require.NoError(t, err)
	require.True(t, src.IsFile())
	assert.Equal(t, dir, filepath.Dir(src.Path()))
	assert.Equal(t, ".mov", filepath.Ext(src.Path()))
	assert.Equal(t, "mov", src.FormatHint())
	got, err := os.ReadFile(src.Path())
	require.NoError(t, err)
	assert.Equal(t, data, got)

	cleanup()
	_, err = os.Stat(src.Path())
	assert.True(t, os.IsNotExist(err), "downloaded copy removed")

	x.downloadDir = ""
	src, cleanup, err = x.source(ctx, "s3://media/clips/b.mov")
	require.NoError(t, err)
	defer cleanup()
	assert.False(t, src.IsFile())
	assert.Equal(t, data, src.Bytes())

	x.downloadDir = dir
	_, _, err = x.source(ctx, "s3://media/clips/missing.mov")
	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed download leaves nothing behind")
}
