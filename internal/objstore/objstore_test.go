package objstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/framegrab/internal/config"
)

// fakeS3 serves one object and accepts uploads.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    map[string]string // path -> content type
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case http.MethodPut:
		io.Copy(io.Discard, r.Body)
		f.puts[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"9b2cf535f27731c974343645a3985328"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{
		objects: map[string][]byte{"/media/clips/a.mp4": []byte("not really an mp4 but close enough")},
		puts:    map[string]string{},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(config.S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	return store, fake
}

func TestParseURL(t *testing.T) {
	bucket, key, err := ParseURL("s3://media/clips/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "media", bucket)
	assert.Equal(t, "clips/a.mp4", key)

	for _, bad := range []string{"media/a.mp4", "s3://", "s3://media", "s3://media/", "http://media/a.mp4"} {
		_, _, err := ParseURL(bad)
		assert.Error(t, err, bad)
	}
	assert.True(t, IsURL("s3://x/y"))
	assert.False(t, IsURL("/tmp/x"))
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(config.S3Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFetch(t *testing.T) {
	store, fake := newTestStore(t)

	data, err := store.Fetch(context.Background(), "s3://media/clips/a.mp4", 0)
	require.NoError(t, err)
	assert.Equal(t, fake.objects["/media/clips/a.mp4"], data)

	_, err = store.Fetch(context.Background(), "s3://media/clips/a.mp4", 4)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = store.Fetch(context.Background(), "s3://media/missing.mp4", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDownload(t *testing.T) {
	store, fake := newTestStore(t)
	dest := filepath.Join(t.TempDir(), "a.mp4")

	require.NoError(t, store.Download(context.Background(), "s3://media/clips/a.mp4", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, fake.objects["/media/clips/a.mp4"], got)
}

func TestUpload(t *testing.T) {
	store, fake := newTestStore(t)
	body := "PNG bytes"

	err := store.Upload(context.Background(), "s3://frames/out/f.png", strings.NewReader(body), int64(len(body)), "image/png")
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "image/png", fake.puts["/frames/out/f.png"])
}
