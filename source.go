//go:build !ios && !android && (amd64 || arm64)

package framegrab

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Source is the media an extraction reads from: a file path or a byte
// slice owned by the caller. The bytes are never modified.
type Source struct {
	path       string
	data       []byte
	formatHint string
}

// FileSource returns a Source reading the file at path.
func FileSource(path string) Source { return Source{path: path} }

// BytesSource returns a Source over data.
func BytesSource(data []byte) Source { return Source{data: data} }

// IsFile reports whether s reads from a path.
func (s Source) IsFile() bool { return s.data == nil && s.path != "" }

// Path returns the file path, or "" for byte sources.
func (s Source) Path() string { return s.path }

// Bytes returns the in-memory data, or nil for file sources.
func (s Source) Bytes() []byte { return s.data }

// FormatHint returns the demuxer name to force, if any.
func (s Source) FormatHint() string { return s.formatHint }

// WithFormatHint returns a copy of s that forces the named demuxer.
func (s Source) WithFormatHint(name string) Source {
	s.formatHint = name
	return s
}

func (s Source) String() string {
	if s.IsFile() {
		return s.path
	}
	return "<memory>"
}

// spillToTempFile writes data to a uniquely named file in dir and returns
// a file Source for it with a cleanup that removes the file.
func spillToTempFile(src Source, dir string) (Source, func(), error) {
	if dir == "" {
		dir = os.TempDir()
	}
	name := filepath.Join(dir, "framegrab-"+uuid.NewString()+".bin")

	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Source{}, nil, &Error{Kind: InvalidInput, Op: string(StageOpen), Message: "create temp file: " + err.Error(), Err: err}
	}
	cleanup := func() { _ = os.Remove(name) }

	_, werr := f.Write(src.data)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		cleanup()
		return Source{}, nil, &Error{Kind: InvalidInput, Op: string(StageOpen), Message: "write temp file: " + werr.Error(), Err: werr}
	}

	out := FileSource(name)
	out.formatHint = src.formatHint
	return out, cleanup, nil
}
