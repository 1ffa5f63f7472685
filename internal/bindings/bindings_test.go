//go:build !ios && !android && (amd64 || arm64)

package bindings

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestLibrarySearchPathsHonorsOverride(t *testing.T) {
	t.Setenv("FRAMEGRAB_FFMPEG_LIB_DIR", "/opt/ffmpeg/lib")
	paths := LibrarySearchPaths()
	if len(paths) == 0 || paths[0] != "/opt/ffmpeg/lib" {
		t.Fatalf("override dir should be searched first, got %v", paths)
	}
}

func TestCandidatesEndWithBareNames(t *testing.T) {
	got := candidates("avutil", []int{59})
	if len(got) < 2 {
		t.Fatalf("expected at least two candidates, got %v", got)
	}
	last := got[len(got)-1]
	if filepath.IsAbs(last) || !strings.Contains(last, "avutil") {
		t.Errorf("last candidate should be a bare library name, got %q", last)
	}
}

func TestLoadLibraryMissing(t *testing.T) {
	_, err := loadLibrary("framegrab-does-not-exist", []int{1})
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("expected ErrLibraryNotFound, got %v", err)
	}
}

func TestCheckMajor(t *testing.T) {
	if err := checkMajor("avutil", 58<<16|29<<8|100, avutilVersions); err != nil {
		t.Errorf("avutil 58 should be accepted: %v", err)
	}
	if err := checkMajor("avcodec", 61<<16|3<<8|100, avcodecVersions); err != nil {
		t.Errorf("avcodec 61 should be accepted: %v", err)
	}
	for _, v := range []uint32{57 << 16, 60 << 16} {
		err := checkMajor("avutil", v, avutilVersions)
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("avutil major %d: expected ErrUnsupportedVersion, got %v", Major(v), err)
		}
	}
	if Major(59<<16|8<<8|100) != 59 {
		t.Error("Major should return the high bits")
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FFmpeg load in short mode")
	}
	if err := Load(); err != nil {
		t.Skipf("FFmpeg not available: %v", err)
	}
	if err := Load(); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if !IsLoaded() {
		t.Error("IsLoaded should be true after successful Load")
	}

	v := LibraryVersions()
	if v.AVUtil == 0 || v.SWScale == 0 {
		t.Errorf("versions should be non-zero after Load: %+v", v)
	}
	t.Logf("avutil %d.%d.%d", v.AVUtil>>16, (v.AVUtil>>8)&0xFF, v.AVUtil&0xFF)
}
