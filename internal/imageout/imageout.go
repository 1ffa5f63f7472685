//go:build !ios && !android && (amd64 || arm64)

// Package imageout encodes extracted frames as image files.
package imageout

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/obinnaokechukwu/framegrab"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Encoding is an output file format.
type Encoding string

const (
	PNG  Encoding = "png"
	JPEG Encoding = "jpeg"
	BMP  Encoding = "bmp"
	TIFF Encoding = "tiff"
	// Raw writes the packed pixel bytes unchanged.
	Raw Encoding = "raw"
)

// DefaultJPEGQuality is used when Options.Quality is zero.
const DefaultJPEGQuality = 90

// ParseEncoding parses an encoding name. Common aliases such as "jpg" and
// "tif" are accepted.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	case "raw", "rgb", "bin":
		return Raw, nil
	}
	return "", fmt.Errorf("unknown image encoding %q", s)
}

// FromPath picks the encoding from path's extension.
func FromPath(path string) (Encoding, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("no extension on %q", path)
	}
	return ParseEncoding(ext)
}

// ContentType returns the MIME type for e.
func (e Encoding) ContentType() string {
	switch e {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case BMP:
		return "image/bmp"
	case TIFF:
		return "image/tiff"
	}
	return "application/octet-stream"
}

// Extension returns the file extension for e, with the leading dot.
func (e Encoding) Extension() string {
	if e == JPEG {
		return ".jpg"
	}
	return "." + string(e)
}

// Options tunes encoding.
type Options struct {
	// Quality is the JPEG quality, 1 to 100.
	Quality int
}

// Encode writes img to w as e.
func Encode(w io.Writer, img *framegrab.Image, e Encoding, opts Options) error {
	if e == Raw {
		_, err := w.Write(img.Data)
		return err
	}
	m, err := ToImage(img)
	if err != nil {
		return err
	}
	switch e {
	case PNG:
		return png.Encode(w, m)
	case JPEG:
		q := opts.Quality
		if q == 0 {
			q = DefaultJPEGQuality
		}
		return jpeg.Encode(w, m, &jpeg.Options{Quality: q})
	case BMP:
		return bmp.Encode(w, m)
	case TIFF:
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unknown image encoding %q", e)
}

// ToImage wraps img as an image.Image. GRAY8 becomes *image.Gray; the
// colour formats become *image.NRGBA.
func ToImage(img *framegrab.Image) (image.Image, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, errors.New("empty image")
	}
	bpp := img.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("unsupported pixel format %s", img.Format)
	}
	if len(img.Data) < img.Width*img.Height*bpp {
		return nil, fmt.Errorf("image data is %d bytes, want %d", len(img.Data), img.Width*img.Height*bpp)
	}

	r := image.Rect(0, 0, img.Width, img.Height)
	switch img.Format {
	case framegrab.GRAY8:
		return &image.Gray{Pix: img.Data[:img.Width*img.Height], Stride: img.Width, Rect: r}, nil
	case framegrab.RGBA:
		return &image.NRGBA{Pix: img.Data[:img.Width*img.Height*4], Stride: img.Width * 4, Rect: r}, nil
	}

	out := image.NewNRGBA(r)
	for i, o := 0, 0; o < len(out.Pix); i, o = i+3, o+4 {
		if img.Format == framegrab.BGR24 {
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = img.Data[i+2], img.Data[i+1], img.Data[i]
		} else {
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = img.Data[i], img.Data[i+1], img.Data[i+2]
		}
		out.Pix[o+3] = 0xff
	}
	return out, nil
}
