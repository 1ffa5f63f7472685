//go:build !ios && !android && (amd64 || arm64)

package framegrab

// pack copies a converted single-plane frame into a buffer with no row
// padding: width*bpp bytes per row, rows back to back.
func pack(f Frame, format PixelFormat) ([]byte, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, newError(BackendError, StagePack, "unsupported output format %v", format)
	}
	width, height := f.Width(), f.Height()
	if width <= 0 || height <= 0 {
		return nil, newError(BackendError, StagePack, "invalid frame size %dx%d", width, height)
	}

	plane, stride := f.Plane(0)
	rowBytes := width * bpp
	if stride < rowBytes {
		return nil, newError(BackendError, StagePack, "stride %d shorter than row of %d bytes", stride, rowBytes)
	}
	if need := (height-1)*stride + rowBytes; len(plane) < need {
		return nil, newError(BackendError, StagePack, "plane holds %d bytes, need %d", len(plane), need)
	}

	out := make([]byte, rowBytes*height)
	for y := 0; y < height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], plane[y*stride:y*stride+rowBytes])
	}
	return out, nil
}
