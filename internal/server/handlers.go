//go:build !ios && !android && (amd64 || arm64)

package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/framegrab"
	"github.com/obinnaokechukwu/framegrab/internal/imageout"
	"github.com/obinnaokechukwu/framegrab/internal/objstore"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Success   bool   `json:"success"`
	ErrorCode int    `json:"error_code"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// request holds the parsed query of an extract call.
type request struct {
	timeSec  float64
	opts     []framegrab.Option
	encoding imageout.Encoding
	quality  int
}

func (s *Server) handleExtractBody(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", s.cfg.MaxBodyBytes))
			return
		}
		s.fail(c, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if len(data) == 0 {
		s.fail(c, http.StatusBadRequest, errors.New("request body is empty"))
		return
	}

	src := framegrab.BytesSource(data)
	if hint := c.Query("container"); hint != "" {
		src = src.WithFormatHint(hint)
	}
	s.extract(c, "memory", src, req)
}

func (s *Server) handleExtractObject(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	url := c.Query("source")
	if !objstore.IsURL(url) {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("source must be an s3:// url, got %q", url))
		return
	}
	if s.deps.Store == nil {
		s.fail(c, http.StatusNotImplemented, objstore.ErrNotConfigured)
		return
	}

	data, err := s.deps.Store.Fetch(c.Request.Context(), url, s.cfg.MaxBodyBytes)
	switch {
	case errors.Is(err, objstore.ErrNotFound):
		s.fail(c, http.StatusNotFound, err)
		return
	case errors.Is(err, objstore.ErrTooLarge):
		s.fail(c, http.StatusRequestEntityTooLarge, err)
		return
	case err != nil:
		s.fail(c, http.StatusBadGateway, err)
		return
	}

	src := framegrab.BytesSource(data)
	if hint := c.Query("container"); hint != "" {
		src = src.WithFormatHint(hint)
	}
	s.extract(c, "s3", src, req)
}

func (s *Server) handleVersion(c *gin.Context) {
	if s.deps.Versions == nil {
		s.fail(c, http.StatusNotImplemented, errors.New("version reporting is disabled"))
		return
	}
	v, err := s.deps.Versions()
	if err != nil {
		s.fail(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"avutil":   v.AVUtil,
		"avcodec":  v.AVCodec,
		"avformat": v.AVFormat,
		"swscale":  v.SWScale,
	})
}

type outcome struct {
	img *framegrab.Image
	err error
}

// extract runs the extraction under the concurrency limit and request
// timeout and writes the encoded frame.
func (s *Server) extract(c *gin.Context, source string, src framegrab.Source, req *request) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			s.fail(c, http.StatusServiceUnavailable, errors.New("too many extractions in flight"))
			return
		}
	}

	log := s.log.With(zap.String("request_id", c.GetString(requestIDKey)))
	opts := append(req.opts, framegrab.WithLogger(log))

	// The extraction cannot be interrupted, so a timed-out request
	// leaves it to finish in the background.
	done := make(chan outcome, 1)
	go func() {
		img, err := s.run(ctx, source, src, req.timeSec, opts)
		done <- outcome{img, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		s.fail(c, http.StatusGatewayTimeout, fmt.Errorf("extraction did not finish within %s", s.cfg.RequestTimeout))
		return
	}
	if out.err != nil {
		s.fail(c, statusFor(out.err), out.err)
		return
	}

	var buf bytes.Buffer
	if err := imageout.Encode(&buf, out.img, req.encoding, imageout.Options{Quality: req.quality}); err != nil {
		s.fail(c, http.StatusInternalServerError, fmt.Errorf("encode %s: %w", req.encoding, err))
		return
	}
	c.Header("X-Frame-Width", strconv.Itoa(out.img.Width))
	c.Header("X-Frame-Height", strconv.Itoa(out.img.Height))
	c.Header("X-Frame-Format", out.img.Format.String())
	c.Header("X-Frame-PTS", strconv.FormatInt(out.img.PTS, 10))
	c.Header("X-Frame-Time", strconv.FormatFloat(out.img.Time, 'f', 6, 64))
	c.Data(http.StatusOK, req.encoding.ContentType(), buf.Bytes())
}

// run performs one extraction and records it. It releases the
// concurrency slot taken by extract.
func (s *Server) run(ctx context.Context, source string, src framegrab.Source, timeSec float64, opts []framegrab.Option) (*framegrab.Image, error) {
	if s.sem != nil {
		defer func() { <-s.sem }()
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.InFlight.Inc()
		defer s.deps.Metrics.InFlight.Dec()
	}

	start := time.Now()
	img, err := s.deps.Extractor.ExtractContext(ctx, src, timeSec, opts...)
	result, n := "ok", 0
	if err != nil {
		result = framegrab.KindOf(err).String()
	} else {
		n = len(img.Data)
	}
	s.deps.Metrics.ObserveExtraction(source, result, time.Since(start), n)
	return img, err
}

func parseRequest(c *gin.Context) (*request, error) {
	req := &request{}

	if v := c.Query("t"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid t %q", v)
		}
		req.timeSec = t
	}
	if v, ok := c.GetQuery("format"); ok {
		f, err := framegrab.ParsePixelFormat(v)
		if err != nil {
			return nil, err
		}
		req.opts = append(req.opts, framegrab.WithPixelFormat(f))
	}
	if v, ok := c.GetQuery("scaling"); ok {
		m, err := framegrab.ParseScalingMethod(v)
		if err != nil {
			return nil, err
		}
		req.opts = append(req.opts, framegrab.WithScaling(m))
	}
	if v, ok := c.GetQuery("negative"); ok {
		p, err := framegrab.ParseNegativeTimePolicy(v)
		if err != nil {
			return nil, err
		}
		req.opts = append(req.opts, framegrab.WithNegativeTime(p))
	}

	width, err := intQuery(c, "width")
	if err != nil {
		return nil, err
	}
	height, err := intQuery(c, "height")
	if err != nil {
		return nil, err
	}
	if width > 0 || height > 0 {
		req.opts = append(req.opts, framegrab.WithSize(width, height))
	}

	req.encoding, err = imageout.ParseEncoding(c.Query("encoding"))
	if err != nil {
		return nil, err
	}
	if req.quality, err = intQuery(c, "quality"); err != nil {
		return nil, err
	}
	if req.quality > 100 {
		return nil, fmt.Errorf("quality must be at most 100, got %d", req.quality)
	}
	return req, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

// statusFor maps an extraction error to an HTTP status.
func statusFor(err error) int {
	switch framegrab.KindOf(err) {
	case framegrab.InvalidInput:
		return http.StatusBadRequest
	case framegrab.NoVideoStream, framegrab.FrameNotFound, framegrab.DecoderFailed:
		return http.StatusUnprocessableEntity
	case framegrab.InitFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	kind := framegrab.KindOf(err)
	if kind == framegrab.Unknown && status < 500 {
		kind = framegrab.InvalidInput
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Success:   false,
		ErrorCode: kind.Code(),
		Error:     kind.String(),
		Message:   err.Error(),
		RequestID: c.GetString(requestIDKey),
	})
}
