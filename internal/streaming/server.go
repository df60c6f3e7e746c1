package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kdimtricp/emostim/internal/experiment"
	"github.com/kdimtricp/emostim/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	DefaultChunkSize  = 1 << 20
	DefaultRetryAfter = 5
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

type Config struct {
	ChunkSize         int64
	RetryAfterSeconds int
	// BytesStreamed counts body bytes written. Optional.
	BytesStreamed prometheus.Counter
	Logger        *logrus.Entry
}

// Server streams files from storage, one limiter slot per request.
type Server struct {
	storage    storage.Storage
	limiter    *Limiter
	chunkSize  int64
	retryAfter int
	bytes      prometheus.Counter
	log        *logrus.Entry
}

func NewServer(store storage.Storage, limiter *Limiter, config Config) *Server {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.RetryAfterSeconds <= 0 {
		config.RetryAfterSeconds = DefaultRetryAfter
	}
	log := config.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Server{
		storage:    store,
		limiter:    limiter,
		chunkSize:  config.ChunkSize,
		retryAfter: config.RetryAfterSeconds,
		bytes:      config.BytesStreamed,
		log:        log,
	}
}

func (s *Server) Limiter() *Limiter {
	return s.limiter
}

// Serve writes filename to w, honouring a single Range header. Errors are
// returned only while nothing has been written yet; the caller renders them.
// Response headers that belong to the error (Retry-After, Content-Range) are
// already set on w. Failures after the headers went out are logged.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, filename string) error {
	release, ok := s.limiter.TryAcquire()
	if !ok {
		w.Header().Set("Retry-After", strconv.Itoa(s.retryAfter))
		s.log.WithField("video", filename).Warn("stream rejected, all slots busy")
		return experiment.NewResourceExhaustedError("too many concurrent streams, retry later")
	}
	defer release()

	info, err := s.storage.Stat(filename)
	if err != nil {
		return storageError(err)
	}
	size := info.Size

	h := w.Header()
	status := http.StatusOK
	span := Range{Start: 0, End: size - 1}

	if header := r.Header.Get("Range"); header != "" {
		span, err = ParseRange(header, size, s.chunkSize)
		if err != nil {
			h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			return experiment.NewRangeNotSatisfiableError("requested range not satisfiable")
		}
		status = http.StatusPartialContent
	}
	length := span.Length()

	var body io.Reader
	if r.Method != http.MethodHead && length > 0 {
		file, err := s.storage.OpenFile(filename)
		if err != nil {
			return storageError(err)
		}
		defer file.Close()

		if span.Start > 0 {
			if _, err := file.Seek(span.Start, io.SeekStart); err != nil {
				return experiment.NewInternalError("failed to seek video", err)
			}
		}
		body = &contextReader{ctx: r.Context(), r: file}
	}

	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", ContentType(filename))
	h.Set("Cache-Control", "public, max-age=3600")
	if !info.ModTime.IsZero() {
		h.Set("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	}
	if status == http.StatusPartialContent {
		h.Set("Content-Range", span.ContentRange(size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)

	if body == nil {
		return nil
	}

	n, err := io.CopyN(w, body, length)
	if s.bytes != nil {
		s.bytes.Add(float64(n))
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"video":   filename,
			"written": n,
			"want":    length,
		}).WithError(err).Warn("video stream interrupted")
	}
	return nil
}

func storageError(err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		return experiment.NewNotFoundError("video not found")
	}
	return experiment.NewInternalError("failed to open video", err)
}

// ContentType maps a video filename to its MIME type.
func ContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// contextReader stops reading once the request context is done, so a client
// abort ends the copy promptly.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
