package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
	"github.com/couchcryptid/city-sensor-pipeline/internal/observability"
)

// maxBodyBytes caps how much of a dataset is read into memory. Larger
// datasets are rejected rather than truncated mid-row.
const maxBodyBytes = 64 << 20

// Source fetches the raw bytes of a dataset by path.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// HTTPSource fetches datasets relative to a base URL.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
	maxBytes   int64
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewHTTPSource creates a source that issues GET requests against baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBodyBytes,
		metrics:  metrics,
		logger:   logger,
	}
}

// Fetch downloads path. Any non-2xx status is an error wrapping domain.ErrFetch.
func (s *HTTPSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	body, err := s.doRequest(ctx, path)
	s.observe("http", start, err)
	if err != nil {
		s.logger.Warn("dataset fetch failed", "path", path, "error", err)
		return nil, err
	}
	s.logger.Debug("dataset fetched", "path", path, "bytes", len(body))
	return body, nil
}

func (s *HTTPSource) doRequest(ctx context.Context, path string) ([]byte, error) {
	u, err := s.resolve(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %w", domain.ErrFetch, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: status %d: %s", domain.ErrFetch, path, resp.StatusCode, snippet)
	}

	return readLimited(resp.Body, path, s.maxBytes)
}

func (s *HTTPSource) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (s *HTTPSource) observe(source string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	observeFetch(s.metrics, source, start, err)
}

// FileSource reads datasets from a directory on disk.
type FileSource struct {
	root     string
	maxBytes int64
	metrics  *observability.Metrics
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string, metrics *observability.Metrics) *FileSource {
	return &FileSource{root: dir, maxBytes: maxBodyBytes, metrics: metrics}
}

// Fetch reads path below the root. Paths cannot escape the root.
func (s *FileSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	body, err := s.read(ctx, path)
	if s.metrics != nil {
		observeFetch(s.metrics, "file", start, err)
	}
	return body, err
}

func (s *FileSource) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	full := filepath.Join(s.root, filepath.FromSlash(filepath.Clean("/"+path)))
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	defer f.Close()

	return readLimited(f, path, s.maxBytes)
}

// readLimited reads all of r, failing when it holds more than limit bytes.
func readLimited(r io.Reader, path string, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrFetch, path, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s: dataset too large (over %d bytes)", domain.ErrFetch, path, limit)
	}
	return body, nil
}

// NewSource picks an HTTP source for http(s) base locations and a file
// source for anything else.
func NewSource(base string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) Source {
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return NewHTTPSource(base, timeout, metrics, logger)
	}
	return NewFileSource(base, metrics)
}

func observeFetch(m *observability.Metrics, source string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.FetchRequests.WithLabelValues(source, outcome).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
