package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kdimtricp/emostim/internal/experiment"
	"github.com/kdimtricp/emostim/internal/models"
)

const defaultChunkSize = 1 << 20

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether repeating the call may succeed: transport
// failures and 5xx answers, including 503 when every stream slot is taken.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}

// RetryAfter returns the server's requested back-off, or zero.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

type VideoList struct {
	Videos       []string `json:"videos"`
	HealingVideo string   `json:"healingVideo"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	chunkSize  int64
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithChunkSize sets the span requested per Range call when downloading.
func WithChunkSize(n int64) Option {
	return func(cl *Client) { cl.chunkSize = n }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		chunkSize:  defaultChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateOrResume(ctx context.Context, name string) (*experiment.Enrollment, error) {
	var out experiment.Enrollment
	if err := c.doJSON(ctx, http.MethodPost, "/api/participants", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	var out models.Participant
	if err := c.doJSON(ctx, http.MethodGet, "/api/participants/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) NextVideo(ctx context.Context, participantID string) (*experiment.NextVideo, error) {
	var out experiment.NextVideo
	path := "/api/participants/" + url.PathEscape(participantID) + "/next-video"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitResponse(ctx context.Context, in experiment.ResponseInput) (*models.VideoResponse, error) {
	var out models.VideoResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/responses", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListResponses(ctx context.Context, participantID string) ([]models.VideoResponse, error) {
	var out []models.VideoResponse
	path := "/api/participants/" + url.PathEscape(participantID) + "/responses"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListVideos(ctx context.Context) (*VideoList, error) {
	var out VideoList
	if err := c.doJSON(ctx, http.MethodGet, "/api/videos", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VideoURL(filename string) string {
	return c.baseURL + "/videos/" + url.PathEscape(filename)
}

// DownloadVideo copies filename to w with consecutive Range requests and
// returns the number of bytes written. Each request holds one stream slot
// on the server only for the duration of its chunk. The first request is
// open-ended; later ones are capped at the size reported by Content-Range.
func (c *Client) DownloadVideo(ctx context.Context, filename string, w io.Writer) (int64, error) {
	var written int64
	total := int64(-1)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.VideoURL(filename), nil)
		if err != nil {
			return written, err
		}
		req.Header.Set("Range", rangeHeader(written, c.chunkSize, total))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return written, fmt.Errorf("failed to fetch video: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			n, err := io.Copy(w, resp.Body)
			resp.Body.Close()
			return written + n, err
		case http.StatusPartialContent:
			n, err := io.Copy(w, resp.Body)
			resp.Body.Close()
			written += n
			if err != nil {
				return written, err
			}
			size, ok := totalFromContentRange(resp.Header.Get("Content-Range"))
			if !ok {
				return written, fmt.Errorf("invalid Content-Range %q", resp.Header.Get("Content-Range"))
			}
			total = size
			if written >= total {
				return written, nil
			}
			if n == 0 {
				return written, fmt.Errorf("download stalled at %d of %d bytes", written, total)
			}
		case http.StatusRequestedRangeNotSatisfiable:
			header := resp.Header.Get("Content-Range")
			resp.Body.Close()
			size, ok := totalFromContentRange(header)
			if ok && size == written {
				return written, nil
			}
			return written, fmt.Errorf("range not satisfiable at %d bytes (Content-Range %q)", written, header)
		default:
			err := decodeError(resp)
			resp.Body.Close()
			return written, err
		}
	}
}

// rangeHeader asks for the next chunk starting at offset. With an unknown
// total the range is left open and the server picks the span.
func rangeHeader(offset, chunk, total int64) string {
	if total < 0 {
		return fmt.Sprintf("bytes=%d-", offset)
	}
	end := min(offset+chunk, total) - 1
	return fmt.Sprintf("bytes=%d-%d", offset, end)
}

func totalFromContentRange(header string) (int64, bool) {
	_, total, ok := strings.Cut(header, "/")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(total, 10, 64)
	return n, err == nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}
