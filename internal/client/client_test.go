package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kdimtricp/emostim/internal/experiment"
	"github.com/kdimtricp/emostim/internal/logging"
	"github.com/kdimtricp/emostim/internal/models"
	"github.com/kdimtricp/emostim/internal/storage"
	"github.com/kdimtricp/emostim/internal/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_ParticipantFlow(t *testing.T) {
	video := "a.mp4"
	r := chi.NewRouter()
	r.Post("/api/participants", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, experiment.Enrollment{
			Participant:  &models.Participant{ID: "p-1", Name: body["name"], VideoSequence: []string{video}, TotalVideos: 1},
			CurrentVideo: &video,
		})
	})
	r.Get("/api/participants/{id}/next-video", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
	})
	r.Post("/api/responses", func(w http.ResponseWriter, r *http.Request) {
		var in experiment.ResponseInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		writeJSON(w, http.StatusCreated, models.VideoResponse{ID: 7, ParticipantID: in.ParticipantID, VideoFileName: in.VideoFileName, TenseIntensity: in.TenseIntensity})
	})
	r.Get("/api/videos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VideoList{Videos: []string{video}, HealingVideo: "healing.mp4"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	e, err := c.CreateOrResume(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", e.Participant.ID)
	assert.Equal(t, "A1", e.Participant.Name)
	require.NotNil(t, e.CurrentVideo)
	assert.Equal(t, "a.mp4", *e.CurrentVideo)

	stored, err := c.SubmitResponse(ctx, experiment.ResponseInput{ParticipantID: "p-1", VideoFileName: "a.mp4", TenseIntensity: 4})
	require.NoError(t, err)
	assert.Equal(t, uint(7), stored.ID)
	assert.Equal(t, 4.0, stored.TenseIntensity)

	next, err := c.NextVideo(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, next.Completed)

	videos, err := c.ListVideos(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healing.mp4", videos.HealingVideo)
}

func TestClient_Errors(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/participants/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "participant not found"})
	})
	r.Get("/api/participants/{id}/next-video", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.GetParticipant(ctx, "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "participant not found", apiErr.Message)
	assert.False(t, IsRetryable(err))

	_, err = c.NextVideo(ctx, "x")
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3e9, float64(RetryAfter(err)))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errors.New("connection refused")))
	assert.True(t, IsRetryable(&APIError{StatusCode: 500}))
	assert.False(t, IsRetryable(&APIError{StatusCode: 400}))
}

func TestClient_NetworkFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).CreateOrResume(context.Background(), "A1")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func newVideoServer(t *testing.T, dir string, limiter *streaming.Limiter, chunk int64) *httptest.Server {
	t.Helper()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	videos := streaming.NewServer(store, limiter, streaming.Config{ChunkSize: chunk, Logger: logging.Discard()})

	r := chi.NewRouter()
	r.Get("/videos/{filename}", func(w http.ResponseWriter, r *http.Request) {
		if err := videos.Serve(w, r, chi.URLParam(r, "filename")); err != nil {
			status := http.StatusInternalServerError
			switch experiment.KindOf(err) {
			case experiment.KindNotFound:
				status = http.StatusNotFound
			case experiment.KindRangeNotSatisfiable:
				status = http.StatusRequestedRangeNotSatisfiable
			case experiment.KindResourceExhausted:
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_DownloadVideoInChunks(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("emostim-"), 1000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mp4"), content, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.mp4"), nil, 0644))

	limiter := streaming.NewLimiter(1, nil, nil)
	srv := newVideoServer(t, dir, limiter, 1000)

	c := New(srv.URL, WithChunkSize(4096))
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := c.DownloadVideo(ctx, "clip.mp4", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, buf.Bytes())
	assert.Equal(t, 0, limiter.Active())

	buf.Reset()
	n, err = c.DownloadVideo(ctx, "empty.mp4", &buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = c.DownloadVideo(ctx, "missing.mp4", &buf)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	release, ok := limiter.TryAcquire()
	require.True(t, ok)
	defer release()
	_, err = c.DownloadVideo(ctx, "clip.mp4", &buf)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 5e9, float64(RetryAfter(err)))
}

func TestClient_DownloadVideoPartialChunks(t *testing.T) {
	dir := t.TempDir()
	files := map[string]int{
		"small.mp4":   100,  // smaller than either chunk size
		"uneven.mp4":  2500, // last chunk is partial
		"exact.mp4":   3000,
		"onebyte.mp4": 1,
	}
	for name, size := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), bytes.Repeat([]byte{'v'}, size), 0644))
	}
	srv := newVideoServer(t, dir, streaming.NewLimiter(2, nil, nil), 1000)

	tests := []struct {
		name  string
		chunk int64
	}{
		{name: "client chunk larger than server", chunk: 4096},
		{name: "client chunk smaller than server", chunk: 700},
		{name: "client chunk equal to server", chunk: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(srv.URL, WithChunkSize(tt.chunk))
			for name, size := range files {
				var buf bytes.Buffer
				n, err := c.DownloadVideo(context.Background(), name, &buf)
				require.NoError(t, err, name)
				assert.Equal(t, int64(size), n, name)
				assert.Equal(t, size, buf.Len(), name)
			}
		})
	}
}

func TestClient_DownloadVideoUnexpectedRangeError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/videos/{filename}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes */100")
		writeJSON(w, http.StatusRequestedRangeNotSatisfiable, map[string]string{"error": "requested range not satisfiable"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	var buf bytes.Buffer
	n, err := New(srv.URL).DownloadVideo(context.Background(), "clip.mp4", &buf)
	require.Error(t, err)
	assert.Zero(t, n)
}
