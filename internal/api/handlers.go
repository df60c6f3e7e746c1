package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kdimtricp/emostim/internal/catalog"
	"github.com/kdimtricp/emostim/internal/experiment"
	"github.com/kdimtricp/emostim/internal/metrics"
	"github.com/kdimtricp/emostim/internal/streaming"
	"github.com/sirupsen/logrus"
)

const maxBodySize = 1 << 20

type App struct {
	Experiment *experiment.Service
	Catalog    *catalog.Catalog
	Videos     *streaming.Server
	Health     *Health
	Metrics    *metrics.Metrics
	Logger     *logrus.Entry
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type createParticipantRequest struct {
	Name string `json:"name"`
}

func (app *App) CreateParticipantHandler(w http.ResponseWriter, r *http.Request) {
	var req createParticipantRequest
	if err := app.decode(w, r, &req); err != nil {
		app.writeError(w, r, err)
		return
	}

	enrollment, err := app.Experiment.CreateOrResume(r.Context(), req.Name)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if enrollment.Resuming {
		status = http.StatusOK
	}
	writeJSON(w, status, enrollment)
}

func (app *App) GetParticipantHandler(w http.ResponseWriter, r *http.Request) {
	participant, err := app.Experiment.GetParticipant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (app *App) NextVideoHandler(w http.ResponseWriter, r *http.Request) {
	next, err := app.Experiment.GetNextVideo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	if next.Completed {
		writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (app *App) ListParticipantResponsesHandler(w http.ResponseWriter, r *http.Request) {
	responses, err := app.Experiment.ListResponses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

func (app *App) CreateResponseHandler(w http.ResponseWriter, r *http.Request) {
	var in experiment.ResponseInput
	if err := app.decode(w, r, &in); err != nil {
		app.writeError(w, r, err)
		return
	}

	response, err := app.Experiment.RecordResponse(r.Context(), in)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

func (app *App) ExportResponsesHandler(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := app.Experiment.ExportCSV(r.Context(), &buf); err != nil {
		app.writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("responses-%s.csv", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

type videoListResponse struct {
	Videos       []string `json:"videos"`
	HealingVideo string   `json:"healingVideo"`
}

func (app *App) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, videoListResponse{
		Videos:       app.Catalog.ListStimulusVideos(),
		HealingVideo: app.Catalog.HealingVideo(),
	})
}

func (app *App) StreamVideoHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Videos.Serve(w, r, chi.URLParam(r, "filename")); err != nil {
		app.writeError(w, r, err)
	}
}

func (app *App) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return experiment.NewValidationError("invalid request body")
	}
	return nil
}
