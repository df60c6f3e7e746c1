package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/kdimtricp/emostim/internal/experiment"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(kind experiment.Kind) int {
	switch kind {
	case experiment.KindValidation:
		return http.StatusBadRequest
	case experiment.KindNotFound:
		return http.StatusNotFound
	case experiment.KindRangeNotSatisfiable:
		return http.StatusRequestedRangeNotSatisfiable
	case experiment.KindResourceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": message}. Internal errors are logged
// with their cause and reach the caller as a generic message.
func (app *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := experiment.KindOf(err)
	status := statusFor(kind)

	message := "internal server error"
	if e, ok := experiment.AsError(err); ok && kind != experiment.KindInternal {
		message = e.Message
	}

	if kind == experiment.KindInternal {
		app.Logger.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).WithError(err).Error("request failed")
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
