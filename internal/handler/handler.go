package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"empty-jar/internal/backend"
	"empty-jar/internal/service"
	"empty-jar/pkg/response"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

func deviceID(r *http.Request) string {
	return r.Header.Get(backend.DeviceIDHeader)
}

// writeError maps service errors onto HTTP statuses. Anything unexpected is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, verr.Err.Error())
	case errors.Is(err, service.ErrDuplicateWeek), errors.Is(err, service.ErrEmailTaken):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrNoteNotFound), errors.Is(err, service.ErrSettingsNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(w, err.Error())
	default:
		logger.Error("request failed", "error", err)
		response.InternalError(w, "Internal server error")
	}
}
