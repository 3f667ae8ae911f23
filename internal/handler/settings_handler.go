package handler

import (
	"log/slog"
	"net/http"

	"empty-jar/internal/domain"
	"empty-jar/internal/middleware"
	"empty-jar/internal/service"
	"empty-jar/pkg/response"
)

type SettingsHandler struct {
	service *service.SettingsService
	logger  *slog.Logger
}

func NewSettingsHandler(service *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{service: service, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Get(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, settings)
}

// Put replaces the settings row. Fields missing from the body take their
// defaults.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	settings := domain.DefaultSettings()
	if !decodeJSON(w, r, &settings) {
		return
	}

	saved, err := h.service.Replace(r.Context(), middleware.GetUserID(r), deviceID(r), &settings)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, saved)
}
