package handler

import (
	"log/slog"
	"net/http"

	"empty-jar/internal/domain"
	"empty-jar/internal/middleware"
	"empty-jar/internal/service"
	"empty-jar/pkg/response"

	"github.com/gorilla/mux"
)

// NoteHandler serves /notes. Notes are addressed by week key because a user
// has at most one per week.
type NoteHandler struct {
	service *service.NoteService
	logger  *slog.Logger
}

func NewNoteHandler(service *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{service: service, logger: logger}
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.List(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, notes)
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.service.Create(r.Context(), middleware.GetUserID(r), deviceID(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, note)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.Get(r.Context(), middleware.GetUserID(r), mux.Vars(r)["weekKey"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, note)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.service.Update(r.Context(), middleware.GetUserID(r), deviceID(r), mux.Vars(r)["weekKey"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.GetUserID(r), deviceID(r), mux.Vars(r)["weekKey"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, "Note deleted")
}
