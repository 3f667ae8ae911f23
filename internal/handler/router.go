package handler

import (
	"log/slog"
	"net/http"

	"empty-jar/internal/config"
	"empty-jar/internal/middleware"
	"empty-jar/internal/service"
	"empty-jar/internal/websocket"
	"empty-jar/pkg/response"

	"github.com/gorilla/mux"
)

type RouterDeps struct {
	Config   *config.Config
	Auth     *service.AuthService
	Notes    *service.NoteService
	Settings *service.SettingsService
	Manager  *websocket.Manager
	Logger   *slog.Logger
	// Health reports storage readiness; nil means always healthy.
	Health func(r *http.Request) error
}

func NewRouter(d RouterDeps) http.Handler {
	cfg := d.Config
	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler(d.Health)).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	authHandler := NewAuthHandler(d.Auth, d.Logger)
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	noteHandler := NewNoteHandler(d.Notes, d.Logger)
	protected.HandleFunc("/notes", noteHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/notes", noteHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/notes/{weekKey}", noteHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/notes/{weekKey}", noteHandler.Update).Methods(http.MethodPut)
	protected.HandleFunc("/notes/{weekKey}", noteHandler.Delete).Methods(http.MethodDelete)

	settingsHandler := NewSettingsHandler(d.Settings, d.Logger)
	protected.HandleFunc("/settings", settingsHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/settings", settingsHandler.Put).Methods(http.MethodPut)

	if d.Manager != nil {
		wsHandler := NewWebSocketHandler(d.Manager, cfg.JWT.Secret, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, d.Logger)
		router.HandleFunc("/ws", wsHandler.HandleConnection)
	}

	// CORS wraps the router so preflights reach it even for routes that
	// only register GET or PUT.
	cors := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	return middleware.LoggerMiddleware(d.Logger)(cors(router))
}

func healthHandler(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "storage unavailable")
				return
			}
		}
		response.Success(w, map[string]string{"status": "healthy"})
	}
}
