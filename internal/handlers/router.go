package handlers

import (
	"net/http"

	"github.com/rs/cors"
)

// NewRouter registers every API route on a ServeMux and wraps it in CORS
// restricted to allowedOrigin.
func NewRouter(h *Handler, allowedOrigin string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)

	mux.HandleFunc("POST /api/auth/register", h.RateLimiter.Limit(h.Register))
	mux.HandleFunc("POST /api/auth/login", h.RateLimiter.Limit(h.Login))
	mux.HandleFunc("GET /api/auth/users", h.AuthMiddleware(h.ListUsers))

	mux.HandleFunc("POST /api/tasks", h.AuthMiddleware(h.CreateTask))
	mux.HandleFunc("GET /api/tasks", h.AuthMiddleware(h.ListTasks))
	mux.HandleFunc("GET /api/my-tasks", h.AuthMiddleware(h.MyTasks))
	mux.HandleFunc("GET /api/tasks/{id}", h.AuthMiddleware(h.GetTask))
	mux.HandleFunc("PATCH /api/tasks/{id}/status", h.AuthMiddleware(h.UpdateTaskStatus))
	mux.HandleFunc("DELETE /api/tasks/{id}", h.AuthMiddleware(h.DeleteTask))

	mux.HandleFunc("GET /api/ws", h.AuthMiddleware(h.HandleWebSocket))

	// rs/cors treats an empty origin list as "allow all"
	var origins []string
	if allowedOrigin != "" {
		origins = []string{allowedOrigin}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}
