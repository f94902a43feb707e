package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/chepyr/go-task-manager/internal/auth"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/chepyr/go-task-manager/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	ListUsers(ctx context.Context, caller service.Caller) ([]models.PublicUser, error)
}

type TaskService interface {
	CreateTask(ctx context.Context, caller service.Caller, input service.CreateTaskInput) (*models.Task, error)
	ListTasks(ctx context.Context, caller service.Caller, filter models.TaskFilter) ([]*models.Task, error)
	MyTasks(ctx context.Context, caller service.Caller) ([]*models.Task, error)
	TaskDetail(ctx context.Context, caller service.Caller, id string) (*models.Task, error)
	UpdateStatus(ctx context.Context, caller service.Caller, id, status, note string) (*models.Task, error)
	DeleteTask(ctx context.Context, caller service.Caller, id string) (*models.Task, error)
}

type TokenParser interface {
	Parse(tokenString string) (*auth.Claims, error)
}

type Handler struct {
	Auth        AuthService
	Tasks       TaskService
	Tokens      TokenParser
	RateLimiter *RateLimiter
	WSHub       *WSHub
	// AllowedOrigin is matched against the Origin of websocket upgrades.
	// Empty allows any origin.
	AllowedOrigin string
}

type messageResponse struct {
	Msg string `json:"msg"`
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, messageResponse{Msg: message})
}

// sendServiceError writes err with the status matching its kind. Errors of
// unknown kind are logged and reported as 500 without details.
func sendServiceError(w http.ResponseWriter, err error) {
	var serviceErr *service.Error
	if !errors.As(err, &serviceErr) {
		log.Printf("Internal error: %v", err)
		sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
		sendError(w, "Internal server error", status)
		return
	}
	sendError(w, serviceErr.Message, status)
}

// decodeJSON reads a JSON body of at most 1MB into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("Error decoding JSON: %v", err)
		sendError(w, "Bad JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, messageResponse{Msg: "Task Manager API is running"})
}
