package handlers

import (
	"log"
	"net/http"

	"github.com/chepyr/go-task-manager/internal/service"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if !decodeJSON(w, r, &input) {
		return
	}

	userID, err := h.Auth.Register(r.Context(), input)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	log.Printf("User registered: %s", input.Email)
	sendJSON(w, http.StatusCreated, map[string]any{
		"msg":     "User created",
		"user_id": userID,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	result, err := h.Auth.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	log.Printf("User logged in: %s", input.Email)
	sendJSON(w, http.StatusOK, result)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	users, err := h.Auth.ListUsers(r.Context(), caller)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, users)
}
