package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/chepyr/go-task-manager/internal/service"
	"github.com/gorilla/websocket"
)

type contextKey string

const callerKey contextKey = "caller"

/*
AuthMiddleware verifies the bearer token and puts the caller taken from its
claims into the request context. The role is trusted from the token.
*/
func (h *Handler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			sendError(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := h.Tokens.Parse(tokenString)
		if err != nil {
			log.Printf("Rejected token: %v", err)
			sendError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		caller := service.Caller{ID: claims.Subject, Role: claims.Role, Name: claims.Name}
		ctx := context.WithValue(r.Context(), callerKey, caller)
		next(w, r.WithContext(ctx))
	}
}

func CallerFromContext(ctx context.Context) (service.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(service.Caller)
	return caller, ok
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass the token as ?access_token= instead.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		// a header without the Bearer prefix fails to parse as a token
		token, _ := strings.CutPrefix(header, "Bearer ")
		return strings.TrimSpace(token)
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
