package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chepyr/go-task-manager/internal/auth"
	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/chepyr/go-task-manager/internal/service"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test_secret_key_that_is_32_chars!"
	testOrigin = "https://app.example"
)

type testAPI struct {
	server *httptest.Server
	tokens *auth.TokenManager
	hub    *WSHub
}

// newTestAPI serves the full router on top of an in-memory sqlite store.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	store, err := db.Open(ctx, "sqlite3", ":memory:")
	require.NoError(t, err, "open store")
	require.NoError(t, store.Migrate(ctx), "migrate store")

	tokens := auth.NewTokenManager(testSecret, time.Hour)
	h := &Handler{
		Auth:          service.NewAuthService(store.Users, tokens),
		Tasks:         service.NewTaskService(store.Tasks),
		Tokens:        tokens,
		WSHub:         NewWSHub(),
		AllowedOrigin: testOrigin,
	}
	server := httptest.NewServer(NewRouter(h, testOrigin))
	t.Cleanup(func() {
		h.WSHub.Close()
		server.Close()
		store.Close(ctx)
	})
	return &testAPI{server: server, tokens: tokens, hub: h.WSHub}
}

// do sends body as JSON and decodes the response into out when out is not nil.
// A string body is sent as is.
func (api *testAPI) do(t *testing.T, method, path, token string, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, api.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "%s %s", method, path)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "decode %s %s response", method, path)
	}
	return resp
}

// signup registers a user and returns its id and access token.
func (api *testAPI) signup(t *testing.T, name, email, role string) (string, string) {
	t.Helper()
	var created struct {
		UserID string `json:"user_id"`
	}
	resp := api.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": name, "email": email, "password": "p", "role": role}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register %s", email)

	var login service.LoginResult
	resp = api.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": email, "password": "p"}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode, "login %s", email)
	return created.UserID, login.AccessToken
}

type msgBody struct {
	Msg string `json:"msg"`
}

func createTask(t *testing.T, api *testAPI, token string, body map[string]any) string {
	t.Helper()
	var created struct {
		TaskID string `json:"task_id"`
	}
	resp := api.do(t, http.MethodPost, "/api/tasks", token, body, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create task")
	return created.TaskID
}

func taskBody(title, priority, dueDate string, assignees ...string) map[string]any {
	if assignees == nil {
		assignees = []string{}
	}
	return map[string]any{
		"title":       title,
		"description": "desc",
		"priority":    priority,
		"due_date":    dueDate,
		"assigned_to": assignees,
	}
}

func taskIDs(tasks []models.Task) []string {
	ids := []string{}
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}
