package handlers

import (
	"log"
	"net/http"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/chepyr/go-task-manager/internal/service"
)

/*
Task routes:
POST /api/tasks - create a task (admin)
GET /api/tasks - list tasks with optional filters (admin)
GET /api/my-tasks - tasks assigned to the caller
GET /api/tasks/{id} - task detail
PATCH /api/tasks/{id}/status - change status and append to the timeline
DELETE /api/tasks/{id} - delete a task (admin)
*/
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var input service.CreateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	task, err := h.Tasks.CreateTask(r.Context(), caller, input)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	log.Printf("Task %s created by %s", task.ID, caller.ID)
	h.broadcast(EventTaskCreated, task)
	w.Header().Set("Location", "/api/tasks/"+task.ID)
	sendJSON(w, http.StatusCreated, map[string]any{
		"msg":     "Task created",
		"task_id": task.ID,
	})
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	query := r.URL.Query()
	filter := models.TaskFilter{
		Status:     query.Get("status"),
		AssignedTo: query.Get("assigned"),
		Priority:   query.Get("priority"),
		DueDate:    query.Get("due_date"),
	}

	tasks, err := h.Tasks.ListTasks(r.Context(), caller, filter)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, tasks)
}

func (h *Handler) MyTasks(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	tasks, err := h.Tasks.MyTasks(r.Context(), caller)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	task, err := h.Tasks.TaskDetail(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var input struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	task, err := h.Tasks.UpdateStatus(r.Context(), caller, r.PathValue("id"), input.Status, input.Note)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	log.Printf("Task %s status set to %q by %s", task.ID, task.Status, caller.ID)
	h.broadcast(EventTaskStatusUpdated, task)
	sendJSON(w, http.StatusOK, messageResponse{Msg: "Status updated"})
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	task, err := h.Tasks.DeleteTask(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	log.Printf("Task %s deleted by %s", task.ID, caller.ID)
	h.broadcast(EventTaskDeleted, task)
	sendJSON(w, http.StatusOK, messageResponse{Msg: "Deleted"})
}

func (h *Handler) broadcast(event string, task *models.Task) {
	if h.WSHub != nil {
		h.WSHub.BroadcastTaskEvent(event, task)
	}
}
