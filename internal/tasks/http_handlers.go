package tasks

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// Broadcaster pushes task mutations to connected WebSocket clients so a
// REST edit shows up in every open UI, same as a chat-originated one.
type Broadcaster interface {
	TaskCreated(t Task)
	TaskUpdated(t Task)
	TaskDeleted(id int)
}

type Handler struct {
	Store  *Store
	Events Broadcaster
}

func NewHandler(store *Store, events Broadcaster) *Handler {
	return &Handler{Store: store, Events: events}
}

// Register mounts the REST surface on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.List)
	mux.HandleFunc("POST /api/tasks", h.Create)
	mux.HandleFunc("GET /api/tasks/{id}", h.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", h.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.Delete)
	mux.HandleFunc("GET /api/tasks/filter/{status}", h.FilterByStatus)
	mux.HandleFunc("GET /api/tasks/priority/{priority}", h.FilterByPriority)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	t, err := h.Store.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Events != nil {
		h.Events.TaskCreated(t)
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	t, err := h.Store.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Events != nil {
		h.Events.TaskUpdated(t)
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if h.Events != nil {
		h.Events.TaskDeleted(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FilterByStatus(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.FilterByStatus(r.Context(), Status(r.PathValue("status")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) FilterByPriority(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.FilterByPriority(r.Context(), Priority(r.PathValue("priority")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("tasks: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("tasks: encode response: %v", err)
	}
}
