// Package handler provides the HTTP handlers for the habit store.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-json-experiment/json"
	"go.uber.org/zap"

	"github.com/stevemurr/habit-store/habit"
	"github.com/stevemurr/habit-store/store"
)

// Habits is the repository surface served over HTTP.
type Habits interface {
	FindAll(ctx context.Context) ([]habit.Habit, error)
	GetByID(ctx context.Context, id string) (habit.Habit, error)
	Add(ctx context.Context, name string) (habit.Habit, error)
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	habits Habits
	logger *zap.Logger
	mux    *http.ServeMux
}

// New creates a Handler and wires up all routes.
func New(habits Habits, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{habits: habits, logger: logger, mux: http.NewServeMux()}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	h.mux.HandleFunc("GET /habits", h.listHabits)
	h.mux.HandleFunc("GET /habits/{id}", h.getHabit)
	h.mux.HandleFunc("POST /habits", h.addHabit)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.MarshalWrite(w, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.UnmarshalRead(r.Body, v, json.RejectUnknownMembers(true))
}

// statusOf maps repository errors to HTTP status codes. Data that fails
// validation is a server-side fault, the store being unreachable is not.
func statusOf(err error) int {
	switch {
	case store.IsStoreError(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, habit.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	h.logger.Warn("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, err.Error())
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Habit Store",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- habits ----------

func (h *Handler) listHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := h.habits.FindAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *Handler) getHabit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	hb, err := h.habits.GetByID(r.Context(), id)
	if habit.IsMissingMember(err) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hb)
}

func (h *Handler) addHabit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	hb, err := h.habits.Add(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hb)
}
