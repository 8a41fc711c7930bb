package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sc2371/afterschool-booking/internal/service"
)

// LessonHandler handles the lesson catalog endpoints
type LessonHandler struct {
	catalog *service.CatalogService
	log     *slog.Logger
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(catalog *service.CatalogService, log *slog.Logger) *LessonHandler {
	return &LessonHandler{
		catalog: catalog,
		log:     log,
	}
}

// ListLessons handles GET /api/lessons
func (h *LessonHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.catalog.ListLessons(r.Context())
	if err != nil {
		h.log.Error("failed to list lessons", "error", err)
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, lessons, h.log)
}

// GetLesson handles GET /api/lessons/{lessonId}
func (h *LessonHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonId")
	if _, err := uuid.Parse(lessonID); err != nil {
		WriteError(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid lesson ID"}, h.log)
		return
	}

	lesson, err := h.catalog.GetLesson(r.Context(), lessonID)
	if err != nil {
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, lesson, h.log)
}

// SearchLessons handles GET /api/search?q=term
func (h *LessonHandler) SearchLessons(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")

	lessons, err := h.catalog.SearchLessons(r.Context(), term)
	if err != nil {
		h.log.Error("failed to search lessons", "term", term, "error", err)
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, lessons, h.log)
}

// adjustSpaceRequest is the admin body for capacity changes. Delta is
// signed: positive restocks, negative removes spaces.
type adjustSpaceRequest struct {
	Delta int `json:"delta"`
}

// UpdateSpace handles PUT /api/lessons/{lessonId}/space
func (h *LessonHandler) UpdateSpace(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonId")
	if _, err := uuid.Parse(lessonID); err != nil {
		WriteError(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid lesson ID"}, h.log)
		return
	}

	var req adjustSpaceRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"}, h.log)
		return
	}
	if req.Delta == 0 {
		WriteError(w, http.StatusBadRequest, ErrorResponse{Message: "Delta must be non-zero"}, h.log)
		return
	}

	lesson, err := h.catalog.AdjustCapacity(r.Context(), lessonID, req.Delta)
	if err != nil {
		h.log.Warn("capacity adjustment rejected", "lesson_id", lessonID, "delta", req.Delta, "error", err)
		writeServiceError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, lesson, h.log)
	h.log.Info("capacity adjusted", "lesson_id", lessonID, "delta", req.Delta, "space", lesson.Space)
}
