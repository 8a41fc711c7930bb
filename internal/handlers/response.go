package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sc2371/afterschool-booking/internal/repository"
	"github.com/sc2371/afterschool-booking/internal/service"
)

// ErrorResponse is the machine-readable error body. Message is always
// set; the detail fields depend on the rejection reason.
type ErrorResponse struct {
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
	LessonID string   `json:"lessonId,omitempty"`
	Subjects []string `json:"subjects,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, status int, resp ErrorResponse, logger *slog.Logger) {
	WriteJSON(w, status, resp, logger)
}

// writeServiceError maps core errors onto HTTP statuses:
// validation and insufficiency -> 400, unknown lesson/order -> 404,
// admin floor conflict -> 409, storage failure -> 500 with no internal
// detail exposed.
func writeServiceError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var (
		validation   *service.ValidationError
		notFound     *service.NotFoundError
		insufficient *service.InsufficientCapacityError
		conflict     *repository.ConflictError
		storage      *repository.StorageError
	)

	switch {
	case errors.As(err, &validation):
		WriteError(w, http.StatusBadRequest, ErrorResponse{
			Message: validation.Message,
			Field:   validation.Field,
		}, logger)
	case errors.As(err, &notFound):
		WriteError(w, http.StatusNotFound, ErrorResponse{
			Message:  notFound.Error(),
			LessonID: notFound.LessonID,
		}, logger)
	case errors.As(err, &insufficient):
		WriteError(w, http.StatusBadRequest, ErrorResponse{
			Message:  insufficient.Error(),
			Subjects: insufficient.Subjects,
		}, logger)
	case errors.Is(err, repository.ErrLessonNotFound):
		WriteError(w, http.StatusNotFound, ErrorResponse{Message: "Lesson not found"}, logger)
	case errors.Is(err, repository.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, ErrorResponse{Message: "Order not found"}, logger)
	case errors.As(err, &conflict):
		WriteError(w, http.StatusConflict, ErrorResponse{
			Message:  "Space cannot be reduced below zero",
			LessonID: conflict.LessonID,
		}, logger)
	case errors.As(err, &storage):
		logger.Error("storage failure", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"}, logger)
	default:
		logger.Error("unexpected error", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"}, logger)
	}
}
