package service

import (
	"fmt"
	"strings"
)

// ValidationError rejects a malformed order request before any storage
// access happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports a referenced lesson that does not exist. The
// whole request is rejected; no partial orders.
type NotFoundError struct {
	LessonID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("lesson with ID %s not found", e.LessonID)
}

// InsufficientCapacityError reports every requested lesson that could not
// cover the quantity. Conflict marks shortfalls discovered only at commit
// time (a concurrent order won the race), so callers that want to retry
// can tell them apart from a stable shortfall.
type InsufficientCapacityError struct {
	Subjects []string
	Conflict bool
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("not enough space available for lesson(s): %s", strings.Join(e.Subjects, ", "))
}
