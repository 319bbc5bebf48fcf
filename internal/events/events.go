package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ReasonCourseUpdated = "course_updated"
	ReasonLessonCreated = "lesson_created"
	ReasonLessonUpdated = "lesson_updated"
	ReasonLessonDeleted = "lesson_deleted"
)

// CourseContentChanged is raised after a course or one of its lessons is written.
type CourseContentChanged struct {
	CourseID uuid.UUID `json:"course_id"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

type Handler func(ctx context.Context, ev CourseContentChanged) error

type Bus interface {
	Publish(ctx context.Context, ev CourseContentChanged) error
	Subscribe(h Handler)
	Close() error
}
