package gradingsession

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("grading session not found")
	ErrNoActiveSession = errors.New("no active grading session")
)

// UpdateOpts is a partial update: nil fields are left untouched. A non-nil
// Payload replaces the stored payload wholesale.
type UpdateOpts struct {
	CurrentStep *int
	ExamID      *int64
	Payload     map[string]interface{}
	Status      *Status
	LastError   *string
}

type Store interface {
	// ActiveForTeacher returns the newest active session for a teacher,
	// or ErrNoActiveSession.
	ActiveForTeacher(ctx context.Context, teacherID int64) (Session, error)
	// Create returns the existing active session for the teacher if one
	// exists (refreshed with examID/payload when provided) instead of making
	// a duplicate. This is the single-active-session-per-teacher backstop.
	Create(ctx context.Context, teacherID, examID int64, payload map[string]interface{}) (Session, error)
	Get(ctx context.Context, id int64) (Session, error)
	// Update applies a partial update. CurrentStep is clamped into
	// [StepMin, StepMax] before persisting.
	Update(ctx context.Context, id int64, opts UpdateOpts) (Session, error)
	// Complete retires the session so the next active lookup starts fresh.
	Complete(ctx context.Context, id int64) (Session, error)
}
