package gradingsession

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// The grading workflow runs through five stages:
// 1 exam configuration, 2 answer-key review, 3 student upload,
// 4 AI-review confirmation, 5 completion.
const (
	StepMin = 1
	StepMax = 5
)

// ClampStep normalizes an arbitrary step value into [StepMin, StepMax].
func ClampStep(n int) int {
	if n <= StepMin {
		return StepMin
	}
	if n >= StepMax {
		return StepMax
	}
	return n
}

// Session is one teacher's persisted progress through the grading workflow.
// ExamID of 0 means no exam is attached yet. Payload is a free-form bag the
// step screens stash partial progress in; updates replace it wholesale, the
// caller owns any merging.
type Session struct {
	ID          int64                  `json:"id"`
	TeacherID   int64                  `json:"teacher_id"`
	ExamID      int64                  `json:"exam_id,omitempty"`
	CurrentStep int                    `json:"current_step"`
	Status      Status                 `json:"status"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	LastError   string                 `json:"last_error,omitempty"`
	CreatedAt   int64                  `json:"created_at,omitempty"`
	UpdatedAt   int64                  `json:"updated_at,omitempty"`
}

// Audit event types written on session transitions.
const (
	EventSessionCreated     = "SessionCreated"
	EventSessionStepChanged = "SessionStepChanged"
	EventSessionCompleted   = "SessionCompleted"
	EventSheetUploaded      = "SheetUploaded"
)
