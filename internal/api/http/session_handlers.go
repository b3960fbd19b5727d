package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gradeloop/gradeloop/internal/audit"
	"github.com/gradeloop/gradeloop/internal/gradingsession"
	"github.com/gradeloop/gradeloop/internal/roster"
)

type createSessionReq struct {
	TeacherID int64                  `json:"teacher_id"`
	ExamID    int64                  `json:"exam_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

type updateSessionReq struct {
	CurrentStep *int                    `json:"current_step,omitempty"`
	ExamID      *int64                  `json:"exam_id,omitempty"`
	Payload     map[string]interface{}  `json:"payload,omitempty"`
	Status      *gradingsession.Status  `json:"status,omitempty"`
	LastError   *string                 `json:"last_error,omitempty"`
}

// GET /grading/sessions/active?teacher_id=N
// Returns the newest active session for the teacher, creating one if none
// exists. Unknown teacher is a 404.
func ActiveSessionHandler(sessions gradingsession.Store, teachers roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teacherID, ok := parseID(r.URL.Query().Get("teacher_id"))
		if !ok {
			writeError(w, http.StatusBadRequest, "teacher_id required")
			return
		}
		if _, err := teachers.GetTeacher(r.Context(), teacherID); err != nil {
			if errors.Is(err, roster.ErrTeacherNotFound) {
				writeError(w, http.StatusNotFound, "teacher not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sess, err := sessions.ActiveForTeacher(r.Context(), teacherID)
		if errors.Is(err, gradingsession.ErrNoActiveSession) {
			sess, err = sessions.Create(r.Context(), teacherID, 0, nil)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, sess)
	}
}

// POST /grading/sessions
func CreateSessionHandler(sessions gradingsession.Store, teachers roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if req.TeacherID <= 0 {
			writeError(w, http.StatusBadRequest, "teacher_id required")
			return
		}
		if _, err := teachers.GetTeacher(r.Context(), req.TeacherID); err != nil {
			if errors.Is(err, roster.ErrTeacherNotFound) {
				writeError(w, http.StatusNotFound, "teacher not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sess, err := sessions.Create(r.Context(), req.TeacherID, req.ExamID, req.Payload)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "create session: "+err.Error())
			return
		}
		writeJSON(w, sess)
	}
}

// PATCH /grading/sessions/{sessionID}
func UpdateSessionHandler(sessions gradingsession.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "sessionID"))
		if !ok {
			writeError(w, http.StatusBadRequest, "sessionID required")
			return
		}
		var req updateSessionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		sess, err := sessions.Update(r.Context(), id, gradingsession.UpdateOpts{
			CurrentStep: req.CurrentStep,
			ExamID:      req.ExamID,
			Payload:     req.Payload,
			Status:      req.Status,
			LastError:   req.LastError,
		})
		if err != nil {
			if errors.Is(err, gradingsession.ErrNotFound) {
				writeError(w, http.StatusNotFound, "grading session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "update session: "+err.Error())
			return
		}
		writeJSON(w, sess)
	}
}

// POST /grading/sessions/{sessionID}/complete
func CompleteSessionHandler(sessions gradingsession.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "sessionID"))
		if !ok {
			writeError(w, http.StatusBadRequest, "sessionID required")
			return
		}
		sess, err := sessions.Complete(r.Context(), id)
		if err != nil {
			if errors.Is(err, gradingsession.ErrNotFound) {
				writeError(w, http.StatusNotFound, "grading session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "complete session: "+err.Error())
			return
		}
		writeJSON(w, sess)
	}
}

// GET /grading/sessions/{sessionID}/events
func SessionEventsHandler(events *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "sessionID"))
		if !ok {
			writeError(w, http.StatusBadRequest, "sessionID required")
			return
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		list, err := events.ListByKey(r.Context(), strconv.FormatInt(id, 10), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list events: "+err.Error())
			return
		}
		writeJSON(w, list)
	}
}
