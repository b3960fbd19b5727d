package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gradeloop/gradeloop/internal/roster"
)

// GET /teachers
func ListTeachersHandler(store roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListTeachers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list teachers: "+err.Error())
			return
		}
		writeJSON(w, list)
	}
}

// POST /teachers
func CreateTeacherHandler(store roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t roster.Teacher
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if strings.TrimSpace(t.Name) == "" {
			writeError(w, http.StatusBadRequest, "name required")
			return
		}
		created, err := store.CreateTeacher(r.Context(), t)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "create teacher: "+err.Error())
			return
		}
		writeJSON(w, created)
	}
}

// GET /exams?teacher_id=&limit=&offset=
func ListExamsHandler(store roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teacherID, _ := parseID(r.URL.Query().Get("teacher_id"))
		list, err := store.ListExams(r.Context(), roster.ExamListOpts{
			TeacherID: teacherID,
			Limit:     parseIntDefault(r.URL.Query().Get("limit"), 0),
			Offset:    parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list exams: "+err.Error())
			return
		}
		writeJSON(w, list)
	}
}

// POST /exams
func CreateExamHandler(store roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e roster.Exam
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if strings.TrimSpace(e.Title) == "" {
			writeError(w, http.StatusBadRequest, "title required")
			return
		}
		if e.TeacherID <= 0 {
			writeError(w, http.StatusBadRequest, "teacher_id required")
			return
		}
		created, err := store.CreateExam(r.Context(), e)
		if err != nil {
			if errors.Is(err, roster.ErrTeacherNotFound) {
				writeError(w, http.StatusNotFound, "teacher not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "create exam: "+err.Error())
			return
		}
		writeJSON(w, created)
	}
}
