package gradingsession

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gradeloop/gradeloop/internal/audit"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	events *audit.EventRepo
}

// NewSQLStore builds a session store. events may be nil to disable the
// transition audit log.
func NewSQLStore(db *sql.DB, driver string, events *audit.EventRepo) *SQLStore {
	return &SQLStore{db: db, driver: driver, events: events}
}

func (s *SQLStore) ActiveForTeacher(ctx context.Context, teacherID int64) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		selectCols+` FROM grading_sessions
		 WHERE teacher_id=$1 AND status=$2
		 ORDER BY updated_at DESC, id DESC LIMIT 1`,
		teacherID, StatusActive)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNoActiveSession
		}
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) Create(ctx context.Context, teacherID, examID int64, payload map[string]interface{}) (Session, error) {
	// Reuse the existing active session rather than creating a duplicate.
	existing, err := s.ActiveForTeacher(ctx, teacherID)
	if err == nil {
		opts := UpdateOpts{}
		if examID != 0 {
			opts.ExamID = &examID
		}
		if payload != nil {
			opts.Payload = payload
		}
		if opts.ExamID == nil && opts.Payload == nil {
			return existing, nil
		}
		return s.Update(ctx, existing.ID, opts)
	}
	if !errors.Is(err, ErrNoActiveSession) {
		return Session{}, err
	}

	if payload == nil {
		payload = map[string]interface{}{}
	}
	pj, err := json.Marshal(payload)
	if err != nil {
		return Session{}, err
	}
	now := time.Now().Unix()
	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO grading_sessions (teacher_id,exam_id,current_step,status,payload_json,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		teacherID, nullableID(examID), StepMin, StatusActive, string(pj), now, now).Scan(&id)
	if err != nil {
		return Session{}, err
	}
	s.appendEvent(ctx, EventSessionCreated, id, map[string]interface{}{
		"teacher_id": teacherID,
		"exam_id":    examID,
	})
	return s.Get(ctx, id)
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Session, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` FROM grading_sessions WHERE id=$1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) Update(ctx context.Context, id int64, opts UpdateOpts) (Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}

	prevStep := sess.CurrentStep
	if opts.CurrentStep != nil {
		sess.CurrentStep = ClampStep(*opts.CurrentStep)
	}
	if opts.ExamID != nil {
		sess.ExamID = *opts.ExamID
	}
	if opts.Payload != nil {
		sess.Payload = opts.Payload
	}
	if opts.Status != nil {
		sess.Status = *opts.Status
	}
	if opts.LastError != nil {
		sess.LastError = *opts.LastError
	}

	pj, err := json.Marshal(sess.Payload)
	if err != nil {
		return Session{}, err
	}
	sess.UpdatedAt = time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`UPDATE grading_sessions
		 SET exam_id=$1, current_step=$2, status=$3, payload_json=$4, last_error=$5, updated_at=$6
		 WHERE id=$7`,
		nullableID(sess.ExamID), sess.CurrentStep, sess.Status, string(pj),
		nullableStr(sess.LastError), sess.UpdatedAt, id)
	if err != nil {
		return Session{}, err
	}
	if sess.CurrentStep != prevStep {
		s.appendEvent(ctx, EventSessionStepChanged, id, map[string]interface{}{
			"from": prevStep,
			"to":   sess.CurrentStep,
		})
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) Complete(ctx context.Context, id int64) (Session, error) {
	done := StatusCompleted
	sess, err := s.Update(ctx, id, UpdateOpts{Status: &done})
	if err != nil {
		return Session{}, err
	}
	s.appendEvent(ctx, EventSessionCompleted, id, map[string]interface{}{
		"teacher_id": sess.TeacherID,
		"exam_id":    sess.ExamID,
	})
	return sess, nil
}

// appendEvent is best-effort. A failed audit write never fails the caller.
func (s *SQLStore) appendEvent(ctx context.Context, typ string, sessionID int64, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return
	}
	_ = s.events.Append(ctx, audit.Event{
		Type:     typ,
		Key:      fmt.Sprintf("%d", sessionID),
		DataJSON: string(buf),
	})
}

const selectCols = `SELECT id,teacher_id,exam_id,current_step,status,payload_json,last_error,created_at,updated_at`

func scanSession(row *sql.Row) (Session, error) {
	var sess Session
	var examID sql.NullInt64
	var lastErr sql.NullString
	var pjson string
	if err := row.Scan(&sess.ID, &sess.TeacherID, &examID, &sess.CurrentStep,
		&sess.Status, &pjson, &lastErr, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return Session{}, err
	}
	if examID.Valid {
		sess.ExamID = examID.Int64
	}
	if lastErr.Valid {
		sess.LastError = lastErr.String
	}
	if pjson != "" {
		if err := json.Unmarshal([]byte(pjson), &sess.Payload); err != nil {
			return Session{}, err
		}
	}
	if sess.Payload == nil {
		sess.Payload = map[string]interface{}{}
	}
	return sess, nil
}

func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
