package roster

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"
)

var ErrTeacherNotFound = errors.New("teacher not found")

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	t.CreatedAt = time.Now().Unix()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO teachers (name,email,created_at) VALUES ($1,$2,$3) RETURNING id`,
		t.Name, t.Email, t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return Teacher{}, err
	}
	return t, nil
}

func (s *SQLStore) GetTeacher(ctx context.Context, id int64) (Teacher, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,email,created_at FROM teachers WHERE id=$1`, id)
	var t Teacher
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Teacher{}, ErrTeacherNotFound
		}
		return Teacher{}, err
	}
	return t, nil
}

func (s *SQLStore) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,name,email,created_at FROM teachers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Teacher{}
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	// ensure teacher exists so exams never dangle
	if _, err := s.GetTeacher(ctx, e.TeacherID); err != nil {
		return Exam{}, err
	}
	if e.AnswerKeyVersion == 0 {
		e.AnswerKeyVersion = 1
	}
	e.CreatedAt = time.Now().Unix()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO exams (title,subject,teacher_id,answer_key_version,created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		e.Title, e.Subject, e.TeacherID, e.AnswerKeyVersion, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) ListExams(ctx context.Context, opts ExamListOpts) ([]Exam, error) {
	q := `SELECT id,title,subject,teacher_id,answer_key_version,created_at FROM exams`
	args := []interface{}{}
	if opts.TeacherID != 0 {
		q += ` WHERE teacher_id=$1`
		args = append(args, opts.TeacherID)
	}
	q += ` ORDER BY id ASC`
	if opts.Limit > 0 {
		q += ` LIMIT ` + strconv.Itoa(opts.Limit) + ` OFFSET ` + strconv.Itoa(opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Subject, &e.TeacherID, &e.AnswerKeyVersion, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
