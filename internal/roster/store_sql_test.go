package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gradeloop/gradeloop/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

func TestTeacherRoundTrip(t *testing.T) {
	store := NewSQLStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	created, err := store.CreateTeacher(ctx, Teacher{Name: "Ms. Wu", Email: "wu@example.edu"})
	if err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreateTeacher returned zero id")
	}

	got, err := store.GetTeacher(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTeacher: %v", err)
	}
	if got.Name != "Ms. Wu" || got.Email != "wu@example.edu" {
		t.Fatalf("GetTeacher = %+v", got)
	}

	if _, err := store.GetTeacher(ctx, 9999); !errors.Is(err, ErrTeacherNotFound) {
		t.Fatalf("err = %v, want ErrTeacherNotFound", err)
	}

	list, err := store.ListTeachers(ctx)
	if err != nil {
		t.Fatalf("ListTeachers: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("ListTeachers = %+v", list)
	}
}

func TestCreateExamRequiresTeacher(t *testing.T) {
	store := NewSQLStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	if _, err := store.CreateExam(ctx, Exam{Title: "Algebra Final", TeacherID: 42}); !errors.Is(err, ErrTeacherNotFound) {
		t.Fatalf("err = %v, want ErrTeacherNotFound", err)
	}
}

func TestListExamsFiltersByTeacher(t *testing.T) {
	store := NewSQLStore(newTestDB(t), "sqlite")
	ctx := context.Background()

	wu, _ := store.CreateTeacher(ctx, Teacher{Name: "Wu"})
	diaz, _ := store.CreateTeacher(ctx, Teacher{Name: "Diaz"})

	for _, e := range []Exam{
		{Title: "Algebra Final", TeacherID: wu.ID},
		{Title: "Geometry Quiz", TeacherID: wu.ID},
		{Title: "Biology Midterm", TeacherID: diaz.ID},
	} {
		if _, err := store.CreateExam(ctx, e); err != nil {
			t.Fatalf("CreateExam(%s): %v", e.Title, err)
		}
	}

	all, err := store.ListExams(ctx, ExamListOpts{})
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}

	mine, err := store.ListExams(ctx, ExamListOpts{TeacherID: wu.ID})
	if err != nil {
		t.Fatalf("ListExams(teacher): %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("len(mine) = %d, want 2", len(mine))
	}
	for _, e := range mine {
		if e.TeacherID != wu.ID {
			t.Errorf("exam %q belongs to teacher %d", e.Title, e.TeacherID)
		}
	}

	page, err := store.ListExams(ctx, ExamListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListExams(page): %v", err)
	}
	if len(page) != 1 || page[0].Title != "Geometry Quiz" {
		t.Fatalf("page = %+v, want the second exam only", page)
	}
}

func TestExamDefaultsAnswerKeyVersion(t *testing.T) {
	store := NewSQLStore(newTestDB(t), "sqlite")
	ctx := context.Background()
	wu, _ := store.CreateTeacher(ctx, Teacher{Name: "Wu"})

	e, err := store.CreateExam(ctx, Exam{Title: "Algebra Final", TeacherID: wu.ID})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	if e.AnswerKeyVersion != 1 {
		t.Fatalf("answer key version = %d, want 1", e.AnswerKeyVersion)
	}
}

func TestFilterByTeacher(t *testing.T) {
	exams := []Exam{
		{ID: 1, TeacherID: 10},
		{ID: 2, TeacherID: 20},
		{ID: 3, TeacherID: 10},
	}

	if got := FilterByTeacher(exams, 0); len(got) != 3 {
		t.Fatalf("teacherID 0 must be a passthrough, got %d exams", len(got))
	}
	got := FilterByTeacher(exams, 10)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("FilterByTeacher(10) = %+v", got)
	}
}
