package roster

import "context"

type ExamListOpts struct {
	TeacherID int64 // 0 = all teachers
	Limit     int
	Offset    int
}

type Store interface {
	CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	GetTeacher(ctx context.Context, id int64) (Teacher, error)
	// ListTeachers returns all teachers ordered by id ascending; the first
	// entry is the default-teacher bootstrap choice for new wizard runs.
	ListTeachers(ctx context.Context) ([]Teacher, error)

	CreateExam(ctx context.Context, e Exam) (Exam, error)
	ListExams(ctx context.Context, opts ExamListOpts) ([]Exam, error)
}
