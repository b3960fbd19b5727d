package roster

type Teacher struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type Exam struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Subject          string `json:"subject,omitempty"`
	TeacherID        int64  `json:"teacher_id"`
	AnswerKeyVersion int64  `json:"answer_key_version,omitempty"`
	CreatedAt        int64  `json:"created_at,omitempty"`
}

// FilterByTeacher returns the exams owned by teacherID, preserving order.
// teacherID == 0 returns the input unchanged.
func FilterByTeacher(exams []Exam, teacherID int64) []Exam {
	if teacherID == 0 {
		return exams
	}
	out := make([]Exam, 0, len(exams))
	for _, e := range exams {
		if e.TeacherID == teacherID {
			out = append(out, e)
		}
	}
	return out
}
