package grading

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
)

const (
	MinScore = 0
	MaxScore = 20
)

type Grade struct {
	ID        string       `db:"id" json:"id"`
	StudentID string       `db:"student_id" json:"studentId"`
	TeacherID string       `db:"teacher_id" json:"teacherId"`
	Subject   string       `db:"subject" json:"subject"`
	Term      int          `db:"term" json:"term"`
	Eval1     null.Float64 `db:"eval1" json:"eval1"`
	Eval2     null.Float64 `db:"eval2" json:"eval2"`
	Eval3     null.Float64 `db:"eval3" json:"eval3"`
	Exam      null.Float64 `db:"exam" json:"exam"`
	Average   null.Float64 `db:"average" json:"average"`
	Notes     null.String  `db:"notes" json:"notes"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"` // UTC
	UpdatedAt time.Time    `db:"updated_at" json:"updatedAt"` // UTC
}

// StudentGrade is a student of the roster next to its grade for the queried subject and term.
// Grade fields are null when nothing was entered yet.
type StudentGrade struct {
	StudentID          string       `db:"student_id" json:"studentId"`
	FirstName          string       `db:"first_name" json:"firstName"`
	LastName           string       `db:"last_name" json:"lastName"`
	RegistrationNumber null.String  `db:"registration_number" json:"registrationNumber"`
	Grade              null.String  `db:"grade" json:"grade"`
	GroupName          null.String  `db:"group_name" json:"groupName"`
	GradeID            null.String  `db:"grade_id" json:"gradeId"`
	Eval1              null.Float64 `db:"eval1" json:"eval1"`
	Eval2              null.Float64 `db:"eval2" json:"eval2"`
	Eval3              null.Float64 `db:"eval3" json:"eval3"`
	Exam               null.Float64 `db:"exam" json:"exam"`
	Average            null.Float64 `db:"average" json:"average"`
	Notes              null.String  `db:"notes" json:"notes"`
}

// Query selects the grade sheet of a subject and term, optionally for one class grade or group.
type Query struct {
	TeacherID string `json:"teacherId" validate:"required"`
	Subject   string `json:"subject" validate:"notblank"`
	Term      int    `json:"term" validate:"min=1,max=3"`
	Grade     string `json:"grade"`
	Group     string `json:"group"`
}

func (q *Query) Validate(validate *validator.Validate) error {
	q.Subject = core.CleanString(q.Subject)
	q.Grade = core.CleanString(q.Grade)
	q.Group = core.CleanString(q.Group)
	return validate.Struct(q)
}

// GradeInput contains the scores entered for a student in a subject and term.
type GradeInput struct {
	StudentID string       `json:"studentId" validate:"required"`
	TeacherID string       `json:"teacherId" validate:"required"`
	Subject   string       `json:"subject" validate:"notblank"`
	Term      int          `json:"term" validate:"min=1,max=3"`
	Eval1     null.Float64 `json:"eval1"`
	Eval2     null.Float64 `json:"eval2"`
	Eval3     null.Float64 `json:"eval3"`
	Exam      null.Float64 `json:"exam"`
	Notes     string       `json:"notes"`
}

func (gi *GradeInput) Validate(validate *validator.Validate) error {
	gi.Subject = core.CleanString(gi.Subject)
	gi.Notes = core.CleanString(gi.Notes)
	return validate.Struct(gi)
}

// Average combines the evaluation mean with the exam, the exam counting double.
// When only one side was entered, it alone makes the average. The result is rounded to 2 decimals.
func Average(evals []null.Float64, exam null.Float64) null.Float64 {
	var sum float64
	var n int
	for _, e := range evals {
		if e.Valid {
			sum += e.Float64
			n++
		}
	}

	switch {
	case n > 0 && exam.Valid:
		return null.Float64From(core.Round2((sum/float64(n) + 2*exam.Float64) / 3))
	case n > 0:
		return null.Float64From(core.Round2(sum / float64(n)))
	case exam.Valid:
		return null.Float64From(core.Round2(exam.Float64))
	default:
		return null.Float64{}
	}
}
