package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
)

// Genders
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

type Student struct {
	ID                 string      `db:"id" json:"id"`
	TeacherID          string      `db:"teacher_id" json:"teacherId"`
	FirstName          string      `db:"first_name" json:"firstName"`
	LastName           string      `db:"last_name" json:"lastName"`
	RegistrationNumber null.String `db:"registration_number" json:"registrationNumber"`
	BirthDate          null.String `db:"birth_date" json:"birthDate"` // YYYY-MM-DD
	Gender             null.String `db:"gender" json:"gender"`
	Level              null.String `db:"level" json:"level"`
	Grade              null.String `db:"grade" json:"grade"`
	GroupName          null.String `db:"group_name" json:"groupName"`
	CreatedAt          time.Time   `db:"created_at" json:"createdAt"` // UTC
	UpdatedAt          time.Time   `db:"updated_at" json:"updatedAt"` // UTC
}

// Fields are the editable attributes of a Student.
type Fields struct {
	FirstName          string `json:"firstName" validate:"notblank"`
	LastName           string `json:"lastName" validate:"notblank"`
	RegistrationNumber string `json:"registrationNumber"`
	BirthDate          string `json:"birthDate" validate:"omitempty,date"`
	Gender             string `json:"gender" validate:"omitempty,oneof=M F"`
	Level              string `json:"level"`
	Grade              string `json:"grade"`
	GroupName          string `json:"groupName"`
}

func (f *Fields) clean() {
	f.FirstName = core.CleanString(f.FirstName)
	f.LastName = core.CleanString(f.LastName)
	f.RegistrationNumber = core.CleanString(f.RegistrationNumber)
	f.BirthDate = core.CleanString(f.BirthDate)
	f.Gender = core.CleanString(f.Gender)
	f.Level = core.CleanString(f.Level)
	f.Grade = core.CleanString(f.Grade)
	f.GroupName = core.CleanString(f.GroupName)
}

func (f Fields) apply(std Student) Student {
	str := func(s string) null.String { return null.NewString(s, s != "") }
	std.FirstName = f.FirstName
	std.LastName = f.LastName
	std.RegistrationNumber = str(f.RegistrationNumber)
	std.BirthDate = str(f.BirthDate)
	std.Gender = str(f.Gender)
	std.Level = str(f.Level)
	std.Grade = str(f.Grade)
	std.GroupName = str(f.GroupName)
	return std
}

func (f *Fields) Validate(validate *validator.Validate) error {
	f.clean()
	return validate.Struct(f)
}

// NewStudent contains information needed to add a Student to a teacher's roster.
type NewStudent struct {
	TeacherID string `json:"teacherId" validate:"required"`
	Fields
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.TeacherID = core.CleanString(ns.TeacherID)
	ns.Fields.clean()
	return validate.Struct(ns)
}

// Filter narrows a roster. Empty fields match everything;
// Search does a case-insensitive match on names or registration number.
type Filter struct {
	Level  string `json:"level"`
	Grade  string `json:"grade"`
	Group  string `json:"group"`
	Search string `json:"search"`
}

func (f *Filter) Clean() {
	f.Level = core.CleanString(f.Level)
	f.Grade = core.CleanString(f.Grade)
	f.Group = core.CleanString(f.Group)
	f.Search = core.CleanString(f.Search)
}
