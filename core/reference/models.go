package reference

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
)

type Wilaya struct {
	ID     int64  `db:"id" json:"id"`
	Code   string `db:"code" json:"code"`
	NameAr string `db:"name_ar" json:"nameAr"`
	NameFr string `db:"name_fr" json:"nameFr"`
}

type Level struct {
	ID        int64  `db:"id" json:"id"`
	Code      string `db:"code" json:"code"`
	NameAr    string `db:"name_ar" json:"nameAr"`
	NameFr    string `db:"name_fr" json:"nameFr"`
	SortOrder int    `db:"sort_order" json:"sortOrder"`
}

type Year struct {
	ID         int64  `db:"id" json:"id"`
	LevelID    int64  `db:"level_id" json:"levelId"`
	Code       string `db:"code" json:"code"`
	NameAr     string `db:"name_ar" json:"nameAr"`
	NameFr     string `db:"name_fr" json:"nameFr"`
	YearNumber int    `db:"year_number" json:"yearNumber"`
}

type Stream struct {
	ID     int64  `db:"id" json:"id"`
	YearID int64  `db:"year_id" json:"yearId"`
	Code   string `db:"code" json:"code"`
	NameAr string `db:"name_ar" json:"nameAr"`
	NameFr string `db:"name_fr" json:"nameFr"`
}

type Subject struct {
	ID      int64  `db:"id" json:"id"`
	LevelID int64  `db:"level_id" json:"levelId" validate:"required"`
	Code    string `db:"code" json:"code" validate:"notblank"`
	NameAr  string `db:"name_ar" json:"nameAr" validate:"notblank"`
	NameFr  string `db:"name_fr" json:"nameFr"`
}

// CurriculumLink places one session of the official programme within its section and unit.
type CurriculumLink struct {
	ID             int64       `db:"id" json:"id"`
	YearID         int64       `db:"year_id" json:"yearId" validate:"required"`
	StreamID       null.Int64  `db:"stream_id" json:"streamId"`
	SubjectID      int64       `db:"subject_id" json:"subjectId" validate:"required"`
	SectionNumber  int         `db:"section_number" json:"sectionNumber" validate:"gte=1"`
	SectionTitle   string      `db:"section_title" json:"sectionTitle"`
	UnitNumber     int         `db:"unit_number" json:"unitNumber" validate:"gte=1"`
	UnitTitle      string      `db:"unit_title" json:"unitTitle"`
	SessionNumber  int         `db:"session_number" json:"sessionNumber" validate:"gte=1"`
	SessionTitle   string      `db:"session_title" json:"sessionTitle" validate:"notblank"`
	CompetencyCode null.String `db:"competency_code" json:"competencyCode"`
}

type Competency struct {
	ID          int64  `db:"id" json:"id"`
	SubjectID   int64  `db:"subject_id" json:"subjectId" validate:"required"`
	YearID      int64  `db:"year_id" json:"yearId" validate:"required"`
	Code        string `db:"code" json:"code" validate:"notblank"`
	Description string `db:"description" json:"description" validate:"notblank"`
}

// CurriculumQuery selects curriculum links of one year, optionally narrowed by stream and subject.
type CurriculumQuery struct {
	YearID    int64      `json:"yearId" validate:"required"`
	StreamID  null.Int64 `json:"streamId"`
	SubjectID null.Int64 `json:"subjectId"`
}

// Bundle is an admin supplied batch of reference rows.
type Bundle struct {
	Subjects     []Subject        `json:"subjects" validate:"dive"`
	Curriculum   []CurriculumLink `json:"curriculum" validate:"dive"`
	Competencies []Competency     `json:"competencies" validate:"dive"`
}

func (b Bundle) Validate(validate *validator.Validate) error {
	if len(b.Subjects) == 0 && len(b.Curriculum) == 0 && len(b.Competencies) == 0 {
		return core.NewValidationError(ErrEmptyBundle)
	}
	for i := range b.Subjects {
		b.Subjects[i].Code = core.CleanString(b.Subjects[i].Code)
	}
	return validate.Struct(b)
}

type ImportReport struct {
	Subjects     int `json:"subjects"`
	Curriculum   int `json:"curriculum"`
	Competencies int `json:"competencies"`
}
