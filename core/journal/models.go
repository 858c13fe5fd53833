package journal

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
)

// Categories
const (
	CategoryLesson      = "lesson"
	CategoryBreak       = "break"
	CategoryExam        = "exam"
	CategorySupport     = "support"
	CategoryTraining    = "training"
	CategoryIntegration = "integration"
	CategoryHoliday     = "holiday"
)

var Categories = []string{
	CategoryLesson,
	CategoryBreak,
	CategoryExam,
	CategorySupport,
	CategoryTraining,
	CategoryIntegration,
	CategoryHoliday,
}

// DailyJournal holds one teacher's lesson entries for one calendar day.
type DailyJournal struct {
	ID        string      `db:"id" json:"id"`
	TeacherID string      `db:"teacher_id" json:"teacherId"`
	Date      string      `db:"date" json:"date"` // YYYY-MM-DD
	Notes     null.String `db:"notes" json:"notes"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
	Sessions  []Session   `db:"-" json:"sessions"`
}

// Session is a single lesson, break or exam entry of a journal day.
type Session struct {
	ID            string      `db:"id" json:"id"`
	JournalID     string      `db:"journal_id" json:"journalId"`
	Subject       null.String `db:"subject" json:"subject"`
	ActivityType  null.String `db:"activity_type" json:"activityType"`
	Title         null.String `db:"title" json:"title"`
	Content       null.String `db:"content" json:"content"`
	Objectives    null.String `db:"objectives" json:"objectives"`
	Notes         null.String `db:"notes" json:"notes"`
	Resources     null.String `db:"resources" json:"resources"`
	Evaluation    null.String `db:"evaluation" json:"evaluation"`
	StartTime     null.String `db:"start_time" json:"startTime"` // HH:MM
	EndTime       null.String `db:"end_time" json:"endTime"`     // HH:MM
	Category      string      `db:"category" json:"category"`
	SectionNumber null.Int    `db:"section_number" json:"sectionNumber"`
	UnitNumber    null.Int    `db:"unit_number" json:"unitNumber"`
	SessionNumber null.Int    `db:"session_number" json:"sessionNumber"`
	CurriculumID  null.Int64  `db:"curriculum_id" json:"curriculumId"`
	Competency    null.String `db:"competency" json:"competency"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updatedAt"`
}

// SessionFields are the editable attributes of a Session.
type SessionFields struct {
	Subject       string     `json:"subject"`
	ActivityType  string     `json:"activityType"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Objectives    string     `json:"objectives"`
	Notes         string     `json:"notes"`
	Resources     string     `json:"resources"`
	Evaluation    string     `json:"evaluation"`
	StartTime     string     `json:"startTime" validate:"omitempty,hhmm"`
	EndTime       string     `json:"endTime" validate:"omitempty,hhmm"`
	Category      string     `json:"category" validate:"omitempty,category"`
	SectionNumber null.Int   `json:"sectionNumber"`
	UnitNumber    null.Int   `json:"unitNumber"`
	SessionNumber null.Int   `json:"sessionNumber"`
	CurriculumID  null.Int64 `json:"curriculumId"`
	Competency    string     `json:"competency"`
}

func (sf *SessionFields) clean() {
	sf.Subject = core.CleanString(sf.Subject)
	sf.ActivityType = core.CleanString(sf.ActivityType)
	sf.Title = core.CleanString(sf.Title)
	sf.StartTime = core.CleanString(sf.StartTime)
	sf.EndTime = core.CleanString(sf.EndTime)
	sf.Category = core.CleanString(sf.Category, true /* lower */)
	if sf.Category == "" {
		sf.Category = CategoryLesson
	}
	sf.Competency = core.CleanString(sf.Competency)
}

func (sf SessionFields) apply(sess Session) Session {
	str := func(s string) null.String { return null.NewString(s, s != "") }
	sess.Subject = str(sf.Subject)
	sess.ActivityType = str(sf.ActivityType)
	sess.Title = str(sf.Title)
	sess.Content = str(sf.Content)
	sess.Objectives = str(sf.Objectives)
	sess.Notes = str(sf.Notes)
	sess.Resources = str(sf.Resources)
	sess.Evaluation = str(sf.Evaluation)
	sess.StartTime = str(sf.StartTime)
	sess.EndTime = str(sf.EndTime)
	sess.Category = sf.Category
	sess.SectionNumber = sf.SectionNumber
	sess.UnitNumber = sf.UnitNumber
	sess.SessionNumber = sf.SessionNumber
	sess.CurriculumID = sf.CurriculumID
	sess.Competency = str(sf.Competency)
	return sess
}

func (sf *SessionFields) Validate(validate *validator.Validate) error {
	sf.clean()
	return validate.Struct(sf)
}

// NewSession contains information needed to add a Session to a teacher's day.
type NewSession struct {
	TeacherID string `json:"teacherId" validate:"required"`
	Date      string `json:"date" validate:"required,date"`
	SessionFields
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.TeacherID = core.CleanString(ns.TeacherID)
	ns.Date = core.CleanString(ns.Date)
	ns.SessionFields.clean()
	return validate.Struct(ns)
}

// DateRange selects the journals of a teacher between From and To, inclusive.
type DateRange struct {
	TeacherID string `json:"teacherId" validate:"required"`
	From      string `json:"from" validate:"required,date"`
	To        string `json:"to" validate:"required,date"`
}
