package grading

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/syncqueue"
)

const syncTable = "grades"

var (
	// errors
	ErrNotFound        = errors.New("grade not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrForeignStudent  = errors.New("student belongs to another teacher")
)

type (
	Repository interface {
		// QueryGradeSheet returns every matching student of the teacher with its grade, if any.
		QueryGradeSheet(ctx context.Context, q Query, exec ...core.DBExecutor) ([]StudentGrade, error)
		GetGradeByID(ctx context.Context, id string, exec ...core.DBExecutor) (Grade, error)
		GetGrade(ctx context.Context, studentID, subject string, term int, exec ...core.DBExecutor) (Grade, error)
		// GetStudentOwner returns the teacher of studentID; an unknown student yields ErrStudentNotFound.
		GetStudentOwner(ctx context.Context, studentID string, exec ...core.DBExecutor) (string, error)
		// CreateGrade inserts g; an unknown student yields ErrStudentNotFound.
		CreateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		UpdateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		DeleteGrade(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		db       core.DB
		repo     Repository
		queue    *syncqueue.Queue
		validate *validator.Validate
		log      core.Logger
	}
)

func NewService(db core.DB, repo Repository, queue *syncqueue.Queue, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{db: db, repo: repo, queue: queue, validate: validate, log: logger}
}

func (svc *Service) Get(ctx context.Context, q Query) ([]StudentGrade, error) {
	if err := q.Validate(svc.validate); err != nil {
		return nil, err
	}
	return svc.repo.QueryGradeSheet(ctx, q)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Grade, error) {
	return svc.repo.GetGradeByID(ctx, id)
}

// Save records the scores of a student for a subject and term.
// The existing grade of that triple is updated; otherwise a new one is created.
func (svc *Service) Save(ctx context.Context, gi GradeInput) (Grade, error) {
	if err := gi.Validate(svc.validate); err != nil {
		return Grade{}, err
	}

	var g Grade
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		owner, err := svc.repo.GetStudentOwner(ctx, gi.StudentID, tx)
		if err != nil {
			return err
		}
		if owner != gi.TeacherID {
			return ErrForeignStudent
		}

		now := core.NowFunc()
		op := syncqueue.OpUpdate

		orig, err := svc.repo.GetGrade(ctx, gi.StudentID, gi.Subject, gi.Term, tx)
		switch errors.Cause(err) {
		case nil:
		case ErrNotFound:
			op = syncqueue.OpInsert
			orig = Grade{
				ID:        uuid.New().String(),
				StudentID: gi.StudentID,
				Subject:   gi.Subject,
				Term:      gi.Term,
				CreatedAt: now,
			}
		default:
			return err
		}

		g = orig
		g.TeacherID = owner
		g.Eval1, g.Eval2, g.Eval3, g.Exam = gi.Eval1, gi.Eval2, gi.Eval3, gi.Exam
		g.Average = Average([]null.Float64{gi.Eval1, gi.Eval2, gi.Eval3}, gi.Exam)
		g.Notes = null.NewString(gi.Notes, gi.Notes != "")
		g.UpdatedAt = now

		if op == syncqueue.OpInsert {
			g, err = svc.repo.CreateGrade(ctx, g, tx)
		} else {
			g, err = svc.repo.UpdateGrade(ctx, g, tx)
		}
		if err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     syncTable,
			RecordID:  g.ID,
			Operation: op,
			Payload:   g,
		})
	})
	if err != nil {
		return Grade{}, err
	}
	return g, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		if err := svc.repo.DeleteGrade(ctx, id, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     syncTable,
			RecordID:  id,
			Operation: syncqueue.OpDelete,
		})
	})
}
