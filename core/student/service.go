package student

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/syncqueue"
)

const syncTable = "students"

var (
	// errors
	ErrNotFound        = errors.New("student not found")
	ErrTeacherNotFound = errors.New("teacher not found")
)

type (
	Repository interface {
		QueryStudents(ctx context.Context, teacherID string, filter Filter, exec ...core.DBExecutor) ([]Student, error)
		GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		// CreateStudent inserts std; an unknown teacher yields ErrTeacherNotFound.
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		// DeleteStudent removes the student id and, by cascade, its grades.
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
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

// GetAll returns the roster of teacherID ordered by last then first name.
func (svc *Service) GetAll(ctx context.Context, teacherID string, filter Filter) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, teacherID, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) create(ctx context.Context, tx core.DBExecutor, ns NewStudent) (Student, error) {
	now := core.NowFunc()
	std := ns.Fields.apply(Student{
		ID:        uuid.New().String(),
		TeacherID: ns.TeacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	std, err := svc.repo.CreateStudent(ctx, std, tx)
	if err != nil {
		return Student{}, err
	}
	err = svc.queue.Append(ctx, tx, syncqueue.Change{
		Table:     syncTable,
		RecordID:  std.ID,
		Operation: syncqueue.OpInsert,
		Payload:   std,
	})
	return std, err
}

func (svc *Service) Add(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	var std Student
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		var err error
		std, err = svc.create(ctx, tx, ns)
		return err
	})
	if err != nil {
		return Student{}, err
	}
	return std, nil
}

// AddMany adds a whole roster at once: either every student is added or none is.
func (svc *Service) AddMany(ctx context.Context, batch []NewStudent) ([]Student, error) {
	for i := range batch {
		if err := batch[i].Validate(svc.validate); err != nil {
			return nil, errors.Wrapf(err, "student #%d", i+1)
		}
	}

	students := make([]Student, 0, len(batch))
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		for _, ns := range batch {
			std, err := svc.create(ctx, tx, ns)
			if err != nil {
				return err
			}
			students = append(students, std)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (svc *Service) Update(ctx context.Context, id string, f Fields) (Student, error) {
	if err := f.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	var std Student
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		orig, err := svc.repo.GetStudentByID(ctx, id, tx)
		if err != nil {
			return err
		}
		std = f.apply(orig)
		std.UpdatedAt = core.NowFunc()
		if std, err = svc.repo.UpdateStudent(ctx, std, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     syncTable,
			RecordID:  std.ID,
			Operation: syncqueue.OpUpdate,
			Payload:   std,
		})
	})
	if err != nil {
		return Student{}, err
	}
	return std, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		if err := svc.repo.DeleteStudent(ctx, id, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     syncTable,
			RecordID:  id,
			Operation: syncqueue.OpDelete,
		})
	})
}
