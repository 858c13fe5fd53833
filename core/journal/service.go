package journal

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/syncqueue"
)

const (
	journalsTable = "daily_journals"
	sessionsTable = "sessions"
)

var (
	// errors
	ErrNotFound        = errors.New("journal not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrTeacherNotFound = errors.New("teacher not found")
)

type (
	Repository interface {
		// GetJournal returns the journal of teacherID for date, without its sessions.
		GetJournal(ctx context.Context, teacherID, date string, exec ...core.DBExecutor) (DailyJournal, error)
		// QueryJournals returns the journals of teacherID dated from..to inclusive, oldest first.
		QueryJournals(ctx context.Context, teacherID, from, to string, exec ...core.DBExecutor) ([]DailyJournal, error)
		// CreateJournal inserts j; an unknown teacher yields ErrTeacherNotFound.
		CreateJournal(ctx context.Context, j DailyJournal, exec ...core.DBExecutor) (DailyJournal, error)
		UpdateJournal(ctx context.Context, j DailyJournal, exec ...core.DBExecutor) (DailyJournal, error)

		// QuerySessions returns the sessions of the given journals ordered by start time.
		QuerySessions(ctx context.Context, journalIDs []string, exec ...core.DBExecutor) ([]Session, error)
		GetSessionByID(ctx context.Context, id string, exec ...core.DBExecutor) (Session, error)
		// GetSessionOwner returns the teacher whose journal holds the session id.
		GetSessionOwner(ctx context.Context, id string, exec ...core.DBExecutor) (string, error)
		CreateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
		UpdateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
		// DeleteSession removes the session id; a missing one yields ErrSessionNotFound.
		DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) error
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

// GetDaily returns the journal of teacherID for date with its sessions.
func (svc *Service) GetDaily(ctx context.Context, teacherID, date string) (DailyJournal, error) {
	if err := svc.validate.Var(date, "required,date"); err != nil {
		return DailyJournal{}, err
	}
	j, err := svc.repo.GetJournal(ctx, teacherID, date)
	if err != nil {
		return DailyJournal{}, err
	}
	if j.Sessions, err = svc.repo.QuerySessions(ctx, []string{j.ID}); err != nil {
		return DailyJournal{}, err
	}
	return j, nil
}

// GetRange returns every journal of the range with its sessions.
func (svc *Service) GetRange(ctx context.Context, dr DateRange) ([]DailyJournal, error) {
	if err := svc.validate.Struct(dr); err != nil {
		return nil, err
	}
	journals, err := svc.repo.QueryJournals(ctx, dr.TeacherID, dr.From, dr.To)
	if err != nil {
		return nil, err
	}
	if len(journals) == 0 {
		return journals, nil
	}

	ids := make([]string, 0, len(journals))
	idx := make(map[string]int, len(journals))
	for i := range journals {
		ids = append(ids, journals[i].ID)
		idx[journals[i].ID] = i
		journals[i].Sessions = make([]Session, 0)
	}
	sessions, err := svc.repo.QuerySessions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		i := idx[sess.JournalID]
		journals[i].Sessions = append(journals[i].Sessions, sess)
	}
	return journals, nil
}

// journalFor returns the journal of (teacherID, date), creating it when absent.
func (svc *Service) journalFor(ctx context.Context, tx core.DBExecutor, teacherID, date string) (DailyJournal, error) {
	j, err := svc.repo.GetJournal(ctx, teacherID, date, tx)
	if err == nil {
		return j, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return DailyJournal{}, err
	}

	now := core.NowFunc()
	j, err = svc.repo.CreateJournal(ctx, DailyJournal{
		ID:        uuid.New().String(),
		TeacherID: teacherID,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}, tx)
	if err != nil {
		return DailyJournal{}, err
	}
	err = svc.queue.Append(ctx, tx, syncqueue.Change{
		Table:     journalsTable,
		RecordID:  j.ID,
		Operation: syncqueue.OpInsert,
		Payload:   j,
	})
	return j, err
}

// AddSession adds a session to the teacher's day, creating the day's journal on first use.
func (svc *Service) AddSession(ctx context.Context, ns NewSession) (Session, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Session{}, err
	}

	var sess Session
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		j, err := svc.journalFor(ctx, tx, ns.TeacherID, ns.Date)
		if err != nil {
			return err
		}

		now := core.NowFunc()
		sess = ns.SessionFields.apply(Session{
			ID:        uuid.New().String(),
			JournalID: j.ID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if sess, err = svc.repo.CreateSession(ctx, sess, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     sessionsTable,
			RecordID:  sess.ID,
			Operation: syncqueue.OpInsert,
			Payload:   sess,
		})
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// SessionOwner returns the id of the teacher the session belongs to.
func (svc *Service) SessionOwner(ctx context.Context, id string) (string, error) {
	return svc.repo.GetSessionOwner(ctx, id)
}

func (svc *Service) UpdateSession(ctx context.Context, id string, sf SessionFields) (Session, error) {
	if err := sf.Validate(svc.validate); err != nil {
		return Session{}, err
	}

	var sess Session
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		orig, err := svc.repo.GetSessionByID(ctx, id, tx)
		if err != nil {
			return err
		}
		sess = sf.apply(orig)
		sess.UpdatedAt = core.NowFunc()
		if sess, err = svc.repo.UpdateSession(ctx, sess, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     sessionsTable,
			RecordID:  sess.ID,
			Operation: syncqueue.OpUpdate,
			Payload:   sess,
		})
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// DeleteSession removes a session; its journal is kept even when it becomes empty.
func (svc *Service) DeleteSession(ctx context.Context, id string) error {
	return svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		if err := svc.repo.DeleteSession(ctx, id, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     sessionsTable,
			RecordID:  id,
			Operation: syncqueue.OpDelete,
		})
	})
}

// UpdateJournalNotes sets the free notes of the teacher's day, creating its journal if needed.
func (svc *Service) UpdateJournalNotes(ctx context.Context, teacherID, date, notes string) (DailyJournal, error) {
	if err := svc.validate.Var(date, "required,date"); err != nil {
		return DailyJournal{}, err
	}

	var j DailyJournal
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		var err error
		if j, err = svc.journalFor(ctx, tx, teacherID, date); err != nil {
			return err
		}
		notes = core.CleanString(notes)
		j.Notes = null.NewString(notes, notes != "")
		j.UpdatedAt = core.NowFunc()
		if j, err = svc.repo.UpdateJournal(ctx, j, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     journalsTable,
			RecordID:  j.ID,
			Operation: syncqueue.OpUpdate,
			Payload:   j,
		})
	})
	if err != nil {
		return DailyJournal{}, err
	}
	return j, nil
}
