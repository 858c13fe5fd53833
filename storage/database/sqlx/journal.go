package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/journal"
	"github.com/tamkeen/tamkeen/storage/database"
)

const (
	journalColumns = `id, teacher_id, date, notes, created_at, updated_at`
	sessionColumns = `id, journal_id, subject, activity_type, title, content, objectives, notes, resources,
		evaluation, start_time, end_time, category, section_number, unit_number, session_number,
		curriculum_id, competency, created_at, updated_at`
)

type journalRepository struct {
	repository
}

var _ journal.Repository = (*journalRepository)(nil) // interface compliance check

func NewJournalRepository(exec core.DBExecutor) *journalRepository {
	return &journalRepository{repository{exec: exec}}
}

func (repo journalRepository) GetJournal(ctx context.Context, teacherID, date string, exec ...core.DBExecutor) (journal.DailyJournal, error) {
	var j journal.DailyJournal
	err := repo.getExec(exec).Get(ctx, &j,
		`SELECT `+journalColumns+` FROM daily_journals WHERE teacher_id = ? AND date = ?`, teacherID, date)
	if err != nil {
		return journal.DailyJournal{}, trapNoRowsErr(err, journal.ErrNotFound, "getting journal")
	}
	return j, nil
}

func (repo journalRepository) QueryJournals(ctx context.Context, teacherID, from, to string, exec ...core.DBExecutor) ([]journal.DailyJournal, error) {
	journals := make([]journal.DailyJournal, 0)
	err := repo.getExec(exec).Select(ctx, &journals, `
		SELECT `+journalColumns+` FROM daily_journals
		WHERE teacher_id = ? AND date BETWEEN ? AND ?
		ORDER BY date`,
		teacherID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "querying journals")
	}
	return journals, nil
}

func (repo journalRepository) CreateJournal(ctx context.Context, j journal.DailyJournal, exec ...core.DBExecutor) (journal.DailyJournal, error) {
	_, err := repo.getExec(exec).Run(ctx, `
		INSERT INTO daily_journals (`+journalColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.TeacherID, j.Date, j.Notes, j.CreatedAt.UTC(), j.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return journal.DailyJournal{}, journal.ErrTeacherNotFound
		}
		return journal.DailyJournal{}, errors.Wrap(err, "inserting journal")
	}
	return j, nil
}

func (repo journalRepository) UpdateJournal(ctx context.Context, j journal.DailyJournal, exec ...core.DBExecutor) (journal.DailyJournal, error) {
	res, err := repo.getExec(exec).Run(ctx,
		`UPDATE daily_journals SET notes = ?, updated_at = ? WHERE id = ?`, j.Notes, j.UpdatedAt.UTC(), j.ID)
	if err != nil {
		return journal.DailyJournal{}, errors.Wrap(err, "updating journal")
	}
	if err = checkAffected(res, journal.ErrNotFound); err != nil {
		return journal.DailyJournal{}, err
	}
	return j, nil
}

func (repo journalRepository) QuerySessions(ctx context.Context, journalIDs []string, exec ...core.DBExecutor) ([]journal.Session, error) {
	sessions := make([]journal.Session, 0)
	if len(journalIDs) == 0 {
		return sessions, nil
	}
	q, args, err := sqlx.In(`
		SELECT `+sessionColumns+` FROM sessions
		WHERE journal_id IN (?)
		ORDER BY journal_id, start_time IS NULL, start_time, created_at`, journalIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building sessions query")
	}
	if err = repo.getExec(exec).Select(ctx, &sessions, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions, nil
}

func (repo journalRepository) GetSessionByID(ctx context.Context, id string, exec ...core.DBExecutor) (journal.Session, error) {
	var sess journal.Session
	err := repo.getExec(exec).Get(ctx, &sess, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	if err != nil {
		return journal.Session{}, trapNoRowsErr(err, journal.ErrSessionNotFound, "getting session")
	}
	return sess, nil
}

func (repo journalRepository) GetSessionOwner(ctx context.Context, id string, exec ...core.DBExecutor) (string, error) {
	var teacherID string
	err := repo.getExec(exec).Get(ctx, &teacherID, `
		SELECT j.teacher_id FROM sessions s
		JOIN daily_journals j ON j.id = s.journal_id
		WHERE s.id = ?`, id)
	if err != nil {
		return "", trapNoRowsErr(err, journal.ErrSessionNotFound, "getting session owner")
	}
	return teacherID, nil
}

func (repo journalRepository) CreateSession(ctx context.Context, sess journal.Session, exec ...core.DBExecutor) (journal.Session, error) {
	_, err := repo.getExec(exec).Run(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.JournalID, sess.Subject, sess.ActivityType, sess.Title, sess.Content, sess.Objectives,
		sess.Notes, sess.Resources, sess.Evaluation, sess.StartTime, sess.EndTime, sess.Category,
		sess.SectionNumber, sess.UnitNumber, sess.SessionNumber, sess.CurriculumID, sess.Competency,
		sess.CreatedAt.UTC(), sess.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return journal.Session{}, journal.ErrNotFound
		}
		return journal.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (repo journalRepository) UpdateSession(ctx context.Context, sess journal.Session, exec ...core.DBExecutor) (journal.Session, error) {
	res, err := repo.getExec(exec).Run(ctx, `
		UPDATE sessions SET
			subject = ?, activity_type = ?, title = ?, content = ?, objectives = ?, notes = ?,
			resources = ?, evaluation = ?, start_time = ?, end_time = ?, category = ?,
			section_number = ?, unit_number = ?, session_number = ?, curriculum_id = ?,
			competency = ?, updated_at = ?
		WHERE id = ?`,
		sess.Subject, sess.ActivityType, sess.Title, sess.Content, sess.Objectives, sess.Notes,
		sess.Resources, sess.Evaluation, sess.StartTime, sess.EndTime, sess.Category,
		sess.SectionNumber, sess.UnitNumber, sess.SessionNumber, sess.CurriculumID,
		sess.Competency, sess.UpdatedAt.UTC(), sess.ID,
	)
	if err != nil {
		return journal.Session{}, errors.Wrap(err, "updating session")
	}
	if err = checkAffected(res, journal.ErrSessionNotFound); err != nil {
		return journal.Session{}, err
	}
	return sess, nil
}

func (repo journalRepository) DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).Run(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return checkAffected(res, journal.ErrSessionNotFound)
}
