package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/grading"
	"github.com/tamkeen/tamkeen/storage/database"
)

const gradeColumns = `id, student_id, teacher_id, subject, term, eval1, eval2, eval3, exam, average, notes,
	created_at, updated_at`

type gradeRepository struct {
	repository
}

var _ grading.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) *gradeRepository {
	return &gradeRepository{repository{exec: exec}}
}

func (repo gradeRepository) QueryGradeSheet(ctx context.Context, q grading.Query, exec ...core.DBExecutor) ([]grading.StudentGrade, error) {
	query := `
		SELECT s.id AS student_id, s.first_name, s.last_name, s.registration_number, s.grade, s.group_name,
			g.id AS grade_id, g.eval1, g.eval2, g.eval3, g.exam, g.average, g.notes
		FROM students s
		LEFT JOIN grades g ON g.student_id = s.id AND g.subject = ? AND g.term = ?
		WHERE s.teacher_id = ?`
	args := []interface{}{q.Subject, q.Term, q.TeacherID}
	if q.Grade != "" {
		query += ` AND s.grade = ?`
		args = append(args, q.Grade)
	}
	if q.Group != "" {
		query += ` AND s.group_name = ?`
		args = append(args, q.Group)
	}
	query += ` ORDER BY s.last_name COLLATE NOCASE, s.first_name COLLATE NOCASE`

	sheet := make([]grading.StudentGrade, 0)
	if err := repo.getExec(exec).Select(ctx, &sheet, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying grade sheet")
	}
	return sheet, nil
}

func (repo gradeRepository) GetGradeByID(ctx context.Context, id string, exec ...core.DBExecutor) (grading.Grade, error) {
	var g grading.Grade
	err := repo.getExec(exec).Get(ctx, &g, `SELECT `+gradeColumns+` FROM grades WHERE id = ?`, id)
	if err != nil {
		return grading.Grade{}, trapNoRowsErr(err, grading.ErrNotFound, "getting grade by id")
	}
	return g, nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, studentID, subject string, term int, exec ...core.DBExecutor) (grading.Grade, error) {
	var g grading.Grade
	err := repo.getExec(exec).Get(ctx, &g,
		`SELECT `+gradeColumns+` FROM grades WHERE student_id = ? AND subject = ? AND term = ?`,
		studentID, subject, term)
	if err != nil {
		return grading.Grade{}, trapNoRowsErr(err, grading.ErrNotFound, "getting grade")
	}
	return g, nil
}

func (repo gradeRepository) GetStudentOwner(ctx context.Context, studentID string, exec ...core.DBExecutor) (string, error) {
	var teacherID string
	err := repo.getExec(exec).Get(ctx, &teacherID, `SELECT teacher_id FROM students WHERE id = ?`, studentID)
	if err != nil {
		return "", trapNoRowsErr(err, grading.ErrStudentNotFound, "getting student owner")
	}
	return teacherID, nil
}

func (repo gradeRepository) CreateGrade(ctx context.Context, g grading.Grade, exec ...core.DBExecutor) (grading.Grade, error) {
	_, err := repo.getExec(exec).Run(ctx, `
		INSERT INTO grades (`+gradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.StudentID, g.TeacherID, g.Subject, g.Term, g.Eval1, g.Eval2, g.Eval3, g.Exam, g.Average, g.Notes,
		g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return grading.Grade{}, grading.ErrStudentNotFound
		}
		return grading.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return g, nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, g grading.Grade, exec ...core.DBExecutor) (grading.Grade, error) {
	res, err := repo.getExec(exec).Run(ctx, `
		UPDATE grades SET
			teacher_id = ?, eval1 = ?, eval2 = ?, eval3 = ?, exam = ?, average = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		g.TeacherID, g.Eval1, g.Eval2, g.Eval3, g.Exam, g.Average, g.Notes, g.UpdatedAt.UTC(), g.ID,
	)
	if err != nil {
		return grading.Grade{}, errors.Wrap(err, "updating grade")
	}
	if err = checkAffected(res, grading.ErrNotFound); err != nil {
		return grading.Grade{}, err
	}
	return g, nil
}

func (repo gradeRepository) DeleteGrade(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).Run(ctx, `DELETE FROM grades WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return checkAffected(res, grading.ErrNotFound)
}
