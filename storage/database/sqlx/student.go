package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/student"
	"github.com/tamkeen/tamkeen/storage/database"
)

const studentColumns = `id, teacher_id, first_name, last_name, registration_number, birth_date, gender,
	level, grade, group_name, created_at, updated_at`

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{repository{exec: exec}}
}

func (repo studentRepository) QueryStudents(ctx context.Context, teacherID string, filter student.Filter, exec ...core.DBExecutor) ([]student.Student, error) {
	where := []string{"teacher_id = ?"}
	args := []interface{}{teacherID}

	if filter.Level != "" {
		where = append(where, "level = ?")
		args = append(args, filter.Level)
	}
	if filter.Grade != "" {
		where = append(where, "grade = ?")
		args = append(args, filter.Grade)
	}
	if filter.Group != "" {
		where = append(where, "group_name = ?")
		args = append(args, filter.Group)
	}
	// students with first name, last name or registration number matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, "(first_name LIKE ? OR last_name LIKE ? OR registration_number LIKE ?)")
		args = append(args, val, val, val)
	}

	q := `SELECT ` + studentColumns + ` FROM students WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY last_name COLLATE NOCASE, first_name COLLATE NOCASE`

	students := make([]student.Student, 0)
	if err := repo.getExec(exec).Select(ctx, &students, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	var std student.Student
	err := repo.getExec(exec).Get(ctx, &std, `SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return std, nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	_, err := repo.getExec(exec).Run(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		std.ID, std.TeacherID, std.FirstName, std.LastName, std.RegistrationNumber, std.BirthDate, std.Gender,
		std.Level, std.Grade, std.GroupName, std.CreatedAt.UTC(), std.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return student.Student{}, student.ErrTeacherNotFound
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	res, err := repo.getExec(exec).Run(ctx, `
		UPDATE students SET
			first_name = ?, last_name = ?, registration_number = ?, birth_date = ?, gender = ?,
			level = ?, grade = ?, group_name = ?, updated_at = ?
		WHERE id = ?`,
		std.FirstName, std.LastName, std.RegistrationNumber, std.BirthDate, std.Gender,
		std.Level, std.Grade, std.GroupName, std.UpdatedAt.UTC(), std.ID,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return std, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).Run(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}
