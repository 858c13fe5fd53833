package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/reference"
	"github.com/tamkeen/tamkeen/storage/database"
)

const curriculumColumns = `id, year_id, stream_id, subject_id, section_number, section_title, unit_number, unit_title,
	session_number, session_title, competency_code`

type referenceRepository struct {
	repository
}

var _ reference.Repository = (*referenceRepository)(nil) // interface compliance check

func NewReferenceRepository(exec core.DBExecutor) *referenceRepository {
	return &referenceRepository{repository{exec: exec}}
}

func (repo referenceRepository) QueryWilayas(ctx context.Context, exec ...core.DBExecutor) ([]reference.Wilaya, error) {
	wilayas := make([]reference.Wilaya, 0, 58)
	err := repo.getExec(exec).Select(ctx, &wilayas, `SELECT id, code, name_ar, name_fr FROM wilayas ORDER BY id`)
	return wilayas, errors.Wrap(err, "querying wilayas")
}

func (repo referenceRepository) QueryLevels(ctx context.Context, exec ...core.DBExecutor) ([]reference.Level, error) {
	levels := make([]reference.Level, 0)
	err := repo.getExec(exec).Select(ctx, &levels,
		`SELECT id, code, name_ar, name_fr, sort_order FROM education_levels ORDER BY sort_order, id`)
	return levels, errors.Wrap(err, "querying education levels")
}

func (repo referenceRepository) QueryYears(ctx context.Context, levelID int64, exec ...core.DBExecutor) ([]reference.Year, error) {
	years := make([]reference.Year, 0)
	err := repo.getExec(exec).Select(ctx, &years, `
		SELECT id, level_id, code, name_ar, name_fr, year_number FROM education_years
		WHERE level_id = ? ORDER BY year_number`, levelID)
	return years, errors.Wrap(err, "querying education years")
}

func (repo referenceRepository) QueryStreams(ctx context.Context, yearID int64, exec ...core.DBExecutor) ([]reference.Stream, error) {
	streams := make([]reference.Stream, 0)
	err := repo.getExec(exec).Select(ctx, &streams,
		`SELECT id, year_id, code, name_ar, name_fr FROM streams WHERE year_id = ? ORDER BY id`, yearID)
	return streams, errors.Wrap(err, "querying streams")
}

func (repo referenceRepository) QuerySubjects(ctx context.Context, levelID int64, exec ...core.DBExecutor) ([]reference.Subject, error) {
	subjects := make([]reference.Subject, 0)
	err := repo.getExec(exec).Select(ctx, &subjects,
		`SELECT id, level_id, code, name_ar, name_fr FROM subjects WHERE level_id = ? ORDER BY id`, levelID)
	return subjects, errors.Wrap(err, "querying subjects")
}

func (repo referenceRepository) QueryCurriculum(ctx context.Context, query reference.CurriculumQuery, exec ...core.DBExecutor) ([]reference.CurriculumLink, error) {
	q := `SELECT ` + curriculumColumns + ` FROM curriculum WHERE year_id = ?`
	args := []interface{}{query.YearID}
	// links shared by every stream of the year have no stream
	if query.StreamID.Valid {
		q += ` AND (stream_id = ? OR stream_id IS NULL)`
		args = append(args, query.StreamID.Int64)
	}
	if query.SubjectID.Valid {
		q += ` AND subject_id = ?`
		args = append(args, query.SubjectID.Int64)
	}
	q += ` ORDER BY subject_id, section_number, unit_number, session_number`

	links := make([]reference.CurriculumLink, 0)
	err := repo.getExec(exec).Select(ctx, &links, q, args...)
	return links, errors.Wrap(err, "querying curriculum")
}

func (repo referenceRepository) QueryCompetencies(ctx context.Context, subjectID, yearID int64, exec ...core.DBExecutor) ([]reference.Competency, error) {
	comps := make([]reference.Competency, 0)
	err := repo.getExec(exec).Select(ctx, &comps, `
		SELECT id, subject_id, year_id, code, description FROM competencies
		WHERE subject_id = ? AND year_id = ? ORDER BY code`, subjectID, yearID)
	return comps, errors.Wrap(err, "querying competencies")
}

func (repo referenceRepository) UpsertSubject(ctx context.Context, sub reference.Subject, exec ...core.DBExecutor) (reference.Subject, error) {
	ex := repo.getExec(exec)
	_, err := ex.Run(ctx, `
		INSERT INTO subjects (level_id, code, name_ar, name_fr) VALUES (?, ?, ?, ?)
		ON CONFLICT (level_id, code) DO UPDATE SET name_ar = excluded.name_ar, name_fr = excluded.name_fr`,
		sub.LevelID, sub.Code, sub.NameAr, sub.NameFr,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return reference.Subject{}, errors.Wrapf(reference.ErrNotFound, "education level %d", sub.LevelID)
		}
		return reference.Subject{}, errors.Wrap(err, "upserting subject")
	}
	err = ex.Get(ctx, &sub.ID, `SELECT id FROM subjects WHERE level_id = ? AND code = ?`, sub.LevelID, sub.Code)
	if err != nil {
		return reference.Subject{}, errors.Wrap(err, "getting subject id")
	}
	return sub, nil
}

func (repo referenceRepository) UpsertCurriculumLink(ctx context.Context, link reference.CurriculumLink, exec ...core.DBExecutor) (reference.CurriculumLink, error) {
	ex := repo.getExec(exec)
	// NULL streams never conflict under a UNIQUE constraint: look the position up instead
	err := ex.Get(ctx, &link.ID, `
		SELECT id FROM curriculum
		WHERE year_id = ? AND IFNULL(stream_id, 0) = ? AND subject_id = ?
			AND section_number = ? AND unit_number = ? AND session_number = ?`,
		link.YearID, link.StreamID.Int64, link.SubjectID, link.SectionNumber, link.UnitNumber, link.SessionNumber,
	)
	switch errors.Cause(err) {
	case nil:
		_, err = ex.Run(ctx, `
			UPDATE curriculum SET section_title = ?, unit_title = ?, session_title = ?, competency_code = ?
			WHERE id = ?`,
			link.SectionTitle, link.UnitTitle, link.SessionTitle, link.CompetencyCode, link.ID,
		)
		return link, errors.Wrap(err, "updating curriculum link")
	case sql.ErrNoRows:
	default:
		return reference.CurriculumLink{}, errors.Wrap(err, "finding curriculum link")
	}

	res, err := ex.Run(ctx, `
		INSERT INTO curriculum (year_id, stream_id, subject_id, section_number, section_title, unit_number,
			unit_title, session_number, session_title, competency_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		link.YearID, link.StreamID, link.SubjectID, link.SectionNumber, link.SectionTitle, link.UnitNumber,
		link.UnitTitle, link.SessionNumber, link.SessionTitle, link.CompetencyCode,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return reference.CurriculumLink{}, errors.Wrap(reference.ErrNotFound, "curriculum year, stream or subject")
		}
		return reference.CurriculumLink{}, errors.Wrap(err, "inserting curriculum link")
	}
	if link.ID, err = res.LastInsertId(); err != nil {
		return reference.CurriculumLink{}, errors.Wrap(err, "reading curriculum link id")
	}
	return link, nil
}

func (repo referenceRepository) UpsertCompetency(ctx context.Context, comp reference.Competency, exec ...core.DBExecutor) (reference.Competency, error) {
	ex := repo.getExec(exec)
	_, err := ex.Run(ctx, `
		INSERT INTO competencies (subject_id, year_id, code, description) VALUES (?, ?, ?, ?)
		ON CONFLICT (subject_id, year_id, code) DO UPDATE SET description = excluded.description`,
		comp.SubjectID, comp.YearID, comp.Code, comp.Description,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return reference.Competency{}, errors.Wrap(reference.ErrNotFound, "competency subject or year")
		}
		return reference.Competency{}, errors.Wrap(err, "upserting competency")
	}
	err = ex.Get(ctx, &comp.ID, `SELECT id FROM competencies WHERE subject_id = ? AND year_id = ? AND code = ?`,
		comp.SubjectID, comp.YearID, comp.Code)
	if err != nil {
		return reference.Competency{}, errors.Wrap(err, "getting competency id")
	}
	return comp, nil
}
