package database

import (
	"context"
	"embed"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/reference"
)

//go:embed fixtures/*.json
var fixtures embed.FS

type (
	educationFixture struct {
		Levels  []reference.Level  `json:"levels"`
		Years   []reference.Year   `json:"years"`
		Streams []reference.Stream `json:"streams"`
	}

	curriculumFixture struct {
		Curriculum   []reference.CurriculumLink `json:"curriculum"`
		Competencies []reference.Competency     `json:"competencies"`
	}

	// dataset fills one reference table from the bundled fixtures.
	dataset struct {
		table string
		load  func(ctx context.Context, tx core.DBExecutor) (int, error)
	}
)

func readFixture(name string, dest interface{}) error {
	data, err := fixtures.ReadFile("fixtures/" + name)
	if err != nil {
		return errors.Wrapf(err, "reading fixture %s", name)
	}
	return errors.Wrapf(json.Unmarshal(data, dest), "decoding fixture %s", name)
}

// datasets are ordered parents first.
var datasets = []dataset{
	{TableWilayas, func(ctx context.Context, tx core.DBExecutor) (int, error) {
		var rows []reference.Wilaya
		if err := readFixture("wilayas.json", &rows); err != nil {
			return 0, err
		}
		for _, w := range rows {
			if _, err := tx.Run(ctx, `INSERT INTO wilayas (id, code, name_ar, name_fr) VALUES (?, ?, ?, ?)`,
				w.ID, w.Code, w.NameAr, w.NameFr); err != nil {
				return 0, err
			}
		}
		return len(rows), nil
	}},
	{TableEducationLevels, func(ctx context.Context, tx core.DBExecutor) (int, error) {
		var fx educationFixture
		if err := readFixture("education.json", &fx); err != nil {
			return 0, err
		}
		for _, l := range fx.Levels {
			if _, err := tx.Run(ctx, `INSERT INTO education_levels (id, code, name_ar, name_fr, sort_order) VALUES (?, ?, ?, ?, ?)`,
				l.ID, l.Code, l.NameAr, l.NameFr, l.SortOrder); err != nil {
				return 0, err
			}
		}
		for _, y := range fx.Years {
			if _, err := tx.Run(ctx, `INSERT INTO education_years (id, level_id, code, name_ar, name_fr, year_number) VALUES (?, ?, ?, ?, ?, ?)`,
				y.ID, y.LevelID, y.Code, y.NameAr, y.NameFr, y.YearNumber); err != nil {
				return 0, err
			}
		}
		for _, s := range fx.Streams {
			if _, err := tx.Run(ctx, `INSERT INTO streams (id, year_id, code, name_ar, name_fr) VALUES (?, ?, ?, ?, ?)`,
				s.ID, s.YearID, s.Code, s.NameAr, s.NameFr); err != nil {
				return 0, err
			}
		}
		return len(fx.Levels) + len(fx.Years) + len(fx.Streams), nil
	}},
	{TableSubjects, func(ctx context.Context, tx core.DBExecutor) (int, error) {
		var rows []reference.Subject
		if err := readFixture("subjects.json", &rows); err != nil {
			return 0, err
		}
		for _, s := range rows {
			if _, err := tx.Run(ctx, `INSERT INTO subjects (id, level_id, code, name_ar, name_fr) VALUES (?, ?, ?, ?, ?)`,
				s.ID, s.LevelID, s.Code, s.NameAr, s.NameFr); err != nil {
				return 0, err
			}
		}
		return len(rows), nil
	}},
	{TableCurriculum, func(ctx context.Context, tx core.DBExecutor) (int, error) {
		var fx curriculumFixture
		if err := readFixture("curriculum.json", &fx); err != nil {
			return 0, err
		}
		for _, c := range fx.Curriculum {
			if _, err := tx.Run(ctx, `
				INSERT INTO curriculum (id, year_id, stream_id, subject_id, section_number, section_title,
					unit_number, unit_title, session_number, session_title, competency_code)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, c.YearID, c.StreamID, c.SubjectID, c.SectionNumber, c.SectionTitle,
				c.UnitNumber, c.UnitTitle, c.SessionNumber, c.SessionTitle, c.CompetencyCode); err != nil {
				return 0, err
			}
		}
		for _, c := range fx.Competencies {
			if _, err := tx.Run(ctx, `INSERT INTO competencies (id, subject_id, year_id, code, description) VALUES (?, ?, ?, ?, ?)`,
				c.ID, c.SubjectID, c.YearID, c.Code, c.Description); err != nil {
				return 0, err
			}
		}
		return len(fx.Curriculum) + len(fx.Competencies), nil
	}},
}

// Seed loads the bundled reference datasets into the tables that are still empty.
func Seed(ctx context.Context, db core.DB, logger core.Logger) error {
	return db.WithinTx(ctx, func(tx core.DBExecutor) error {
		for _, ds := range datasets {
			var count int
			if err := tx.Get(ctx, &count, `SELECT COUNT(*) FROM `+ds.table); err != nil {
				return errors.Wrapf(err, "counting %s", ds.table)
			}
			if count > 0 {
				continue
			}
			n, err := ds.load(ctx, tx)
			if err != nil {
				return errors.Wrapf(err, "seeding %s", ds.table)
			}
			logger.Info("reference data seeded", map[string]interface{}{"table": ds.table, "rows": n})
		}
		return nil
	})
}
