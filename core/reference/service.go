package reference

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
)

var (
	// errors
	ErrNotFound    = errors.New("reference row not found")
	ErrEmptyBundle = errors.New("import bundle is empty")
)

type (
	Repository interface {
		QueryWilayas(ctx context.Context, exec ...core.DBExecutor) ([]Wilaya, error)
		QueryLevels(ctx context.Context, exec ...core.DBExecutor) ([]Level, error)
		QueryYears(ctx context.Context, levelID int64, exec ...core.DBExecutor) ([]Year, error)
		QueryStreams(ctx context.Context, yearID int64, exec ...core.DBExecutor) ([]Stream, error)
		QuerySubjects(ctx context.Context, levelID int64, exec ...core.DBExecutor) ([]Subject, error)
		QueryCurriculum(ctx context.Context, query CurriculumQuery, exec ...core.DBExecutor) ([]CurriculumLink, error)
		QueryCompetencies(ctx context.Context, subjectID, yearID int64, exec ...core.DBExecutor) ([]Competency, error)

		// UpsertSubject inserts sub or updates the subject with the same (level, code).
		UpsertSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		// UpsertCurriculumLink inserts link or updates the one at the same position in the programme.
		UpsertCurriculumLink(ctx context.Context, link CurriculumLink, exec ...core.DBExecutor) (CurriculumLink, error)
		// UpsertCompetency inserts comp or updates the one with the same (subject, year, code).
		UpsertCompetency(ctx context.Context, comp Competency, exec ...core.DBExecutor) (Competency, error)
	}

	Service struct {
		db       core.DB
		repo     Repository
		validate *validator.Validate
		log      core.Logger
	}
)

func NewService(db core.DB, repo Repository, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{db: db, repo: repo, validate: validate, log: logger}
}

func (svc *Service) Wilayas(ctx context.Context) ([]Wilaya, error) {
	return svc.repo.QueryWilayas(ctx)
}

func (svc *Service) Levels(ctx context.Context) ([]Level, error) {
	return svc.repo.QueryLevels(ctx)
}

func (svc *Service) Years(ctx context.Context, levelID int64) ([]Year, error) {
	return svc.repo.QueryYears(ctx, levelID)
}

func (svc *Service) Streams(ctx context.Context, yearID int64) ([]Stream, error) {
	return svc.repo.QueryStreams(ctx, yearID)
}

func (svc *Service) Subjects(ctx context.Context, levelID int64) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, levelID)
}

func (svc *Service) Curriculum(ctx context.Context, query CurriculumQuery) ([]CurriculumLink, error) {
	if err := svc.validate.Struct(query); err != nil {
		return nil, err
	}
	return svc.repo.QueryCurriculum(ctx, query)
}

func (svc *Service) Competencies(ctx context.Context, subjectID, yearID int64) ([]Competency, error) {
	return svc.repo.QueryCompetencies(ctx, subjectID, yearID)
}

// Import validates every row of the bundle then writes them all in one transaction.
// Nothing is written when any row fails.
func (svc *Service) Import(ctx context.Context, bundle Bundle) (ImportReport, error) {
	if err := bundle.Validate(svc.validate); err != nil {
		return ImportReport{}, err
	}

	var report ImportReport
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		for _, sub := range bundle.Subjects {
			if _, err := svc.repo.UpsertSubject(ctx, sub, tx); err != nil {
				return errors.Wrapf(err, "importing subject %s", sub.Code)
			}
			report.Subjects++
		}
		for _, link := range bundle.Curriculum {
			if _, err := svc.repo.UpsertCurriculumLink(ctx, link, tx); err != nil {
				return errors.Wrapf(err, "importing curriculum session %d.%d.%d",
					link.SectionNumber, link.UnitNumber, link.SessionNumber)
			}
			report.Curriculum++
		}
		for _, comp := range bundle.Competencies {
			if _, err := svc.repo.UpsertCompetency(ctx, comp, tx); err != nil {
				return errors.Wrapf(err, "importing competency %s", comp.Code)
			}
			report.Competencies++
		}
		return nil
	})
	if err != nil {
		svc.log.Error("importing reference data", err)
		return ImportReport{}, err
	}
	svc.log.Info("reference data imported", map[string]interface{}{
		"subjects":     report.Subjects,
		"curriculum":   report.Curriculum,
		"competencies": report.Competencies,
	})
	return report, nil
}
