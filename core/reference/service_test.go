package reference_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/reference"
	sqlxrepos "github.com/tamkeen/tamkeen/storage/database/sqlx"
	testutil "github.com/tamkeen/tamkeen/tests"
)

func setup(t *testing.T) (*reference.Service, core.DB) {
	t.Helper()
	db := testutil.PrepareDB(t)
	validate, _ := testutil.NewValidator()
	return reference.NewService(db, sqlxrepos.NewReferenceRepository(db), validate, testutil.NewLogger()), db
}

func count(t *testing.T, db core.DB, table string) int {
	t.Helper()
	var n int
	if err := db.Get(context.Background(), &n, `SELECT COUNT(*) FROM `+table); err != nil {
		t.Fatalf("counting %s failed: %v", table, err)
	}
	return n
}

func TestService_catalog(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	wilayas, err := svc.Wilayas(ctx)
	require.NoError(t, err)
	require.Len(t, wilayas, 58)
	assert.Equal(t, "01", wilayas[0].Code)
	assert.Equal(t, "El Meniaa", wilayas[57].NameFr)

	levels, err := svc.Levels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, "primary", levels[0].Code)

	years, err := svc.Years(ctx, 2)
	require.NoError(t, err)
	require.Len(t, years, 4)
	assert.Equal(t, "1AM", years[0].Code)

	streams, err := svc.Streams(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, streams, 2)

	subjects, err := svc.Subjects(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, subjects, 10)

	none, err := svc.Years(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Len(t, none, 0)

	tests := []struct {
		name  string
		query reference.CurriculumQuery
		want  int
	}{
		{name: "whole year", query: reference.CurriculumQuery{YearID: 6}, want: 7},
		{name: "one subject", query: reference.CurriculumQuery{YearID: 6, SubjectID: null.Int64From(10)}, want: 5},
		{name: "stream", query: reference.CurriculumQuery{YearID: 10, StreamID: null.Int64From(1)}, want: 1},
		{name: "other stream", query: reference.CurriculumQuery{YearID: 10, StreamID: null.Int64From(2)}, want: 0},
		{name: "shared links match any stream", query: reference.CurriculumQuery{YearID: 6, StreamID: null.Int64From(1)}, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := svc.Curriculum(ctx, tt.query)
			require.NoError(t, err)
			assert.Len(t, links, tt.want)
		})
	}

	links, err := svc.Curriculum(ctx, reference.CurriculumQuery{YearID: 6, SubjectID: null.Int64From(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, links[0].SectionNumber)
	assert.Equal(t, 2, links[4].SectionNumber, "links are not in programme order")

	_, err = svc.Curriculum(ctx, reference.CurriculumQuery{})
	assert.Error(t, err)

	comps, err := svc.Competencies(ctx, 10, 6)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "MATH-1AM-C1", comps[0].Code)
}

func TestService_Import(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	subjects, links, comps := count(t, db, "subjects"), count(t, db, "curriculum"), count(t, db, "competencies")

	bundle := reference.Bundle{
		Subjects: []reference.Subject{{LevelID: 2, Code: " robotique ", NameAr: "روبوتيك", NameFr: "Robotique"}},
		Curriculum: []reference.CurriculumLink{{
			YearID: 6, SubjectID: 10, SectionNumber: 3, SectionTitle: "Géométrie",
			UnitNumber: 1, UnitTitle: "Symétrie", SessionNumber: 1, SessionTitle: "Symétrie axiale",
		}},
		Competencies: []reference.Competency{{SubjectID: 10, YearID: 6, Code: "MATH-1AM-C3", Description: "Symétrie"}},
	}
	report, err := svc.Import(ctx, bundle)
	require.NoError(t, err)
	assert.Equal(t, reference.ImportReport{Subjects: 1, Curriculum: 1, Competencies: 1}, report)

	// importing the same rows again updates them in place
	bundle.Subjects[0].NameFr = "Robotique éducative"
	bundle.Curriculum[0].SessionTitle = "La symétrie axiale"
	_, err = svc.Import(ctx, bundle)
	require.NoError(t, err)
	assert.Equal(t, subjects+1, count(t, db, "subjects"))
	assert.Equal(t, links+1, count(t, db, "curriculum"))
	assert.Equal(t, comps+1, count(t, db, "competencies"))

	levelSubjects, err := svc.Subjects(ctx, 2)
	require.NoError(t, err)
	last := levelSubjects[len(levelSubjects)-1]
	assert.Equal(t, "robotique", last.Code)
	assert.Equal(t, "Robotique éducative", last.NameFr)

	tests := []struct {
		name    string
		bundle  reference.Bundle
		wantErr error
	}{
		{name: "empty bundle", bundle: reference.Bundle{}, wantErr: reference.ErrEmptyBundle},
		{
			name: "unknown level",
			bundle: reference.Bundle{
				Subjects: []reference.Subject{
					{LevelID: 3, Code: "philo", NameAr: "فلسفة"},
					{LevelID: 99, Code: "x", NameAr: "x"},
				},
			},
			wantErr: reference.ErrNotFound,
		},
		{
			name: "unknown competency subject",
			bundle: reference.Bundle{
				Subjects:     []reference.Subject{{LevelID: 3, Code: "philo", NameAr: "فلسفة"}},
				Competencies: []reference.Competency{{SubjectID: 9999, YearID: 6, Code: "X", Description: "x"}},
			},
			wantErr: reference.ErrNotFound,
		},
		{
			name: "invalid row",
			bundle: reference.Bundle{
				Subjects:   []reference.Subject{{LevelID: 3, Code: "philo", NameAr: "فلسفة"}},
				Curriculum: []reference.CurriculumLink{{YearID: 6, SubjectID: 10, SectionNumber: 0, UnitNumber: 1, SessionNumber: 1, SessionTitle: "x"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, tt.bundle)
			if err == nil {
				t.Fatal("Import() error = nil; want an error")
			}
			cause := errors.Cause(err)
			if vErr, ok := cause.(*core.ValidationError); ok && vErr.Err != nil {
				cause = vErr.Err
			}
			if tt.wantErr != nil && cause != tt.wantErr {
				t.Errorf("Import() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	assert.Equal(t, subjects+1, count(t, db, "subjects"), "a failed import left rows behind")
	assert.Equal(t, links+1, count(t, db, "curriculum"))
	assert.Equal(t, comps+1, count(t, db, "competencies"))
}
