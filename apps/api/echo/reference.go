package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/tamkeen/tamkeen/core/reference"
)

type (
	levelBody struct {
		LevelID int64 `json:"levelId"`
	}

	yearBody struct {
		YearID int64 `json:"yearId"`
	}

	competencyBody struct {
		SubjectID int64 `json:"subjectId"`
		YearID    int64 `json:"yearId"`
	}

	clearPendingBody struct {
		IDs []int64 `json:"ids"`
	}
)

func (s *Server) referenceOps() map[string]operation {
	return map[string]operation{
		"repository.getWilayas":      {accessUser, s.getWilayas},
		"repository.getLevels":       {accessUser, s.getLevels},
		"repository.getYears":        {accessUser, s.getYears},
		"repository.getStreams":      {accessUser, s.getStreams},
		"repository.getSubjects":     {accessUser, s.getSubjects},
		"repository.getCurriculum":   {accessUser, s.getCurriculum},
		"repository.getCompetencies": {accessUser, s.getCompetencies},
		"admin.import":               {accessAdmin, s.importReference},
	}
}

func (s *Server) syncOps() map[string]operation {
	return map[string]operation{
		"sync.getPending":   {accessUser, s.getPending},
		"sync.clearPending": {accessUser, s.clearPending},
	}
}

func (s *Server) getWilayas(ctx echo.Context) error {
	rows, err := s.deps.ReferenceSvc.Wilayas(ctx.Request().Context())
	return respondRows(ctx, rows, err)
}

func (s *Server) getLevels(ctx echo.Context) error {
	rows, err := s.deps.ReferenceSvc.Levels(ctx.Request().Context())
	return respondRows(ctx, rows, err)
}

func (s *Server) getYears(ctx echo.Context) error {
	var body levelBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	rows, err := s.deps.ReferenceSvc.Years(ctx.Request().Context(), body.LevelID)
	return respondRows(ctx, rows, err)
}

func (s *Server) getStreams(ctx echo.Context) error {
	var body yearBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	rows, err := s.deps.ReferenceSvc.Streams(ctx.Request().Context(), body.YearID)
	return respondRows(ctx, rows, err)
}

func (s *Server) getSubjects(ctx echo.Context) error {
	var body levelBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	rows, err := s.deps.ReferenceSvc.Subjects(ctx.Request().Context(), body.LevelID)
	return respondRows(ctx, rows, err)
}

func (s *Server) getCurriculum(ctx echo.Context) error {
	var q reference.CurriculumQuery
	if err := bind(ctx, &q); err != nil {
		return err
	}
	rows, err := s.deps.ReferenceSvc.Curriculum(ctx.Request().Context(), q)
	return respondRows(ctx, rows, err)
}

func (s *Server) getCompetencies(ctx echo.Context) error {
	var body competencyBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	rows, err := s.deps.ReferenceSvc.Competencies(ctx.Request().Context(), body.SubjectID, body.YearID)
	return respondRows(ctx, rows, err)
}

func (s *Server) importReference(ctx echo.Context) error {
	var bundle reference.Bundle
	if err := bind(ctx, &bundle); err != nil {
		return err
	}
	report, err := s.deps.ReferenceSvc.Import(ctx.Request().Context(), bundle)
	return s.respondResult(ctx, result{Report: &report}, err)
}

func (s *Server) getPending(ctx echo.Context) error {
	items, err := s.deps.Queue.GetPending(ctx.Request().Context())
	return respondRows(ctx, items, err)
}

func (s *Server) clearPending(ctx echo.Context) error {
	var body clearPendingBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	_, err := s.deps.Queue.Remove(ctx.Request().Context(), body.IDs)
	return s.respondBool(ctx, err)
}
