package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/tamkeen/tamkeen/core/grading"
)

func (s *Server) gradingOps() map[string]operation {
	return map[string]operation{
		"grading.get":    {accessUser, s.getGrades},
		"grading.save":   {accessUser, s.saveGrade},
		"grading.delete": {accessUser, s.deleteGrade},
	}
}

func (s *Server) getGrades(ctx echo.Context) error {
	var q grading.Query
	if err := bind(ctx, &q); err != nil {
		return err
	}
	if err := checkOwner(ctx, q.TeacherID); err != nil {
		return err
	}
	rows, err := s.deps.GradingSvc.Get(ctx.Request().Context(), q)
	return respondRows(ctx, rows, err)
}

func (s *Server) saveGrade(ctx echo.Context) error {
	var gi grading.GradeInput
	if err := bind(ctx, &gi); err != nil {
		return err
	}
	if err := checkOwner(ctx, gi.TeacherID); err != nil {
		return err
	}
	if err := s.checkStudentOwner(ctx, gi.StudentID); err != nil {
		return err
	}
	grd, err := s.deps.GradingSvc.Save(ctx.Request().Context(), gi)
	return s.respondResult(ctx, result{ID: grd.ID}, err)
}

func (s *Server) deleteGrade(ctx echo.Context) error {
	var body idBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	err := checkRecordOwner(ctx, func(c context.Context) (string, error) {
		grd, err := s.deps.GradingSvc.GetByID(c, body.ID)
		return grd.TeacherID, err
	})
	if err != nil {
		return err
	}
	return s.respondBool(ctx, s.deps.GradingSvc.Delete(ctx.Request().Context(), body.ID))
}
