package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/tamkeen/tamkeen/core/student"
)

type (
	rosterBody struct {
		TeacherID string `json:"teacherId"`
		student.Filter
	}

	studentBatchBody struct {
		Students []student.NewStudent `json:"students"`
	}

	studentUpdateBody struct {
		ID string `json:"id"`
		student.Fields
	}
)

func (s *Server) studentOps() map[string]operation {
	return map[string]operation{
		"student.getAll":  {accessUser, s.getStudents},
		"student.get":     {accessUser, s.getStudent},
		"student.add":     {accessUser, s.addStudent},
		"student.addMany": {accessUser, s.addStudents},
		"student.update":  {accessUser, s.updateStudent},
		"student.delete":  {accessUser, s.deleteStudent},
	}
}

func (s *Server) getStudents(ctx echo.Context) error {
	var body rosterBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := checkOwner(ctx, body.TeacherID); err != nil {
		return err
	}
	students, err := s.deps.StudentSvc.GetAll(ctx.Request().Context(), body.TeacherID, body.Filter)
	return respondRows(ctx, students, err)
}

func (s *Server) getStudent(ctx echo.Context) error {
	var body idBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	std, err := s.deps.StudentSvc.GetByID(ctx.Request().Context(), body.ID)
	if err == nil {
		if err := checkOwner(ctx, std.TeacherID); err != nil {
			return err
		}
	}
	return respondNullable(ctx, std, err)
}

func (s *Server) addStudent(ctx echo.Context) error {
	var ns student.NewStudent
	if err := bind(ctx, &ns); err != nil {
		return err
	}
	if err := checkOwner(ctx, ns.TeacherID); err != nil {
		return err
	}
	_, err := s.deps.StudentSvc.Add(ctx.Request().Context(), ns)
	return s.respondBool(ctx, err)
}

func (s *Server) addStudents(ctx echo.Context) error {
	var body studentBatchBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	for _, ns := range body.Students {
		if err := checkOwner(ctx, ns.TeacherID); err != nil {
			return err
		}
	}
	_, err := s.deps.StudentSvc.AddMany(ctx.Request().Context(), body.Students)
	return s.respondBool(ctx, err)
}

func (s *Server) updateStudent(ctx echo.Context) error {
	var body studentUpdateBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := s.checkStudentOwner(ctx, body.ID); err != nil {
		return err
	}
	_, err := s.deps.StudentSvc.Update(ctx.Request().Context(), body.ID, body.Fields)
	return s.respondBool(ctx, err)
}

func (s *Server) deleteStudent(ctx echo.Context) error {
	var body idBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := s.checkStudentOwner(ctx, body.ID); err != nil {
		return err
	}
	return s.respondBool(ctx, s.deps.StudentSvc.Delete(ctx.Request().Context(), body.ID))
}

func (s *Server) checkStudentOwner(ctx echo.Context, id string) error {
	return checkRecordOwner(ctx, func(c context.Context) (string, error) {
		std, err := s.deps.StudentSvc.GetByID(c, id)
		return std.TeacherID, err
	})
}
