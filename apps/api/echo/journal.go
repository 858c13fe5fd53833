package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/tamkeen/tamkeen/core/journal"
)

type (
	dayBody struct {
		TeacherID string `json:"teacherId"`
		Date      string `json:"date"`
	}

	notesBody struct {
		TeacherID string `json:"teacherId"`
		Date      string `json:"date"`
		Notes     string `json:"notes"`
	}

	sessionUpdateBody struct {
		ID string `json:"id"`
		journal.SessionFields
	}
)

func (s *Server) journalOps() map[string]operation {
	return map[string]operation{
		"journal.getDaily":      {accessUser, s.getDailyJournal},
		"journal.getRange":      {accessUser, s.getJournalRange},
		"journal.addSession":    {accessUser, s.addSession},
		"journal.updateSession": {accessUser, s.updateSession},
		"journal.deleteSession": {accessUser, s.deleteSession},
		"journal.updateNotes":   {accessUser, s.updateJournalNotes},
	}
}

func (s *Server) getDailyJournal(ctx echo.Context) error {
	var body dayBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := checkOwner(ctx, body.TeacherID); err != nil {
		return err
	}
	dj, err := s.deps.JournalSvc.GetDaily(ctx.Request().Context(), body.TeacherID, body.Date)
	return respondNullable(ctx, dj, err)
}

func (s *Server) getJournalRange(ctx echo.Context) error {
	var dr journal.DateRange
	if err := bind(ctx, &dr); err != nil {
		return err
	}
	if err := checkOwner(ctx, dr.TeacherID); err != nil {
		return err
	}
	journals, err := s.deps.JournalSvc.GetRange(ctx.Request().Context(), dr)
	return respondRows(ctx, journals, err)
}

func (s *Server) addSession(ctx echo.Context) error {
	var ns journal.NewSession
	if err := bind(ctx, &ns); err != nil {
		return err
	}
	if err := checkOwner(ctx, ns.TeacherID); err != nil {
		return err
	}
	_, err := s.deps.JournalSvc.AddSession(ctx.Request().Context(), ns)
	return s.respondBool(ctx, err)
}

func (s *Server) updateSession(ctx echo.Context) error {
	var body sessionUpdateBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := s.checkSessionOwner(ctx, body.ID); err != nil {
		return err
	}
	_, err := s.deps.JournalSvc.UpdateSession(ctx.Request().Context(), body.ID, body.SessionFields)
	return s.respondBool(ctx, err)
}

func (s *Server) deleteSession(ctx echo.Context) error {
	var body idBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := s.checkSessionOwner(ctx, body.ID); err != nil {
		return err
	}
	return s.respondBool(ctx, s.deps.JournalSvc.DeleteSession(ctx.Request().Context(), body.ID))
}

func (s *Server) updateJournalNotes(ctx echo.Context) error {
	var body notesBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := checkOwner(ctx, body.TeacherID); err != nil {
		return err
	}
	_, err := s.deps.JournalSvc.UpdateJournalNotes(ctx.Request().Context(), body.TeacherID, body.Date, body.Notes)
	return s.respondBool(ctx, err)
}

func (s *Server) checkSessionOwner(ctx echo.Context, id string) error {
	return checkRecordOwner(ctx, func(c context.Context) (string, error) {
		return s.deps.JournalSvc.SessionOwner(c, id)
	})
}
