package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tamkeen/tamkeen/core/auth"
)

type (
	loginBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	externalLoginBody struct {
		IDToken string `json:"idToken"`
	}

	profileUpdateBody struct {
		ID string `json:"id"`
		auth.ProfileUpdate
	}

	passwordChangeBody struct {
		ID string `json:"id"`
		auth.PasswordChange
	}
)

func (s *Server) authOps() map[string]operation {
	return map[string]operation{
		"auth.login":          {accessPublic, s.login},
		"auth.register":       {accessPublic, s.register},
		"auth.externalLogin":  {accessPublic, s.externalLogin},
		"auth.logout":         {accessPublic, s.logout},
		"auth.current":        {accessPublic, s.currentSession},
		"auth.getProfile":     {accessUser, s.getProfile},
		"auth.updateProfile":  {accessUser, s.updateProfile},
		"auth.changePassword": {accessUser, s.changePassword},
		"auth.isAdmin":        {accessUser, s.isAdmin},
		"auth.listProfiles":   {accessAdmin, s.listProfiles},
	}
}

func (s *Server) login(ctx echo.Context) error {
	var body loginBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	sess, err := s.deps.AuthSvc.Login(ctx.Request().Context(), body.Email, body.Password)
	return s.respondResult(ctx, result{Session: &sess}, err)
}

func (s *Server) register(ctx echo.Context) error {
	var reg auth.Registration
	if err := bind(ctx, &reg); err != nil {
		return err
	}
	sess, err := s.deps.AuthSvc.Register(ctx.Request().Context(), reg)
	return s.respondResult(ctx, result{UserID: sess.UserID, Session: &sess}, err)
}

func (s *Server) externalLogin(ctx echo.Context) error {
	var body externalLoginBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	sess, err := s.deps.AuthSvc.ExternalLogin(ctx.Request().Context(), body.IDToken)
	return s.respondResult(ctx, result{Session: &sess}, err)
}

func (s *Server) logout(ctx echo.Context) error {
	return s.respondBool(ctx, s.deps.AuthSvc.Logout(ctx.Request().Context()))
}

func (s *Server) currentSession(ctx echo.Context) error {
	sess, err := s.deps.AuthSvc.CurrentSession(ctx.Request().Context())
	return respondNullable(ctx, sess, err)
}

func (s *Server) getProfile(ctx echo.Context) error {
	var body idBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := checkOwner(ctx, body.ID); err != nil {
		return err
	}
	prof, err := s.deps.AuthSvc.GetProfile(ctx.Request().Context(), body.ID)
	return respondNullable(ctx, prof, err)
}

func (s *Server) updateProfile(ctx echo.Context) error {
	var body profileUpdateBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := checkOwner(ctx, body.ID); err != nil {
		return err
	}
	_, err := s.deps.AuthSvc.UpdateProfile(ctx.Request().Context(), body.ID, body.ProfileUpdate)
	return s.respondResult(ctx, result{}, err)
}

func (s *Server) changePassword(ctx echo.Context) error {
	var body passwordChangeBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	if err := checkOwner(ctx, body.ID); err != nil {
		return err
	}
	err := s.deps.AuthSvc.ChangePassword(ctx.Request().Context(), body.ID, body.PasswordChange)
	return s.respondResult(ctx, result{}, err)
}

func (s *Server) isAdmin(ctx echo.Context) error {
	var body idBody
	if err := bind(ctx, &body); err != nil {
		return err
	}
	ok, err := s.deps.AuthSvc.IsAdmin(ctx.Request().Context(), body.ID)
	if err != nil {
		s.log.Warn("checking admin role", err)
		return ctx.JSON(http.StatusOK, false)
	}
	return ctx.JSON(http.StatusOK, ok)
}

func (s *Server) listProfiles(ctx echo.Context) error {
	profs, err := s.deps.AuthSvc.ListProfiles(ctx.Request().Context())
	return respondRows(ctx, profs, err)
}
