package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/core/grading"
	"github.com/tamkeen/tamkeen/core/journal"
	"github.com/tamkeen/tamkeen/core/reference"
	"github.com/tamkeen/tamkeen/core/student"
)

var errUnknownOp = echo.NewHTTPError(http.StatusNotFound, "unknown operation")

// expected are domain errors whose message is safe to hand back to the UI.
var expected = map[error]bool{
	auth.ErrNotFound:            true,
	auth.ErrEmailExists:         true,
	auth.ErrInvalidCredentials:  true,
	auth.ErrExternalAccount:     true,
	auth.ErrInvalidRole:         true,
	auth.ErrNoSession:           true,
	auth.ErrInvalidToken:        true,
	auth.ErrIdentityUnavailable: true,
	auth.ErrUnverifiedEmail:     true,
	journal.ErrNotFound:         true,
	journal.ErrSessionNotFound:  true,
	journal.ErrTeacherNotFound:  true,
	student.ErrNotFound:         true,
	student.ErrTeacherNotFound:  true,
	grading.ErrNotFound:         true,
	grading.ErrStudentNotFound:  true,
	grading.ErrForeignStudent:   true,
	reference.ErrNotFound:       true,
	reference.ErrEmptyBundle:    true,
}

func isExpected(err error) bool {
	return expected[errors.Cause(err)]
}

func isNotFound(err error) bool {
	switch errors.Cause(err) {
	case auth.ErrNotFound, journal.ErrNotFound, journal.ErrSessionNotFound, student.ErrNotFound,
		grading.ErrNotFound, grading.ErrStudentNotFound, reference.ErrNotFound, auth.ErrNoSession:
		return true
	}
	return false
}

// errorMessage turns err into the text shown to the user; unexpected errors are logged and masked.
func (s *Server) errorMessage(ctx echo.Context, err error) string {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors, *core.ValidationError:
		return core.TranslateError(origErr, s.translator)
	}
	if isExpected(err) {
		return errors.Cause(err).Error()
	}
	s.logError(ctx, "invoking "+ctx.Param("op"), err)
	return http.StatusText(http.StatusInternalServerError)
}

func (s *Server) logError(ctx echo.Context, msg string, err error) {
	var prof auth.Profile
	if claims, ok := getContextClaims(ctx); ok {
		prof.ID = claims.Subject
		prof.Email = claims.Email
	}
	s.log.Error(msg, errors.Wrap(err, msg), prof)
	if core.IsShutdown(err) {
		s.signalShutdown()
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case validator.ValidationErrors, *core.ValidationError:
			code = http.StatusBadRequest
			message = core.TranslateError(origErr, translator)
		default:
			if isExpected(err) {
				code = http.StatusBadRequest
				message = errors.Cause(err).Error()
				break
			}
			// any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(code)

			var prof auth.Profile
			if claims, ok := getContextClaims(ctx); ok {
				prof.ID = claims.Subject
				prof.Email = claims.Email
			}
			logger.Error(message, errors.Wrap(err, message), prof)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, echo.Map{"error": message})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
