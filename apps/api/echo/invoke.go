package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/core/reference"
)

type access int

const (
	accessPublic access = iota
	accessUser
	accessAdmin
)

type operation struct {
	access access
	handle echo.HandlerFunc
}

// result is the envelope of operations that report success and a user facing error.
type result struct {
	Success bool                    `json:"success"`
	Error   string                  `json:"error,omitempty"`
	Session *auth.Session           `json:"session,omitempty"`
	UserID  string                  `json:"userId,omitempty"`
	ID      string                  `json:"id,omitempty"`
	Report  *reference.ImportReport `json:"report,omitempty"`
}

type idBody struct {
	ID string `json:"id"`
}

// operations is the table of everything the UI can invoke.
func (s *Server) operations() map[string]operation {
	ops := make(map[string]operation)
	for _, group := range []map[string]operation{
		s.authOps(),
		s.journalOps(),
		s.studentOps(),
		s.gradingOps(),
		s.referenceOps(),
		s.syncOps(),
	} {
		for name, op := range group {
			ops[name] = op
		}
	}
	return ops
}

// invoke dispatches POST /v1/invoke/:op. Operations run one at a time.
func (s *Server) invoke(ctx echo.Context) error {
	op, ok := s.ops[ctx.Param("op")]
	if !ok {
		return errUnknownOp
	}
	if err := s.authorize(ctx, op.access); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return op.handle(ctx)
}

func bind(ctx echo.Context, dest interface{}) error {
	if err := ctx.Bind(dest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	return nil
}

// respondBool answers true, or logs err and answers false.
func (s *Server) respondBool(ctx echo.Context, err error) error {
	if err != nil {
		s.log.Warn("invoking "+ctx.Param("op"), err)
		return ctx.JSON(http.StatusOK, false)
	}
	return ctx.JSON(http.StatusOK, true)
}

// respondNullable answers v, or null when the record does not exist.
func respondNullable(ctx echo.Context, v interface{}, err error) error {
	if err != nil {
		if isNotFound(err) {
			return ctx.JSON(http.StatusOK, nil)
		}
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func respondRows(ctx echo.Context, rows interface{}, err error) error {
	if err != nil {
		return errors.Wrap(err, "querying rows")
	}
	return ctx.JSON(http.StatusOK, rows)
}

// respondResult fills res with the outcome of err and answers it.
func (s *Server) respondResult(ctx echo.Context, res result, err error) error {
	if err != nil {
		return ctx.JSON(http.StatusOK, result{Error: s.errorMessage(ctx, err)})
	}
	res.Success = true
	return ctx.JSON(http.StatusOK, res)
}
