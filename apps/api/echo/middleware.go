package echoapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tamkeen/tamkeen/core/auth"
)

const contextClaimsKey = "claims"

var (
	errMissingToken = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// tokenMiddleware parses the bearer token, when one is sent, and stores its claims in the context.
// Whether a token is required depends on the operation and is decided by authorize.
func tokenMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(ctx)
			}
			token := strings.TrimPrefix(header, "Bearer ")
			if token == header || token == "" {
				return errMissingToken
			}
			claims, err := auth.ParseToken(token, secret)
			if err != nil {
				return errInvalidToken
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Get(contextClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// authorize checks the caller against the access level of an operation.
// Without requireAuth, a missing token falls back to the signed in session of the desktop app.
func (s *Server) authorize(ctx echo.Context, level access) error {
	if level == accessPublic {
		return nil
	}
	claims, ok := getContextClaims(ctx)
	if !ok {
		if s.conf.Server.RequireAuth {
			return errMissingToken
		}
		if level == accessUser {
			return nil
		}
		sess, err := s.deps.AuthSvc.CurrentSession(ctx.Request().Context())
		if err != nil {
			return errForbidden
		}
		isAdmin, err := s.deps.AuthSvc.IsAdmin(ctx.Request().Context(), sess.UserID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return errForbidden
		}
		return nil
	}
	if level == accessAdmin && !claims.IsAdmin() {
		return errForbidden
	}
	return nil
}

// checkOwner restricts teachers to their own records; admins may act for anyone.
func checkOwner(ctx echo.Context, teacherID string) error {
	claims, ok := getContextClaims(ctx)
	if !ok || claims.IsAdmin() || claims.Subject == teacherID {
		return nil
	}
	return errForbidden
}

// checkRecordOwner resolves the teacher owning a stored record and applies checkOwner to it.
// A record that does not exist is left to the operation to report.
func checkRecordOwner(ctx echo.Context, owner func(ctx context.Context) (string, error)) error {
	if _, ok := getContextClaims(ctx); !ok {
		return nil
	}
	teacherID, err := owner(ctx.Request().Context())
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	return checkOwner(ctx, teacherID)
}
