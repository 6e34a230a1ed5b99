package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core/user"
)

// professorMiddleware re-derives the caller's role from storage; the JWT
// role claim is never trusted on its own.
func professorMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleProfessor)
}

func studentMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleStudent)
}

func roleMiddleware(svc *user.Service, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			if usr.Role == role {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
