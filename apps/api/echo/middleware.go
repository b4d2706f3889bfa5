package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core/schedule"
)

var contextObjectKey = "object"

// entryMiddleware loads the schedule entry named by the `:id` path param into the context.
func entryMiddleware(svc schedule.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			entry, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == schedule.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding schedule entry by ID")
			}
			ctx.Set(contextObjectKey, entry)
			return next(ctx)
		}
	}
}
