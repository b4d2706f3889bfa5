package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/schedule"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errFileTooLarge         = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
)

// httpError maps the schedule service errors to HTTP errors.
func httpError(err error) error {
	switch cause := errors.Cause(err); cause {
	case schedule.ErrNotFound:
		return errHttpNotFound
	case schedule.ErrNothingToUndo, schedule.ErrNothingToRedo, schedule.ErrNoBackup:
		return echo.NewHTTPError(http.StatusConflict, cause.Error())
	}
	return err
}

// errorResponse turns err into a status code & a JSON-able message.
// Anything it does not recognize is a server error.
func errorResponse(err error, translator ut.Translator) (int, interface{}) {
	switch origErr := errors.Cause(httpError(err)).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing { // echo answers 400
			return http.StatusUnauthorized, origErr.Message
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		return http.StatusBadRequest, translatedFields(origErr, translator)
	case *core.ValidationError:
		if origErr.Err == nil && origErr.Fields != nil {
			return http.StatusBadRequest, fieldMessages(origErr.Fields)
		}
		return http.StatusBadRequest, origErr.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func translatedFields(vErrs validator.ValidationErrors, translator ut.Translator) map[string]string {
	msgs := make(map[string]string, len(vErrs))
	for _, vErr := range vErrs {
		msgs[vErr.Field()] = vErr.Translate(translator)
	}
	return msgs
}

func fieldMessages(flds []core.FieldError) map[string]string {
	msgs := make(map[string]string, len(flds))
	for _, fld := range flds {
		msgs[fld.Field] = fld.Error
	}
	return msgs
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler of the API.
// Server errors are reported through logger (with the admin account when authenticated);
// a core.shutdown error also calls signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)

		if code == http.StatusInternalServerError {
			if _, isHTTPErr := errors.Cause(err).(*echo.HTTPError); !isHTTPErr {
				msg := http.StatusText(code)
				args := []interface{}{errors.Wrap(err, msg)}
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					args = append(args, core.LogPerson{ID: claims.Subject, Username: claims.Username})
				}
				logger.Error(msg, args...)

				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
			if ctx.Echo().Debug {
				message = err.Error()
			}
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
