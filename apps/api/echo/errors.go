package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/homework"
	"github.com/trezcool/riyaaz/core/practice"
	"github.com/trezcool/riyaaz/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")

	// domain errors answered with {"error": err.Error()}
	domainErrorCodes = []struct {
		err  error
		code int
	}{
		{classroom.ErrNotFound, http.StatusNotFound},
		{classroom.ErrInvalidJoinCode, http.StatusNotFound},
		{classroom.ErrNotEnrolled, http.StatusForbidden},
		{classroom.ErrAlreadyEnrolled, http.StatusBadRequest},
		{homework.ErrNotFound, http.StatusNotFound},
		{homework.ErrSubmissionNotFound, http.StatusNotFound},
		{homework.ErrAlreadySubmitted, http.StatusBadRequest},
		{practice.ErrFutureDate, http.StatusBadRequest},
		{practice.ErrMendConflict, http.StatusConflict},
		{user.ErrNotFound, http.StatusNotFound},
	}
)

// domainErrorCode looks err up by identity.
func domainErrorCode(err error) (int, bool) {
	for _, de := range domainErrorCodes {
		if err == de.err {
			return de.code, true
		}
	}
	return 0, false
}

// mendErrorBody renders a refused streak mend.
func mendErrorBody(err *practice.MendError) (int, echo.Map) {
	body := echo.Map{"error": string(err.Kind), "message": err.Message}
	if err.Kind == practice.KindInsufficientPoints {
		body["required"] = err.Required
		body["available"] = err.Available
	}
	if err.Kind == practice.KindNotEnrolled {
		return http.StatusForbidden, body
	}
	return http.StatusBadRequest, body
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if status, ok := domainErrorCode(cause); ok {
			code, message = status, cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *practice.MendError:
				code, message = mendErrorBody(origErr)
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Username = claims.Username
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if !ctx.Response().Committed {
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
}
