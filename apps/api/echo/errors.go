package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/core/session"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/taxonomy"
	"github.com/aryaedu/tutor/core/video"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "session not authenticated")
	errSessionNotFound = echo.NewHTTPError(http.StatusUnauthorized, "session not found, please start a new one")
	errSessionExpired  = echo.NewHTTPError(http.StatusUnauthorized, "session expired, please login again")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "unauthorized access")
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")

	notFoundErrors = map[error]struct{}{
		admin.ErrNotFound:       {},
		student.ErrNotFound:     {},
		taxonomy.ErrNotFound:    {},
		taxonomy.ErrUnknownKind: {},
		video.ErrNotFound:       {},
		progress.ErrNotFound:    {},
	}

	authErrorCodes = map[error]int{
		auth.ErrInvalidCredentials:   http.StatusBadRequest,
		auth.ErrNotRegistered:        http.StatusBadRequest,
		auth.ErrPasswordNotSet:       http.StatusBadRequest,
		auth.ErrPasswordMismatch:     http.StatusBadRequest,
		auth.ErrInvalidOTP:           http.StatusBadRequest,
		auth.ErrOTPExpired:           http.StatusBadRequest,
		auth.ErrAccessDisabled:       http.StatusForbidden,
		session.ErrInvalidTransition: http.StatusBadRequest,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
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
		case *core.DuplicateError:
			code = http.StatusConflict
			message = map[string]string{origErr.Field: origErr.Message}
		default:
			if _, ok := notFoundErrors[origErr]; ok {
				code = http.StatusNotFound
				message = origErr.Error()
				break
			}
			if c, ok := authErrorCodes[origErr]; ok {
				code = c
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if id, idErr := getContextIdentity(ctx); idErr == nil {
				args = append(args, id)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
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
