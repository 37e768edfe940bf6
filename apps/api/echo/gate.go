package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/session"
)

var errFillAllFields = core.NewValidationError(errors.New("please fill in all fields"))

type gateApi struct {
	gate     *auth.Gate
	adminSvc *admin.Service
	sessions *session.Store
	validate *validator.Validate
	logger   core.Logger
	newToken func(session.Session) (string, error)
}

func registerGateAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, opts *Options, newToken func(session.Session) (string, error)) {
	api := gateApi{
		gate:     opts.Gate,
		adminSvc: opts.AdminSvc,
		sessions: opts.Sessions,
		validate: opts.Validate,
		logger:   opts.Logger,
		newToken: newToken,
	}

	// sessionless endpoints
	// TODO: rate limit `/admin/password-reset` & `/student/otp`
	g.POST("/admin/password-reset", api.requestAdminPasswordReset)
	g.POST("/admin/password-reset-confirm", api.confirmAdminPasswordReset)

	sg := g.Group("", jwt, sess)
	sg.POST("/admin/login", api.adminLogin)
	sg.POST("/student/login", api.studentLogin)
	sg.POST("/student/register", api.register)
	sg.POST("/student/otp", api.requestOTP)
	sg.POST("/student/password-reset", api.resetStudentPassword)
	sg.POST("/logout", api.logout)
	sg.POST("/logout/cancel", api.cancelLogout)
}

// Handlers

func (api *gateApi) adminLogin(ctx echo.Context) error {
	var data auth.AdminLogin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminLogin")
	}
	if core.CleanString(data.Username) == "" || data.Password == "" {
		return errFillAllFields
	}

	id, err := api.gate.AuthenticateAdmin(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating admin")
	}
	return api.login(ctx, id)
}

func (api *gateApi) studentLogin(ctx echo.Context) error {
	var data auth.StudentLogin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentLogin")
	}
	if core.CleanString(data.Mobile) == "" || data.Password == "" {
		return errFillAllFields
	}

	id, err := api.gate.AuthenticateStudent(ctx.Request().Context(), data.Mobile, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating student")
	}
	return api.login(ctx, id)
}

// login moves the authenticated session to a new id; the token the client held before login stops working.
func (api *gateApi) login(ctx echo.Context, id auth.Identity) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	sess.Login(id, nowFunc().UTC())
	*sess = api.sessions.Rotate(*sess)

	token, err := api.newToken(*sess)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.logger.Info("logged in", id)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Screen: sess.Screen, Identity: id})
}

func (api *gateApi) register(ctx echo.Context) error {
	var data auth.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	if err = api.gate.RegisterStudent(ctx.Request().Context(), data.Mobile, data.Password, data.PasswordConfirm); err != nil {
		return errors.Wrap(err, "registering student")
	}
	sess.Registered()
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Registration successful! Please login with your credentials."})
}

func (api *gateApi) requestOTP(ctx echo.Context) error {
	var data auth.OTPRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPRequest")
	}

	sent, err := api.gate.RequestOTP(ctx.Request().Context(), data.Mobile)
	if err != nil {
		return errors.Wrap(err, "requesting OTP")
	}
	resp := OTPResponse{Sent: sent, Success: "OTP sent to your registered mobile number."}
	if !sent {
		resp.Success = "OTP generated but could not be sent, please try again later."
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *gateApi) resetStudentPassword(ctx echo.Context) error {
	var data auth.OTPPasswordReset
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPPasswordReset")
	}

	err := api.gate.ResetStudentPassword(ctx.Request().Context(), data.Mobile, data.OTP, data.Password, data.PasswordConfirm)
	if err != nil {
		return errors.Wrap(err, "resetting student password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset, please login with your new password."})
}

func (api *gateApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	var id *auth.Identity
	if sess.Identity != nil {
		cp := *sess.Identity
		id = &cp
	}
	if !sess.RequestLogout() {
		return ctx.JSON(http.StatusOK, LogoutResponse{
			Screen:  sess.Screen,
			Message: "Are you sure you want to logout? Request logout again to confirm.",
		})
	}
	if id != nil {
		api.logger.Info("logged out", id)
	}
	return ctx.JSON(http.StatusOK, LogoutResponse{LoggedOut: true, Screen: sess.Screen, Message: "Logged out successfully."})
}

func (api *gateApi) cancelLogout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	sess.CancelLogout()
	return ctx.JSON(http.StatusOK, LogoutResponse{Screen: sess.Screen, Message: "Logout cancelled."})
}

func (api *gateApi) requestAdminPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.adminSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == admin.ErrNotFound) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active admin account, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *gateApi) confirmAdminPasswordReset(ctx echo.Context) error {
	var data admin.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}

	if err := api.adminSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}
