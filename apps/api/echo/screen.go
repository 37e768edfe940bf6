package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core/session"
)

var outcomeMessages = map[session.Outcome]string{
	session.OutcomeExpired:      "Session expired. Please login again.",
	session.OutcomeUnauthorized: "Unauthorized access.",
}

type screenApi struct {
	router *session.Router
}

func registerScreenAPI(g *echo.Group, router *session.Router) {
	api := screenApi{router: router}

	g.GET("", api.resolve)
	g.POST("/navigate", api.navigate)
}

func (api *screenApi) resolve(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	screen, outcome := api.router.Resolve(sess, nowFunc().UTC())
	return ctx.JSON(http.StatusOK, api.response(sess, screen, outcome))
}

func (api *screenApi) navigate(ctx echo.Context) error {
	var data NavigateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NavigateRequest")
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	// expired or forbidden sessions land on the welcome screen before navigating
	if _, outcome := api.router.Resolve(sess, nowFunc().UTC()); outcome != session.OutcomeOK {
		return ctx.JSON(http.StatusOK, api.response(sess, sess.Screen, outcome))
	}
	if err = api.router.Navigate(sess, data.Action); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.response(sess, sess.Screen, session.OutcomeOK))
}

func (api *screenApi) response(sess *session.Session, screen session.Screen, outcome session.Outcome) ScreenResponse {
	transitions := api.router.Transitions(sess)
	if transitions == nil {
		transitions = []session.Screen{}
	}
	return ScreenResponse{
		Screen:      screen,
		Outcome:     outcome.String(),
		Message:     outcomeMessages[outcome],
		Identity:    sess.Identity,
		LogoutArmed: sess.LogoutArmed,
		Transitions: transitions,
	}
}
