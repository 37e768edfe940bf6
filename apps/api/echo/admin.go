package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/analytics"
	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/core/session"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/taxonomy"
	"github.com/aryaedu/tutor/core/video"
)

const recentVideosLimit = 5

type adminApi struct {
	adminSvc     *admin.Service
	studentSvc   *student.Service
	taxonomySvc  *taxonomy.Service
	videoSvc     *video.Service
	progressSvc  *progress.Service
	analyticsSvc *analytics.Service
	router       *session.Router
	validate     *validator.Validate
}

func registerAdminAPI(g *echo.Group, opts *Options) {
	api := adminApi{
		adminSvc:     opts.AdminSvc,
		studentSvc:   opts.StudentSvc,
		taxonomySvc:  opts.TaxonomySvc,
		videoSvc:     opts.VideoSvc,
		progressSvc:  opts.ProgressSvc,
		analyticsSvc: opts.AnalyticsSvc,
		router:       opts.Router,
		validate:     opts.Validate,
	}

	g.GET("/dashboard", api.dashboard)
	g.GET("/analytics", api.analyticsReport)

	tg := g.Group("/taxonomy")
	tg.GET("", api.queryAllTaxonomy)
	tg.GET("/:kind", api.queryTaxonomy)
	tg.POST("/:kind", api.addTaxonomy)

	vg := g.Group("/videos")
	vg.GET("", api.queryVideos)
	vg.POST("", api.createVideo)
	vg.POST("/publish", api.bulkPublish)
	vg.GET("/:id", api.retrieveVideo)
	vg.PUT("/:id", api.updateVideo)
	vg.DELETE("/:id", api.destroyVideo)
	vg.PUT("/:id/views", api.setViewCount)

	stg := g.Group("/students")
	stg.GET("", api.queryStudents)
	stg.POST("", api.createStudent)
	stg.GET("/:id", api.retrieveStudent)
	stg.PUT("/:id", api.updateStudent)
	stg.DELETE("/:id", api.destroyStudent)
	stg.PUT("/:id/access", api.setVideoAccess)
	stg.GET("/:id/progress", api.studentProgress)

	sg := g.Group("/settings")
	sg.GET("", api.settings)
	sg.PUT("/password", api.changePassword)
	sg.PUT("/email", api.updateEmail)
	sg.GET("/session-timeout", api.sessionTimeout)
	sg.PUT("/session-timeout", api.setSessionTimeout)
}

// Handlers

func (api *adminApi) dashboard(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	overview, err := api.analyticsSvc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing overview")
	}
	recent, err := api.analyticsSvc.RecentVideos(ctx.Request().Context(), recentVideosLimit)
	if err != nil {
		return errors.Wrap(err, "querying recent videos")
	}
	if recent == nil {
		recent = []analytics.VideoViews{}
	}
	return ctx.JSON(http.StatusOK, DashboardResponse{Identity: id, Overview: overview, RecentVideos: recent})
}

func (api *adminApi) analyticsReport(ctx echo.Context) error {
	dash, err := api.analyticsSvc.Dashboard(ctx.Request().Context(), intParam(ctx, "limit"))
	if err != nil {
		return errors.Wrap(err, "computing analytics")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *adminApi) queryAllTaxonomy(ctx echo.Context) error {
	all, err := api.taxonomySvc.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing taxonomy")
	}
	for kind, entries := range all {
		if entries == nil {
			all[kind] = []taxonomy.Entry{}
		}
	}
	return ctx.JSON(http.StatusOK, all)
}

func (api *adminApi) queryTaxonomy(ctx echo.Context) error {
	kind, err := taxonomy.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}

	entries, err := api.taxonomySvc.List(ctx.Request().Context(), kind, boolParam(ctx, "active"))
	if err != nil {
		return errors.Wrapf(err, "listing %s entries", kind)
	}
	if entries == nil {
		entries = []taxonomy.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *adminApi) addTaxonomy(ctx echo.Context) error {
	kind, err := taxonomy.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}
	var data NewEntryRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntryRequest")
	}

	entry, err := api.taxonomySvc.Add(ctx.Request().Context(), kind, data.Name)
	if err != nil {
		return errors.Wrapf(err, "adding %s", kind)
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *adminApi) settings(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	adm, err := api.adminSvc.GetByUsername(ctx.Request().Context(), id.Username)
	if err != nil {
		return errors.Wrap(err, "finding admin by username")
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (api *adminApi) changePassword(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	var data admin.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}

	if err = api.adminSvc.ChangePassword(ctx.Request().Context(), id.Username, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password updated successfully."})
}

func (api *adminApi) updateEmail(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	var data admin.UpdateEmail
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEmail")
	}

	adm, err := api.adminSvc.UpdateEmail(ctx.Request().Context(), id.Username, data)
	if err != nil {
		return errors.Wrap(err, "updating email")
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (api *adminApi) sessionTimeout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, SessionTimeout{Minutes: int(api.router.Timeout() / time.Minute)})
}

func (api *adminApi) setSessionTimeout(ctx echo.Context) error {
	var data SessionTimeout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionTimeout")
	}
	if err := api.router.SetTimeout(time.Duration(data.Minutes) * time.Minute); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "minutes", Error: err.Error()})
	}
	return api.sessionTimeout(ctx)
}
