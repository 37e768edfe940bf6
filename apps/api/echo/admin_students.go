package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/core/student"
)

func (api *adminApi) queryStudents(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	filter := student.QueryFilter{
		Search:          cleanParam(ctx, "search"),
		StreamID:        cleanParam(ctx, "stream_id"),
		ClassID:         cleanParam(ctx, "class_id"),
		IncludeInactive: boolParam(ctx, "include_inactive"),
		Ordering:        ordering.Orderings,
	}

	students, err := api.studentSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.studentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *adminApi) retrieveStudent(ctx echo.Context) error {
	s, err := api.studentSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *adminApi) updateStudent(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.studentSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

// destroyStudent deactivates the student; progress history is kept.
func (api *adminApi) destroyStudent(ctx echo.Context) error {
	if err := api.studentSvc.Deactivate(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deactivating student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) setVideoAccess(ctx echo.Context) error {
	var data student.SetVideoAccess
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetVideoAccess")
	}

	s, err := api.studentSvc.SetVideoEnabled(ctx.Request().Context(), ctx.Param("id"), data.VideoEnabled)
	if err != nil {
		return errors.Wrap(err, "setting video access")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *adminApi) studentProgress(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	s, err := api.studentSvc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}

	resp := StudentProgressResponse{Student: s}
	if resp.Summary, err = api.progressSvc.Summarize(rctx, s.ID); err != nil {
		return errors.Wrap(err, "summarizing progress")
	}
	if resp.Subjects, err = api.progressSvc.SubjectBreakdown(rctx, s.ID); err != nil {
		return errors.Wrap(err, "computing subject breakdown")
	}
	if resp.History, err = api.progressSvc.ListForStudent(rctx, s.ID); err != nil {
		return errors.Wrap(err, "listing progress")
	}
	if resp.Subjects == nil {
		resp.Subjects = []progress.SubjectProgress{}
	}
	if resp.History == nil {
		resp.History = []progress.Entry{}
	}
	return ctx.JSON(http.StatusOK, resp)
}
