package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/video"
)

const selectedVideoKey = "video_id"

type studentApi struct {
	studentSvc  *student.Service
	videoSvc    *video.Service
	progressSvc *progress.Service
}

func registerStudentAPI(g *echo.Group, opts *Options) {
	api := studentApi{
		studentSvc:  opts.StudentSvc,
		videoSvc:    opts.VideoSvc,
		progressSvc: opts.ProgressSvc,
	}

	g.GET("/profile", api.profile)
	g.GET("/progress", api.progressReport)

	vg := g.Group("/videos")
	vg.GET("", api.queryVideos)
	vg.GET("/:id", api.retrieveVideo)
	vg.POST("/:id/progress", api.recordProgress)
	vg.POST("/:id/complete", api.complete)
}

// catalogVideo returns the video when it is published for the stream and class of the student.
func (api *studentApi) catalogVideo(ctx echo.Context, id auth.Identity) (video.Video, error) {
	v, err := api.videoSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return video.Video{}, errors.Wrap(err, "finding video by ID")
	}
	if !v.IsPublished || v.StreamID != id.StreamID || v.ClassID != id.ClassID {
		return video.Video{}, errHttpNotFound
	}
	return v, nil
}

// Handlers

func (api *studentApi) queryVideos(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	rctx := ctx.Request().Context()

	filter := video.QueryFilter{
		SubjectID: cleanParam(ctx, "subject_id"),
		ChapterID: cleanParam(ctx, "chapter_id"),
		Search:    cleanParam(ctx, "search"),
	}
	videos, err := api.videoSvc.ListForClass(rctx, id.StreamID, id.ClassID, filter)
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}
	history, err := api.progressSvc.ListForStudent(rctx, id.ID)
	if err != nil {
		return errors.Wrap(err, "listing progress")
	}

	watched := make(map[string]progress.Record, len(history))
	for _, e := range history {
		watched[e.VideoID] = e.Record
	}
	catalog := make([]CatalogVideo, 0, len(videos))
	for _, v := range videos {
		rec := watched[v.ID]
		catalog = append(catalog, CatalogVideo{
			Video:                v,
			CompletionPercentage: rec.CompletionPercentage,
			IsCompleted:          rec.IsCompleted,
		})
	}
	return ctx.JSON(http.StatusOK, catalog)
}

func (api *studentApi) retrieveVideo(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	v, err := api.catalogVideo(ctx, id)
	if err != nil {
		return err
	}

	resp := VideoDetailResponse{Video: v}
	rec, err := api.progressSvc.Get(ctx.Request().Context(), id.ID, v.ID)
	switch errors.Cause(err) {
	case nil:
		resp.Progress = &rec
	case progress.ErrNotFound:
	default:
		return errors.Wrap(err, "finding progress")
	}
	sess.Select(selectedVideoKey, v.ID)
	return ctx.JSON(http.StatusOK, resp)
}

func (api *studentApi) recordProgress(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	var data progress.Update
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to progress.Update")
	}
	v, err := api.catalogVideo(ctx, id)
	if err != nil {
		return err
	}

	rec, err := api.progressSvc.RecordProgress(ctx.Request().Context(), id.ID, v.ID, data.CompletionPercentage, data.IsCompleted)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *studentApi) complete(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	v, err := api.catalogVideo(ctx, id)
	if err != nil {
		return err
	}

	rec, err := api.progressSvc.MarkCompleted(ctx.Request().Context(), id.ID, v.ID)
	if err != nil {
		return errors.Wrap(err, "marking video completed")
	}
	sess.Unselect(selectedVideoKey)
	return ctx.JSON(http.StatusOK, rec)
}

func (api *studentApi) progressReport(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	rctx := ctx.Request().Context()

	var resp ProgressResponse
	if resp.Summary, err = api.progressSvc.Summarize(rctx, id.ID); err != nil {
		return errors.Wrap(err, "summarizing progress")
	}
	if resp.Subjects, err = api.progressSvc.SubjectBreakdown(rctx, id.ID); err != nil {
		return errors.Wrap(err, "computing subject breakdown")
	}
	if resp.History, err = api.progressSvc.ListForStudent(rctx, id.ID); err != nil {
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

func (api *studentApi) profile(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	s, err := api.studentSvc.Get(ctx.Request().Context(), id.ID)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}
