package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core/video"
)

func (api *adminApi) queryVideos(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	filter := video.QueryFilter{
		PublishedOnly: boolParam(ctx, "published"),
		StreamID:      cleanParam(ctx, "stream_id"),
		ClassID:       cleanParam(ctx, "class_id"),
		SubjectID:     cleanParam(ctx, "subject_id"),
		ChapterID:     cleanParam(ctx, "chapter_id"),
		Search:        cleanParam(ctx, "search"),
		Ordering:      ordering.Orderings,
	}

	videos, err := api.videoSvc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}
	if videos == nil {
		videos = []video.Video{}
	}
	return ctx.JSON(http.StatusOK, videos)
}

func (api *adminApi) createVideo(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	var data video.NewVideo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVideo")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.videoSvc.Create(ctx.Request().Context(), data, id.Username)
	if err != nil {
		return errors.Wrap(err, "creating video")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *adminApi) retrieveVideo(ctx echo.Context) error {
	v, err := api.videoSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding video by ID")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *adminApi) updateVideo(ctx echo.Context) error {
	var data video.UpdateVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateVideo")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.videoSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating video")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *adminApi) destroyVideo(ctx echo.Context) error {
	if err := api.videoSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) bulkPublish(ctx echo.Context) error {
	var data BulkPublishRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkPublishRequest")
	}
	return ctx.JSON(http.StatusOK, api.videoSvc.BulkSetPublished(ctx.Request().Context(), data.Videos))
}

func (api *adminApi) setViewCount(ctx echo.Context) error {
	var data video.SetViewCount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetViewCount")
	}

	if err := api.videoSvc.SetViewCount(ctx.Request().Context(), ctx.Param("id"), data.ViewCount); err != nil {
		return errors.Wrap(err, "setting view count")
	}
	v, err := api.videoSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding video by ID")
	}
	return ctx.JSON(http.StatusOK, v)
}
