package video

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/taxonomy"
)

var (
	// errors
	ErrNotFound = errors.New("video not found")
)

type (
	Repository interface {
		CreateVideo(ctx context.Context, v Video) (Video, error)
		GetVideo(ctx context.Context, id string) (Video, error)
		QueryVideos(ctx context.Context, filter QueryFilter) ([]Video, error)
		UpdateVideo(ctx context.Context, v Video) (Video, error)
		// DeleteVideo hard-deletes the video; progress rows referencing it are left untouched.
		DeleteVideo(ctx context.Context, id string) error
		SetPublished(ctx context.Context, id string, published bool, updatedAt time.Time) error
		SetViewCount(ctx context.Context, id string, count int, updatedAt time.Time) error
	}

	// RefChecker validates taxonomy references.
	RefChecker interface {
		Exists(ctx context.Context, kind taxonomy.Kind, id string) (bool, error)
	}

	Service struct {
		repo Repository
		refs RefChecker
	}
)

func NewService(repo Repository, refs RefChecker) *Service {
	return &Service{repo: repo, refs: refs}
}

func (svc *Service) checkRefs(ctx context.Context, c Classification) error {
	var flds []core.FieldError
	for _, r := range c.refs() {
		ok, err := svc.refs.Exists(ctx, r.kind, r.id)
		if err != nil {
			return errors.Wrapf(err, "checking %s reference", r.kind)
		}
		if !ok {
			flds = append(flds, core.FieldError{Field: r.field, Error: "unknown " + r.kind.String()})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Create expects nv to be validated. Every taxonomy reference must exist.
func (svc *Service) Create(ctx context.Context, nv NewVideo, createdBy string) (Video, error) {
	if err := svc.checkRefs(ctx, nv.Classification); err != nil {
		return Video{}, err
	}

	published := true
	if nv.IsPublished != nil {
		published = *nv.IsPublished
	}
	now := time.Now().UTC()
	v := Video{
		ID:                 newIDFunc(),
		Title:              nv.Title,
		Description:        nv.Description,
		ContentDescription: nv.ContentDescription,
		StreamID:           nv.StreamID,
		ClassID:            nv.ClassID,
		SubjectID:          nv.SubjectID,
		ChapterID:          nv.ChapterID,
		Link:               nv.Link,
		IsPublished:        published,
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := svc.repo.CreateVideo(ctx, v); err != nil {
		return Video{}, errors.Wrap(err, "creating video")
	}
	return svc.repo.GetVideo(ctx, v.ID)
}

func (svc *Service) Get(ctx context.Context, id string) (Video, error) {
	return svc.repo.GetVideo(ctx, core.CleanString(id))
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Video, error) {
	return svc.repo.QueryVideos(ctx, filter)
}

// ListForClass returns the published catalog of a stream and class, newest first.
func (svc *Service) ListForClass(ctx context.Context, streamID, classID string, filter QueryFilter) ([]Video, error) {
	filter.PublishedOnly = true
	filter.StreamID = streamID
	filter.ClassID = classID
	return svc.repo.QueryVideos(ctx, filter)
}

// Update expects uv to be validated.
func (svc *Service) Update(ctx context.Context, id string, uv UpdateVideo) (Video, error) {
	v, err := svc.Get(ctx, id)
	if err != nil {
		return Video{}, err
	}
	if err = svc.checkRefs(ctx, uv.Classification); err != nil {
		return Video{}, err
	}

	v.Title = uv.Title
	v.Description = uv.Description
	v.ContentDescription = uv.ContentDescription
	v.StreamID = uv.StreamID
	v.ClassID = uv.ClassID
	v.SubjectID = uv.SubjectID
	v.ChapterID = uv.ChapterID
	v.Link = uv.Link
	v.IsPublished = uv.IsPublished
	v.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateVideo(ctx, v); err != nil {
		return Video{}, errors.Wrap(err, "updating video")
	}
	return svc.repo.GetVideo(ctx, v.ID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteVideo(ctx, core.CleanString(id))
}

func (svc *Service) SetPublished(ctx context.Context, id string, published bool) error {
	return svc.repo.SetPublished(ctx, core.CleanString(id), published, time.Now().UTC())
}

// BulkSetPublished applies each change on its own; a failing row does not roll back the others.
// Results are sorted by video id.
func (svc *Service) BulkSetPublished(ctx context.Context, changes map[string]bool) []BulkResult {
	ids := make([]string, 0, len(changes))
	for id := range changes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		res := BulkResult{VideoID: id, IsPublished: changes[id]}
		if err := svc.SetPublished(ctx, id, changes[id]); err != nil {
			res.Error = errors.Cause(err).Error()
		}
		results = append(results, res)
	}
	return results
}

// SetViewCount is the only writer of Video.ViewCount. Watching a video never increments it.
func (svc *Service) SetViewCount(ctx context.Context, id string, count int) error {
	if count < 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "view_count", Error: "must be 0 or greater"})
	}
	return svc.repo.SetViewCount(ctx, core.CleanString(id), count, time.Now().UTC())
}
