package progress

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound = errors.New("progress record not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// UpsertProgress inserts rec with a watch count of 1, or updates the existing
		// (student, video) row and increments its watch count.
		UpsertProgress(ctx context.Context, rec Record) error
		GetProgress(ctx context.Context, studentID, videoID string) (Record, error)
		// ListProgress returns the student's rows, most recently watched first.
		ListProgress(ctx context.Context, studentID string) ([]Entry, error)
		SummarizeProgress(ctx context.Context, studentID string) (Summary, error)
		SubjectBreakdown(ctx context.Context, studentID string) ([]SubjectProgress, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordProgress saves the watch state of a student on a video. The percentage is clamped to [0, 100].
func (svc *Service) RecordProgress(ctx context.Context, studentID, videoID string, percentage float64, completed bool) (Record, error) {
	if math.IsNaN(percentage) {
		percentage = 0
	}
	rec := Record{
		StudentID:            studentID,
		VideoID:              videoID,
		CompletionPercentage: clampPercentage(percentage),
		IsCompleted:          completed,
		LastWatched:          nowFunc().UTC(),
	}
	if err := svc.repo.UpsertProgress(ctx, rec); err != nil {
		return Record{}, errors.Wrap(err, "upserting progress")
	}
	return svc.repo.GetProgress(ctx, studentID, videoID)
}

func (svc *Service) MarkCompleted(ctx context.Context, studentID, videoID string) (Record, error) {
	return svc.RecordProgress(ctx, studentID, videoID, 100, true)
}

func (svc *Service) Get(ctx context.Context, studentID, videoID string) (Record, error) {
	return svc.repo.GetProgress(ctx, studentID, videoID)
}

func (svc *Service) Summarize(ctx context.Context, studentID string) (Summary, error) {
	return svc.repo.SummarizeProgress(ctx, studentID)
}

// ListForStudent includes rows whose video has been deleted.
func (svc *Service) ListForStudent(ctx context.Context, studentID string) ([]Entry, error) {
	return svc.repo.ListProgress(ctx, studentID)
}

func (svc *Service) SubjectBreakdown(ctx context.Context, studentID string) ([]SubjectProgress, error) {
	return svc.repo.SubjectBreakdown(ctx, studentID)
}
