// Package analytics provides the read-only aggregations of the admin dashboard.
package analytics

import (
	"context"
	"time"
)

const (
	defaultLimit = 10
	activeWindow = 7 * 24 * time.Hour
)

var nowFunc = time.Now // mockable

type (
	Overview struct {
		PublishedVideos      int `json:"published_videos"`
		ActiveStudents       int `json:"active_students"` // active and video-enabled
		TotalViews           int `json:"total_views"`
		CompletedViews       int `json:"completed_views"`
		WeeklyActiveStudents int `json:"weekly_active_students"`
	}

	VideoViews struct {
		VideoID     string    `json:"video_id"`
		Title       string    `json:"title"`
		ViewCount   int       `json:"view_count"`
		StreamName  string    `json:"stream_name"`
		ClassName   string    `json:"class_name"`
		SubjectName string    `json:"subject_name"`
		IsPublished bool      `json:"is_published"`
		CreatedAt   time.Time `json:"created_at"`
	}

	StudentEngagement struct {
		StudentID     string    `json:"student_id"`
		Name          string    `json:"name"`
		Mobile        string    `json:"mobile_no"`
		VideosWatched int       `json:"videos_watched"`
		AvgCompletion float64   `json:"avg_completion"`
		LastActivity  time.Time `json:"last_activity"`
	}

	SubjectStats struct {
		SubjectID   string `json:"subject_id"`
		SubjectName string `json:"subject_name"`
		VideoCount  int    `json:"video_count"`
		TotalViews  int    `json:"total_views"`
	}

	Dashboard struct {
		Overview     Overview            `json:"overview"`
		MostWatched  []VideoViews        `json:"most_watched"`
		Engagement   []StudentEngagement `json:"student_engagement"`
		SubjectStats []SubjectStats      `json:"subject_stats"`
		RecentVideos []VideoViews        `json:"recent_videos"`
	}

	Repository interface {
		// Overview counts progress rows with last_watched after activeSince as weekly activity.
		Overview(ctx context.Context, activeSince time.Time) (Overview, error)
		MostWatched(ctx context.Context, limit int) ([]VideoViews, error)
		StudentEngagement(ctx context.Context, limit int) ([]StudentEngagement, error)
		SubjectStats(ctx context.Context) ([]SubjectStats, error)
		RecentVideos(ctx context.Context, limit int) ([]VideoViews, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Overview(ctx context.Context) (Overview, error) {
	return svc.repo.Overview(ctx, nowFunc().UTC().Add(-activeWindow))
}

func (svc *Service) MostWatched(ctx context.Context, limit int) ([]VideoViews, error) {
	return svc.repo.MostWatched(ctx, normLimit(limit))
}

func (svc *Service) StudentEngagement(ctx context.Context, limit int) ([]StudentEngagement, error) {
	return svc.repo.StudentEngagement(ctx, normLimit(limit))
}

func (svc *Service) SubjectStats(ctx context.Context) ([]SubjectStats, error) {
	return svc.repo.SubjectStats(ctx)
}

func (svc *Service) RecentVideos(ctx context.Context, limit int) ([]VideoViews, error) {
	return svc.repo.RecentVideos(ctx, normLimit(limit))
}

// Dashboard gathers every aggregation in one call. limit caps the ranked lists.
func (svc *Service) Dashboard(ctx context.Context, limit int) (Dashboard, error) {
	var (
		dash Dashboard
		err  error
	)
	if dash.Overview, err = svc.Overview(ctx); err != nil {
		return Dashboard{}, err
	}
	if dash.MostWatched, err = svc.MostWatched(ctx, limit); err != nil {
		return Dashboard{}, err
	}
	if dash.Engagement, err = svc.StudentEngagement(ctx, limit); err != nil {
		return Dashboard{}, err
	}
	if dash.SubjectStats, err = svc.SubjectStats(ctx); err != nil {
		return Dashboard{}, err
	}
	if dash.RecentVideos, err = svc.RecentVideos(ctx, 5); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func normLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultLimit
	}
	return limit
}
