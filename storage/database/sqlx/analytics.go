package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/analytics"
)

const videoViewsSelect = `SELECT v.video_id, v.title, v.view_count, v.is_published, v.created_at,
       sm.stream_name, cm.class_name, subm.subject_name
FROM videos v
LEFT JOIN stream_master sm ON v.stream_id = sm.stream_id
LEFT JOIN class_master cm ON v.class_id = cm.class_id
LEFT JOIN subject_master subm ON v.subject_id = subm.subject_id`

type videoViewsRow struct {
	ID          string      `db:"video_id"`
	Title       string      `db:"title"`
	ViewCount   int         `db:"view_count"`
	IsPublished bool        `db:"is_published"`
	CreatedAt   time.Time   `db:"created_at"`
	StreamName  null.String `db:"stream_name"`
	ClassName   null.String `db:"class_name"`
	SubjectName null.String `db:"subject_name"`
}

type analyticsRepository struct {
	exec core.DBExecutor
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(exec core.DBExecutor) *analyticsRepository {
	return &analyticsRepository{exec: exec}
}

func (repo analyticsRepository) count(ctx context.Context, q string, args ...interface{}) (int, error) {
	var n int
	if err := repo.exec.GetContext(ctx, &n, repo.exec.Rebind(q), args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (repo analyticsRepository) Overview(ctx context.Context, activeSince time.Time) (analytics.Overview, error) {
	var (
		ov  analytics.Overview
		err error
	)
	if ov.PublishedVideos, err = repo.count(ctx, "SELECT COUNT(*) FROM videos WHERE is_published = ?", true); err != nil {
		return analytics.Overview{}, errors.Wrap(err, "counting published videos")
	}
	q := "SELECT COUNT(*) FROM students WHERE is_active = ? AND video_enabled = ?"
	if ov.ActiveStudents, err = repo.count(ctx, q, true, true); err != nil {
		return analytics.Overview{}, errors.Wrap(err, "counting active students")
	}
	if ov.TotalViews, err = repo.count(ctx, "SELECT COALESCE(SUM(view_count), 0) FROM videos"); err != nil {
		return analytics.Overview{}, errors.Wrap(err, "summing views")
	}
	if ov.CompletedViews, err = repo.count(ctx, "SELECT COUNT(*) FROM user_progress WHERE is_completed = ?", true); err != nil {
		return analytics.Overview{}, errors.Wrap(err, "counting completed views")
	}
	q = "SELECT COUNT(DISTINCT student_id) FROM user_progress WHERE last_watched >= ?"
	if ov.WeeklyActiveStudents, err = repo.count(ctx, q, activeSince.UTC()); err != nil {
		return analytics.Overview{}, errors.Wrap(err, "counting weekly active students")
	}
	return ov, nil
}

func (repo analyticsRepository) videoViews(ctx context.Context, orderBy string, limit int) ([]analytics.VideoViews, error) {
	var rows []videoViewsRow
	q := videoViewsSelect + " ORDER BY " + orderBy + " LIMIT ?"
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), limit); err != nil {
		return nil, err
	}
	views := make([]analytics.VideoViews, 0, len(rows))
	for _, row := range rows {
		views = append(views, analytics.VideoViews{
			VideoID:     row.ID,
			Title:       row.Title,
			ViewCount:   row.ViewCount,
			StreamName:  row.StreamName.String,
			ClassName:   row.ClassName.String,
			SubjectName: row.SubjectName.String,
			IsPublished: row.IsPublished,
			CreatedAt:   row.CreatedAt.UTC(),
		})
	}
	return views, nil
}

func (repo analyticsRepository) MostWatched(ctx context.Context, limit int) ([]analytics.VideoViews, error) {
	views, err := repo.videoViews(ctx, "v.view_count DESC, v.created_at DESC, v.video_id", limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing most watched videos")
	}
	return views, nil
}

func (repo analyticsRepository) RecentVideos(ctx context.Context, limit int) ([]analytics.VideoViews, error) {
	views, err := repo.videoViews(ctx, "v.created_at DESC, v.video_id", limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing recent videos")
	}
	return views, nil
}

// StudentEngagement ranks active students by the number of videos they have progress on.
func (repo analyticsRepository) StudentEngagement(ctx context.Context, limit int) ([]analytics.StudentEngagement, error) {
	q := `SELECT s.student_id, s.name, s.mobile_no,
       COUNT(up.video_id) AS videos_watched,
       COALESCE(AVG(up.completion_percentage), 0) AS avg_completion,
       MAX(up.last_watched) AS last_activity
FROM students s
JOIN user_progress up ON s.student_id = up.student_id
WHERE s.is_active = ?
GROUP BY s.student_id, s.name, s.mobile_no
ORDER BY videos_watched DESC, s.student_id
LIMIT ?`

	var rows []struct {
		ID            string  `db:"student_id"`
		Name          string  `db:"name"`
		Mobile        string  `db:"mobile_no"`
		VideosWatched int     `db:"videos_watched"`
		AvgCompletion float64 `db:"avg_completion"`
		LastActivity  aggTime `db:"last_activity"`
	}
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), true, limit); err != nil {
		return nil, errors.Wrap(err, "computing student engagement")
	}
	engagement := make([]analytics.StudentEngagement, 0, len(rows))
	for _, row := range rows {
		engagement = append(engagement, analytics.StudentEngagement{
			StudentID:     row.ID,
			Name:          row.Name,
			Mobile:        row.Mobile,
			VideosWatched: row.VideosWatched,
			AvgCompletion: row.AvgCompletion,
			LastActivity:  row.LastActivity.Time.Time,
		})
	}
	return engagement, nil
}

func (repo analyticsRepository) SubjectStats(ctx context.Context) ([]analytics.SubjectStats, error) {
	q := `SELECT subm.subject_id, subm.subject_name,
       COUNT(v.video_id) AS video_count,
       COALESCE(SUM(v.view_count), 0) AS total_views
FROM subject_master subm
LEFT JOIN videos v ON subm.subject_id = v.subject_id
WHERE subm.is_active = ?
GROUP BY subm.subject_id, subm.subject_name
ORDER BY total_views DESC, subm.subject_name`

	var rows []struct {
		ID         string `db:"subject_id"`
		Name       string `db:"subject_name"`
		VideoCount int    `db:"video_count"`
		TotalViews int    `db:"total_views"`
	}
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), true); err != nil {
		return nil, errors.Wrap(err, "computing subject stats")
	}
	stats := make([]analytics.SubjectStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, analytics.SubjectStats{
			SubjectID:   row.ID,
			SubjectName: row.Name,
			VideoCount:  row.VideoCount,
			TotalViews:  row.TotalViews,
		})
	}
	return stats, nil
}
