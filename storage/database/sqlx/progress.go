package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/progress"
)

const progressColumns = "student_id, video_id, watched_duration, completion_percentage, is_completed, watch_count, last_watched"

type progressRow struct {
	StudentID            string    `db:"student_id"`
	VideoID              string    `db:"video_id"`
	WatchedDuration      int       `db:"watched_duration"`
	CompletionPercentage float64   `db:"completion_percentage"`
	IsCompleted          bool      `db:"is_completed"`
	WatchCount           int       `db:"watch_count"`
	LastWatched          time.Time `db:"last_watched"`
}

type progressEntryRow struct {
	progressRow
	Title       null.String `db:"title"`
	Link        null.String `db:"video_link"`
	SubjectName null.String `db:"subject_name"`
	ChapterName null.String `db:"chapter_name"`
}

type progressRepository struct {
	exec core.DBExecutor
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(exec core.DBExecutor) *progressRepository {
	return &progressRepository{exec: exec}
}

func (repo progressRepository) fromRow(row progressRow) progress.Record {
	return progress.Record{
		StudentID:            row.StudentID,
		VideoID:              row.VideoID,
		WatchedDuration:      row.WatchedDuration,
		CompletionPercentage: row.CompletionPercentage,
		IsCompleted:          row.IsCompleted,
		WatchCount:           row.WatchCount,
		LastWatched:          row.LastWatched.UTC(),
	}
}

func (repo progressRepository) UpsertProgress(ctx context.Context, rec progress.Record) error {
	q := `INSERT INTO user_progress (` + progressColumns + `)
VALUES (?, ?, ?, ?, ?, 1, ?)
ON CONFLICT (student_id, video_id) DO UPDATE SET
    completion_percentage = excluded.completion_percentage,
    is_completed = excluded.is_completed,
    last_watched = excluded.last_watched,
    watch_count = user_progress.watch_count + 1`
	_, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q),
		rec.StudentID, rec.VideoID, rec.WatchedDuration, rec.CompletionPercentage, rec.IsCompleted,
		rec.LastWatched.UTC())
	if err != nil {
		return errors.Wrap(err, "upserting progress")
	}
	return nil
}

func (repo progressRepository) GetProgress(ctx context.Context, studentID, videoID string) (progress.Record, error) {
	var row progressRow
	q := "SELECT " + progressColumns + " FROM user_progress WHERE student_id = ? AND video_id = ?"
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), studentID, videoID); err != nil {
		return progress.Record{}, trapNoRowsErr(err, progress.ErrNotFound, "finding progress")
	}
	return repo.fromRow(row), nil
}

func (repo progressRepository) ListProgress(ctx context.Context, studentID string) ([]progress.Entry, error) {
	q := `SELECT up.student_id, up.video_id, up.watched_duration, up.completion_percentage, up.is_completed,
       up.watch_count, up.last_watched, v.title, v.video_link, subm.subject_name, chm.chapter_name
FROM user_progress up
LEFT JOIN videos v ON up.video_id = v.video_id
LEFT JOIN subject_master subm ON v.subject_id = subm.subject_id
LEFT JOIN chapter_master chm ON v.chapter_id = chm.chapter_id
WHERE up.student_id = ?
ORDER BY up.last_watched DESC, up.video_id`

	var rows []progressEntryRow
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), studentID); err != nil {
		return nil, errors.Wrap(err, "listing progress")
	}
	entries := make([]progress.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, progress.Entry{
			Record:      repo.fromRow(row.progressRow),
			VideoTitle:  row.Title.String,
			VideoLink:   row.Link.String,
			SubjectName: row.SubjectName.String,
			ChapterName: row.ChapterName.String,
		})
	}
	return entries, nil
}

func (repo progressRepository) SummarizeProgress(ctx context.Context, studentID string) (progress.Summary, error) {
	q := `SELECT COUNT(*) AS watched_count,
       COALESCE(SUM(CASE WHEN is_completed = ? THEN 1 ELSE 0 END), 0) AS completed_count,
       COALESCE(AVG(completion_percentage), 0) AS avg_completion,
       COALESCE(SUM(watched_duration), 0) AS total_watch_time
FROM user_progress
WHERE student_id = ?`

	var row struct {
		WatchedCount   int     `db:"watched_count"`
		CompletedCount int     `db:"completed_count"`
		AvgCompletion  float64 `db:"avg_completion"`
		TotalWatchTime int     `db:"total_watch_time"`
	}
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), true, studentID); err != nil {
		return progress.Summary{}, errors.Wrap(err, "summarizing progress")
	}
	return progress.Summary{
		WatchedCount:   row.WatchedCount,
		CompletedCount: row.CompletedCount,
		AvgCompletion:  row.AvgCompletion,
		TotalWatchTime: row.TotalWatchTime,
	}, nil
}

// SubjectBreakdown skips rows whose video no longer exists.
func (repo progressRepository) SubjectBreakdown(ctx context.Context, studentID string) ([]progress.SubjectProgress, error) {
	q := `SELECT v.subject_id, COALESCE(subm.subject_name, '') AS subject_name,
       COUNT(up.video_id) AS videos_watched,
       COALESCE(AVG(up.completion_percentage), 0) AS avg_progress,
       COALESCE(SUM(CASE WHEN up.is_completed = ? THEN 1 ELSE 0 END), 0) AS completed
FROM user_progress up
JOIN videos v ON up.video_id = v.video_id
LEFT JOIN subject_master subm ON v.subject_id = subm.subject_id
WHERE up.student_id = ?
GROUP BY v.subject_id, subm.subject_name
ORDER BY subject_name`

	var rows []struct {
		SubjectID     string  `db:"subject_id"`
		SubjectName   string  `db:"subject_name"`
		VideosWatched int     `db:"videos_watched"`
		AvgProgress   float64 `db:"avg_progress"`
		Completed     int     `db:"completed"`
	}
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), true, studentID); err != nil {
		return nil, errors.Wrap(err, "computing subject breakdown")
	}
	breakdown := make([]progress.SubjectProgress, 0, len(rows))
	for _, row := range rows {
		breakdown = append(breakdown, progress.SubjectProgress{
			SubjectID:     row.SubjectID,
			SubjectName:   row.SubjectName,
			VideosWatched: row.VideosWatched,
			AvgProgress:   row.AvgProgress,
			Completed:     row.Completed,
		})
	}
	return breakdown, nil
}
