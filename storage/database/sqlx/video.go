package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/video"
)

const videoSelect = `SELECT v.video_id, v.title, v.description, v.content_description,
       v.stream_id, v.class_id, v.subject_id, v.chapter_id, v.video_link, v.is_published,
       v.view_count, v.created_by, v.created_at, v.updated_at,
       sm.stream_name, cm.class_name, subm.subject_name, chm.chapter_name
FROM videos v
LEFT JOIN stream_master sm ON v.stream_id = sm.stream_id
LEFT JOIN class_master cm ON v.class_id = cm.class_id
LEFT JOIN subject_master subm ON v.subject_id = subm.subject_id
LEFT JOIN chapter_master chm ON v.chapter_id = chm.chapter_id`

var videoOrderings = map[string]string{
	"title":      "v.title",
	"view_count": "v.view_count",
	"created_at": "v.created_at",
	"updated_at": "v.updated_at",
}

type videoRow struct {
	ID                 string      `db:"video_id"`
	Title              string      `db:"title"`
	Description        null.String `db:"description"`
	ContentDescription null.String `db:"content_description"`
	StreamID           string      `db:"stream_id"`
	ClassID            string      `db:"class_id"`
	SubjectID          string      `db:"subject_id"`
	ChapterID          string      `db:"chapter_id"`
	Link               string      `db:"video_link"`
	IsPublished        bool        `db:"is_published"`
	ViewCount          int         `db:"view_count"`
	CreatedBy          null.String `db:"created_by"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`

	StreamName  null.String `db:"stream_name"`
	ClassName   null.String `db:"class_name"`
	SubjectName null.String `db:"subject_name"`
	ChapterName null.String `db:"chapter_name"`
}

type videoRepository struct {
	exec core.DBExecutor
}

var _ video.Repository = (*videoRepository)(nil) // interface compliance check

func NewVideoRepository(exec core.DBExecutor) *videoRepository {
	return &videoRepository{exec: exec}
}

func (repo videoRepository) toRow(v video.Video) videoRow {
	return videoRow{
		ID:                 v.ID,
		Title:              v.Title,
		Description:        nullString(v.Description),
		ContentDescription: nullString(v.ContentDescription),
		StreamID:           v.StreamID,
		ClassID:            v.ClassID,
		SubjectID:          v.SubjectID,
		ChapterID:          v.ChapterID,
		Link:               v.Link,
		IsPublished:        v.IsPublished,
		ViewCount:          v.ViewCount,
		CreatedBy:          nullString(v.CreatedBy),
		CreatedAt:          v.CreatedAt.UTC(),
		UpdatedAt:          v.UpdatedAt.UTC(),
	}
}

func (repo videoRepository) fromRow(row videoRow) video.Video {
	return video.Video{
		ID:                 row.ID,
		Title:              row.Title,
		Description:        row.Description.String,
		ContentDescription: row.ContentDescription.String,
		StreamID:           row.StreamID,
		ClassID:            row.ClassID,
		SubjectID:          row.SubjectID,
		ChapterID:          row.ChapterID,
		Link:               row.Link,
		IsPublished:        row.IsPublished,
		ViewCount:          row.ViewCount,
		CreatedBy:          row.CreatedBy.String,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
		StreamName:         row.StreamName.String,
		ClassName:          row.ClassName.String,
		SubjectName:        row.SubjectName.String,
		ChapterName:        row.ChapterName.String,
	}
}

func (repo videoRepository) CreateVideo(ctx context.Context, v video.Video) (video.Video, error) {
	row := repo.toRow(v)
	q := `INSERT INTO videos (video_id, title, description, content_description, stream_id, class_id,
    subject_id, chapter_id, video_link, is_published, view_count, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q),
		row.ID, row.Title, row.Description, row.ContentDescription, row.StreamID, row.ClassID,
		row.SubjectID, row.ChapterID, row.Link, row.IsPublished, row.ViewCount, row.CreatedBy,
		row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return video.Video{}, errors.Wrap(err, "inserting video")
	}
	return repo.fromRow(row), nil
}

func (repo videoRepository) GetVideo(ctx context.Context, id string) (video.Video, error) {
	var row videoRow
	q := videoSelect + " WHERE v.video_id = ?"
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), id); err != nil {
		return video.Video{}, trapNoRowsErr(err, video.ErrNotFound, "finding video")
	}
	return repo.fromRow(row), nil
}

func (repo videoRepository) QueryVideos(ctx context.Context, filter video.QueryFilter) ([]video.Video, error) {
	var w where
	if filter.PublishedOnly {
		w.add("v.is_published = ?", true)
	}
	if filter.StreamID != "" {
		w.add("v.stream_id = ?", filter.StreamID)
	}
	if filter.ClassID != "" {
		w.add("v.class_id = ?", filter.ClassID)
	}
	if filter.SubjectID != "" {
		w.add("v.subject_id = ?", filter.SubjectID)
	}
	if filter.ChapterID != "" {
		w.add("v.chapter_id = ?", filter.ChapterID)
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(LOWER(v.title) LIKE ? OR LOWER(COALESCE(v.description, '')) LIKE ?)", val, val)
	}
	orderBy := core.OrderByClause(filter.Ordering, videoOrderings, "v.created_at DESC, v.video_id")

	var rows []videoRow
	q := videoSelect + w.String() + " ORDER BY " + orderBy
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	videos := make([]video.Video, 0, len(rows))
	for _, row := range rows {
		videos = append(videos, repo.fromRow(row))
	}
	return videos, nil
}

// UpdateVideo leaves view_count, created_by and created_at untouched.
func (repo videoRepository) UpdateVideo(ctx context.Context, v video.Video) (video.Video, error) {
	row := repo.toRow(v)
	q := `UPDATE videos SET title = ?, description = ?, content_description = ?, stream_id = ?, class_id = ?,
    subject_id = ?, chapter_id = ?, video_link = ?, is_published = ?, updated_at = ?
WHERE video_id = ?`
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q),
		row.Title, row.Description, row.ContentDescription, row.StreamID, row.ClassID,
		row.SubjectID, row.ChapterID, row.Link, row.IsPublished, row.UpdatedAt, row.ID)
	if err != nil {
		return video.Video{}, errors.Wrap(err, "updating video")
	}
	if err = checkAffected(res, video.ErrNotFound, "updating video"); err != nil {
		return video.Video{}, err
	}
	return repo.fromRow(row), nil
}

func (repo videoRepository) DeleteVideo(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM videos WHERE video_id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return checkAffected(res, video.ErrNotFound, "deleting video")
}

func (repo videoRepository) SetPublished(ctx context.Context, id string, published bool, updatedAt time.Time) error {
	q := "UPDATE videos SET is_published = ?, updated_at = ? WHERE video_id = ?"
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q), published, updatedAt.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "setting video publication")
	}
	return checkAffected(res, video.ErrNotFound, "setting video publication")
}

func (repo videoRepository) SetViewCount(ctx context.Context, id string, count int, updatedAt time.Time) error {
	q := "UPDATE videos SET view_count = ?, updated_at = ? WHERE video_id = ?"
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q), count, updatedAt.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "setting video view count")
	}
	return checkAffected(res, video.ErrNotFound, "setting video view count")
}
