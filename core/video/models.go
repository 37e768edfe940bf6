package video

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/taxonomy"
)

var newIDFunc = newID // mockable

// newID returns "V" followed by 12 upper-case hex characters.
func newID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "V" + strings.ToUpper(hex[:12])
}

type Video struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	ContentDescription string    `json:"content_description"`
	StreamID           string    `json:"stream_id"`
	ClassID            string    `json:"class_id"`
	SubjectID          string    `json:"subject_id"`
	ChapterID          string    `json:"chapter_id"`
	Link               string    `json:"video_link"`
	IsPublished        bool      `json:"is_published"`
	ViewCount          int       `json:"view_count"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC

	// taxonomy names; empty when the referenced entry is missing
	StreamName  string `json:"stream_name,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	ChapterName string `json:"chapter_name,omitempty"`
}

// Classification holds the four taxonomy references of a video.
type Classification struct {
	StreamID  string `json:"stream_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	ChapterID string `json:"chapter_id" validate:"required"`
}

func (c *Classification) clean() {
	c.StreamID = core.CleanString(c.StreamID)
	c.ClassID = core.CleanString(c.ClassID)
	c.SubjectID = core.CleanString(c.SubjectID)
	c.ChapterID = core.CleanString(c.ChapterID)
}

func (c Classification) refs() []ref {
	return []ref{
		{field: "stream_id", kind: taxonomy.Stream, id: c.StreamID},
		{field: "class_id", kind: taxonomy.Class, id: c.ClassID},
		{field: "subject_id", kind: taxonomy.Subject, id: c.SubjectID},
		{field: "chapter_id", kind: taxonomy.Chapter, id: c.ChapterID},
	}
}

type ref struct {
	field string
	kind  taxonomy.Kind
	id    string
}

// NewVideo contains information needed to publish a new Video.
type NewVideo struct {
	Title              string `json:"title" validate:"required,notblank,max=200"`
	Description        string `json:"description"`
	ContentDescription string `json:"content_description"`
	Classification
	Link        string `json:"video_link" validate:"required,url"`
	IsPublished *bool  `json:"is_published"` // defaults to true
}

func (nv *NewVideo) Validate(validate *validator.Validate) error {
	nv.Title = core.CleanString(nv.Title)
	nv.Description = core.CleanString(nv.Description)
	nv.ContentDescription = core.CleanString(nv.ContentDescription)
	nv.Link = core.CleanString(nv.Link)
	nv.Classification.clean()
	return validate.Struct(nv)
}

// UpdateVideo replaces every editable field of a Video.
type UpdateVideo struct {
	Title              string `json:"title" validate:"required,notblank,max=200"`
	Description        string `json:"description"`
	ContentDescription string `json:"content_description"`
	Classification
	Link        string `json:"video_link" validate:"required,url"`
	IsPublished bool   `json:"is_published"`
}

func (uv *UpdateVideo) Validate(validate *validator.Validate) error {
	uv.Title = core.CleanString(uv.Title)
	uv.Description = core.CleanString(uv.Description)
	uv.ContentDescription = core.CleanString(uv.ContentDescription)
	uv.Link = core.CleanString(uv.Link)
	uv.Classification.clean()
	return validate.Struct(uv)
}

type SetViewCount struct {
	ViewCount int `json:"view_count" validate:"min=0"`
}

// QueryFilter is ANDed. Search does a case-insensitive match on title or description.
type QueryFilter struct {
	PublishedOnly bool
	StreamID      string
	ClassID       string
	SubjectID     string
	ChapterID     string
	Search        string
	Ordering      []core.DBOrdering // newest first by default
}

type BulkResult struct {
	VideoID     string `json:"video_id"`
	IsPublished bool   `json:"is_published"`
	Error       string `json:"error,omitempty"`
}
