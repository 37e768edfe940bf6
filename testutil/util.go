// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/taxonomy"
	"github.com/aryaedu/tutor/core/video"
	"github.com/aryaedu/tutor/storage/database"
)

var seq uint64

func nextID(prefix string) string {
	return fmt.Sprintf("%s%08X", prefix, atomic.AddUint64(&seq, 1))
}

// PrepareDB opens a migrated in-memory database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.MigrateUp(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateEntry(t *testing.T, repo taxonomy.Repository, kind taxonomy.Kind, name string, createdAt ...time.Time) taxonomy.Entry {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	e, err := repo.CreateEntry(context.Background(), taxonomy.Entry{
		Kind:      kind,
		ID:        nextID(kind.Prefix()),
		Name:      name,
		IsActive:  true,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return e
}

// Taxonomy is one entry of each kind, enough to classify a video.
type Taxonomy struct {
	Stream  taxonomy.Entry
	Class   taxonomy.Entry
	Subject taxonomy.Entry
	Chapter taxonomy.Entry
}

func (tx Taxonomy) Classification() video.Classification {
	return video.Classification{
		StreamID:  tx.Stream.ID,
		ClassID:   tx.Class.ID,
		SubjectID: tx.Subject.ID,
		ChapterID: tx.Chapter.ID,
	}
}

// CreateTaxonomy creates the entries "<prefix>Stream", "<prefix>Class", and so on.
func CreateTaxonomy(t *testing.T, repo taxonomy.Repository, prefix string) Taxonomy {
	t.Helper()
	return Taxonomy{
		Stream:  CreateEntry(t, repo, taxonomy.Stream, prefix+"Stream"),
		Class:   CreateEntry(t, repo, taxonomy.Class, prefix+"Class"),
		Subject: CreateEntry(t, repo, taxonomy.Subject, prefix+"Subject"),
		Chapter: CreateEntry(t, repo, taxonomy.Chapter, prefix+"Chapter"),
	}
}

func CreateAdmin(t *testing.T, repo admin.Repository, uname, email, pwd string, isActive bool) admin.Admin {
	t.Helper()

	adm := admin.Admin{
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := adm.SetPassword(pwd); err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	adm, err := repo.CreateAdmin(context.Background(), adm)
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return adm
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, mobile, pwd string,
	tx Taxonomy,
	isActive, videoEnabled bool,
	createdAt ...time.Time,
) student.Student {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	s := student.Student{
		ID:           nextID("STU"),
		Name:         name,
		Mobile:       mobile,
		City:         "Pune",
		State:        "Maharashtra",
		StreamID:     tx.Stream.ID,
		ClassID:      tx.Class.ID,
		VideoEnabled: videoEnabled,
		IsActive:     isActive,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	if pwd != "" {
		if err := s.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStudent() failed: %v", err)
		}
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateVideo(
	t *testing.T,
	repo video.Repository,
	title string,
	tx Taxonomy,
	isPublished bool,
	createdAt ...time.Time,
) video.Video {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c := tx.Classification()
	v, err := repo.CreateVideo(context.Background(), video.Video{
		ID:          nextID("V"),
		Title:       title,
		Description: "About " + strings.ToLower(title),
		StreamID:    c.StreamID,
		ClassID:     c.ClassID,
		SubjectID:   c.SubjectID,
		ChapterID:   c.ChapterID,
		Link:        "https://youtu.be/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		IsPublished: isPublished,
		CreatedBy:   "admin",
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateVideo() failed: %v", err)
	}
	return v
}
