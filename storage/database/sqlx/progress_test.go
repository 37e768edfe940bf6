package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/testutil"
)

func TestProgressRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	taxRepo := NewTaxonomyRepository(db)
	vidRepo := NewVideoRepository(db)
	stuRepo := NewStudentRepository(db)
	repo := NewProgressRepository(db)

	sci := testutil.CreateTaxonomy(t, taxRepo, "Sci")
	maths := testutil.CreateTaxonomy(t, taxRepo, "Maths")
	stu := testutil.CreateStudent(t, stuRepo, "Ravi Kumar", "9876543210", "secret1", sci, true, true)
	other := testutil.CreateStudent(t, stuRepo, "Anita Sharma", "9123456780", "secret1", sci, true, true)
	motion := testutil.CreateVideo(t, vidRepo, "Laws of Motion", sci, true)
	optics := testutil.CreateVideo(t, vidRepo, "Optics Basics", sci, true)
	algebra := testutil.CreateVideo(t, vidRepo, "Algebra", maths, true)

	now := time.Now().UTC()
	save := func(t *testing.T, videoID string, pct float64, completed bool, at time.Time) {
		t.Helper()
		err := repo.UpsertProgress(ctx, progress.Record{
			StudentID:            stu.ID,
			VideoID:              videoID,
			CompletionPercentage: pct,
			IsCompleted:          completed,
			LastWatched:          at,
		})
		require.NoError(t, err)
	}

	t.Run("get unknown", func(t *testing.T) {
		_, err := repo.GetProgress(ctx, stu.ID, motion.ID)
		assert.Equal(t, progress.ErrNotFound, err)
	})

	t.Run("upsert increments watch count", func(t *testing.T) {
		save(t, motion.ID, 40, false, now.Add(-3*time.Hour))
		save(t, motion.ID, 100, true, now.Add(-2*time.Hour))

		rec, err := repo.GetProgress(ctx, stu.ID, motion.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, rec.WatchCount)
		assert.Equal(t, float64(100), rec.CompletionPercentage)
		assert.True(t, rec.IsCompleted)
		assert.WithinDuration(t, now.Add(-2*time.Hour), rec.LastWatched, time.Second)
	})

	save(t, optics.ID, 50, false, now.Add(-time.Hour))
	save(t, algebra.ID, 30, false, now)

	t.Run("list, most recent first", func(t *testing.T) {
		entries, err := repo.ListProgress(ctx, stu.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, algebra.ID, entries[0].VideoID)
		assert.Equal(t, "Algebra", entries[0].VideoTitle)
		assert.Equal(t, "MathsSubject", entries[0].SubjectName)
		assert.Equal(t, "MathsChapter", entries[0].ChapterName)
		assert.Equal(t, optics.ID, entries[1].VideoID)
		assert.Equal(t, motion.ID, entries[2].VideoID)
	})

	t.Run("summary", func(t *testing.T) {
		sum, err := repo.SummarizeProgress(ctx, stu.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, sum.WatchedCount)
		assert.Equal(t, 1, sum.CompletedCount)
		assert.InDelta(t, 60.0, sum.AvgCompletion, 0.001)
		assert.Equal(t, 0, sum.TotalWatchTime)
	})

	t.Run("empty summary", func(t *testing.T) {
		sum, err := repo.SummarizeProgress(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, progress.Summary{}, sum)
	})

	t.Run("subject breakdown", func(t *testing.T) {
		breakdown, err := repo.SubjectBreakdown(ctx, stu.ID)
		require.NoError(t, err)
		require.Len(t, breakdown, 2)

		assert.Equal(t, "MathsSubject", breakdown[0].SubjectName)
		assert.Equal(t, 1, breakdown[0].VideosWatched)
		assert.Equal(t, 0, breakdown[0].Completed)

		assert.Equal(t, sci.Subject.ID, breakdown[1].SubjectID)
		assert.Equal(t, 2, breakdown[1].VideosWatched)
		assert.InDelta(t, 75.0, breakdown[1].AvgProgress, 0.001)
		assert.Equal(t, 1, breakdown[1].Completed)
	})

	t.Run("rows outlive deleted videos", func(t *testing.T) {
		require.NoError(t, vidRepo.DeleteVideo(ctx, optics.ID))

		entries, err := repo.ListProgress(ctx, stu.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, optics.ID, entries[1].VideoID)
		assert.Empty(t, entries[1].VideoTitle)

		breakdown, err := repo.SubjectBreakdown(ctx, stu.ID)
		require.NoError(t, err)
		require.Len(t, breakdown, 2)
		assert.Equal(t, 1, breakdown[1].VideosWatched)
	})
}
