package repository

import (
	"context"
	"testing"
	"time"

	"github.com/anime-shed/lecture-indexer-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runJobStoreContract exercises behaviour every JobStore must share.
func runJobStoreContract(t *testing.T, newStore func(t *testing.T) JobStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		job := models.NewJobRecord("job-create", "lecture.mp4")
		require.NoError(t, store.Create(ctx, job))

		got, err := store.Get(ctx, "job-create")
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusQueued, got.Status)
		assert.Equal(t, "lecture.mp4", got.Filename)
		assert.Nil(t, got.Result)
		assert.Nil(t, got.Error)
	})

	t.Run("duplicate create", func(t *testing.T) {
		store := newStore(t)
		job := models.NewJobRecord("job-dup", "lecture.mp4")
		require.NoError(t, store.Create(ctx, job))
		assert.ErrorIs(t, store.Create(ctx, job), ErrJobExists)
	})

	t.Run("unknown id", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrJobNotFound)

		err = store.Update(ctx, models.NewJobRecord("missing", "x.mp4"))
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("forward transitions", func(t *testing.T) {
		store := newStore(t)
		job := models.NewJobRecord("job-forward", "lecture.mp4")
		require.NoError(t, store.Create(ctx, job))

		job.MarkProcessing()
		require.NoError(t, store.Update(ctx, job))

		report := &models.Report{
			Success:            true,
			Message:            "Successfully extracted text from 1 frames",
			ExtractedText:      []string{"Intro"},
			DetailedExtraction: []models.Annotation{{Timestamp: "00:00:00", ExtractedText: "Intro"}},
			FrameCount:         1,
			ProcessingTime:     0.5,
		}
		job.MarkCompleted(report)
		require.NoError(t, store.Update(ctx, job))

		got, err := store.Get(ctx, "job-forward")
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, report.ExtractedText, got.Result.ExtractedText)
		assert.Equal(t, 1, got.Result.FrameCount)
		assert.Nil(t, got.Error)
	})

	t.Run("backward transitions rejected", func(t *testing.T) {
		store := newStore(t)
		job := models.NewJobRecord("job-back", "lecture.mp4")
		require.NoError(t, store.Create(ctx, job))

		job.MarkProcessing()
		require.NoError(t, store.Update(ctx, job))
		job.MarkFailed("boom")
		require.NoError(t, store.Update(ctx, job))

		job.MarkProcessing()
		assert.ErrorIs(t, store.Update(ctx, job), ErrInvalidTransition)

		job.MarkFailed("again")
		assert.ErrorIs(t, store.Update(ctx, job), ErrInvalidTransition)

		got, err := store.Get(ctx, "job-back")
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusFailed, got.Status)
		require.NotNil(t, got.Error)
		assert.Equal(t, "boom", *got.Error)
	})

	t.Run("list ordered by creation", func(t *testing.T) {
		store := newStore(t)
		base := time.Now().UTC().Truncate(time.Millisecond)
		for i, id := range []string{"job-b", "job-a", "job-c"} {
			job := models.NewJobRecord(id, id+".mp4")
			job.CreatedAt = base.Add(time.Duration(i) * time.Second)
			job.UpdatedAt = job.CreatedAt
			require.NoError(t, store.Create(ctx, job))
		}

		jobs, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, "job-b", jobs[0].JobID)
		assert.Equal(t, "job-a", jobs[1].JobID)
		assert.Equal(t, "job-c", jobs[2].JobID)
	})
}
