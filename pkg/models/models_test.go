package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueTexts(t *testing.T) {
	annotations := []Annotation{
		{Timestamp: "00:00:01", ExtractedText: "Intro"},
		{Timestamp: "00:00:02", ExtractedText: ""},
		{Timestamp: "00:00:03", ExtractedText: "Intro"},
		{Timestamp: "00:00:04", ExtractedText: "intro"},
		{Timestamp: "00:00:05", ExtractedText: "   "},
		{Timestamp: "00:00:06", ExtractedText: "Summary"},
	}

	got := UniqueTexts(annotations)

	assert.Equal(t, []string{"Intro", "intro", "Summary"}, got)
	for _, text := range got {
		assert.NotEmpty(t, text)
	}
}

func TestUniqueTexts_Empty(t *testing.T) {
	got := UniqueTexts(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestJobStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		allowed  bool
	}{
		{JobStatusQueued, JobStatusProcessing, true},
		{JobStatusQueued, JobStatusFailed, true},
		{JobStatusQueued, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusQueued, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusFailed, JobStatusQueued, false},
		{JobStatusFailed, JobStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJobRecord_ResultAndErrorExclusive(t *testing.T) {
	job := NewJobRecord("id-1", "lecture.mp4")
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Nil(t, job.Result)
	assert.Nil(t, job.Error)

	job.MarkProcessing()
	job.MarkCompleted(&Report{Success: true})
	assert.NotNil(t, job.Result)
	assert.Nil(t, job.Error)

	failed := NewJobRecord("id-2", "lecture.mp4")
	failed.MarkProcessing()
	failed.MarkFailed("boom")
	assert.Nil(t, failed.Result)
	if assert.NotNil(t, failed.Error) {
		assert.Equal(t, "boom", *failed.Error)
	}
}

func TestJobRecord_CloneIsIndependent(t *testing.T) {
	job := NewJobRecord("id-1", "lecture.mp4")
	job.MarkFailed("original")

	clone := job.Clone()
	*clone.Error = "changed"

	assert.Equal(t, "original", *job.Error)
}
