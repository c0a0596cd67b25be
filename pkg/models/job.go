package models

import "time"

// JobStatus is the lifecycle state of an extraction job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsValid reports whether s is a known status.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo enforces queued -> processing -> completed|failed.
// A queued job may also fail directly (rejected by a full queue).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// JobRecord tracks one asynchronous extraction job.
// Result is set iff Status is completed, Error iff Status is failed.
type JobRecord struct {
	JobID     string    `json:"job_id"`
	Filename  string    `json:"filename"`
	Status    JobStatus `json:"status"`
	Result    *Report   `json:"result,omitempty"`
	Error     *string   `json:"error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJobRecord creates a queued job.
func NewJobRecord(jobID, filename string) *JobRecord {
	now := time.Now().UTC()
	return &JobRecord{
		JobID:     jobID,
		Filename:  filename,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing moves the job to processing.
func (j *JobRecord) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now().UTC()
}

// MarkCompleted attaches the report and clears any error.
func (j *JobRecord) MarkCompleted(report *Report) {
	j.Status = JobStatusCompleted
	j.Result = report
	j.Error = nil
	j.UpdatedAt = time.Now().UTC()
}

// MarkFailed records the failure text and drops any result.
func (j *JobRecord) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.Result = nil
	j.Error = &errMsg
	j.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy safe to hand to readers.
func (j *JobRecord) Clone() *JobRecord {
	c := *j
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	return &c
}

// JobStatusResponse is the status view of a job.
type JobStatusResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Error  *string   `json:"error"`
}
