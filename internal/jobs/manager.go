package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"
	"github.com/anime-shed/lecture-indexer-go/internal/observer"
	"github.com/anime-shed/lecture-indexer-go/internal/pipeline"
	"github.com/anime-shed/lecture-indexer-go/internal/repository"
	"github.com/anime-shed/lecture-indexer-go/internal/storage"
	"github.com/anime-shed/lecture-indexer-go/pkg/models"
	"github.com/anime-shed/lecture-indexer-go/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	interruptedMessage  = "job interrupted before completion"
	queueFullMessage    = "job queue is full"
	shuttingDownMessage = "service shutting down"
	defaultURLFilename  = "video.mp4"
	mirrorTimeout       = 30 * time.Second
)

// Pipeline runs the extraction for one stored video
type Pipeline interface {
	Run(ctx context.Context, path string, opts pipeline.Options) (*models.Report, error)
	Defaults() pipeline.Options
}

// Deps are the collaborators of a Manager. Events, Mirror, Fetcher and
// URLValidator are optional.
type Deps struct {
	Store        repository.JobStore
	Files        *storage.JobFiles
	Pipeline     Pipeline
	Pool         *WorkerPool
	Events       *observer.EventPublisher
	Mirror       storage.ArtifactMirror
	Fetcher      storage.VideoFetcher
	URLValidator *validation.URLValidator
}

// Manager owns the asynchronous job lifecycle: queued -> processing -> completed|failed
type Manager struct {
	store    repository.JobStore
	files    *storage.JobFiles
	pipeline Pipeline
	pool     *WorkerPool
	events   *observer.EventPublisher
	mirror   storage.ArtifactMirror
	fetcher  storage.VideoFetcher
	urls     *validation.URLValidator
	newID    func() string
}

func NewManager(deps Deps) *Manager {
	m := &Manager{
		store:    deps.Store,
		files:    deps.Files,
		pipeline: deps.Pipeline,
		pool:     deps.Pool,
		events:   deps.Events,
		mirror:   deps.Mirror,
		fetcher:  deps.Fetcher,
		urls:     deps.URLValidator,
		newID:    uuid.NewString,
	}
	if m.mirror == nil {
		m.mirror = storage.NoopMirror{}
	}
	if m.urls == nil {
		m.urls = validation.NewURLValidator()
	}
	return m
}

// Start launches the workers
func (m *Manager) Start() {
	m.pool.Start()
}

// Shutdown stops accepting jobs and waits for running ones until ctx expires
func (m *Manager) Shutdown(ctx context.Context) error {
	m.pool.Close()

	done := make(chan struct{})
	go func() {
		m.pool.Wait()
		if m.events != nil {
			m.events.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

// Submit stores the upload, records a queued job and hands it to the worker pool.
// It never waits for the pipeline. When the queue is full or the pool is shutting
// down the job is recorded as failed and an overloaded error is returned with its id.
func (m *Manager) Submit(ctx context.Context, video io.Reader, filename string) (string, error) {
	if err := validation.ValidateVideoFilename(filename); err != nil {
		return "", err
	}

	jobID := m.newID()
	log := logger.ForJob(jobID)

	path, err := m.files.SaveUpload(jobID, filename, video)
	if err != nil {
		os.RemoveAll(m.files.Dir(jobID))
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return "", err
		}
		return "", apperrors.NewInternalError("Error saving uploaded file", err)
	}

	job := models.NewJobRecord(jobID, m.files.UploadName(jobID))
	if err := m.store.Create(ctx, job); err != nil {
		os.RemoveAll(m.files.Dir(jobID))
		return "", apperrors.NewInternalError("Error recording job", err)
	}
	m.publish(ctx, observer.JobQueued, job, nil)

	if !m.pool.Submit(func() { m.process(jobID, path) }) {
		reason := queueFullMessage
		if m.pool.Closed() {
			reason = shuttingDownMessage
		}
		log.WithField("reason", reason).Warn("Rejecting job")
		m.fail(ctx, job, reason)
		return jobID, apperrors.NewOverloadedError(reason, nil)
	}

	log.WithField("filename", job.Filename).Info("Job queued")
	return jobID, nil
}

// SubmitURL downloads a remote video and submits it like an upload
func (m *Manager) SubmitURL(ctx context.Context, videoURL string) (string, error) {
	if err := m.urls.ValidateVideoURL(videoURL); err != nil {
		return "", err
	}
	if m.fetcher == nil {
		return "", apperrors.NewInternalError("URL submission is not configured", nil)
	}

	body, name, err := m.fetcher.FetchVideo(ctx, videoURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.NewTimeoutError("Timed out downloading video", err)
		}
		return "", apperrors.NewNetworkError("Failed to download video", err)
	}
	defer body.Close()

	if !validation.IsSupportedVideo(name) {
		name = defaultURLFilename
	}
	return m.Submit(ctx, body, name)
}

// Status returns the job's lifecycle view
func (m *Manager) Status(ctx context.Context, jobID string) (*models.JobStatusResponse, error) {
	job, err := m.get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &models.JobStatusResponse{JobID: job.JobID, Status: job.Status, Error: job.Error}, nil
}

// Result returns the report of a completed job, or JobNotReady carrying the status
func (m *Manager) Result(ctx context.Context, jobID string) (*models.Report, error) {
	job, err := m.get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, apperrors.NewJobNotReadyError(string(job.Status))
	}
	if job.Result != nil {
		return job.Result, nil
	}

	report, err := m.files.ReadResult(jobID)
	if err != nil {
		return nil, apperrors.NewInternalError("Error reading job result", err)
	}
	return report, nil
}

// ArtifactPath resolves a file inside the job's directory
func (m *Manager) ArtifactPath(ctx context.Context, jobID, filename string) (string, error) {
	return m.files.ArtifactPath(jobID, filename)
}

// Restore registers job directories left by a previous process. Directories with a
// valid result become completed; all others become failed so none are silently dropped.
// A failure recorded in status.json keeps its original error text.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	ids, err := m.files.ListJobDirs()
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, jobID := range ids {
		log := logger.ForJob(jobID)
		report, resultErr := m.files.ReadResult(jobID)
		if resultErr != nil && !errors.Is(resultErr, storage.ErrNoResult) {
			log.WithError(resultErr).Warn("Could not read stored result")
		}

		job, err := m.store.Get(ctx, jobID)
		switch {
		case errors.Is(err, repository.ErrJobNotFound):
			job = models.NewJobRecord(jobID, m.files.UploadName(jobID))
			if resultErr == nil {
				job.Status = models.JobStatusCompleted
				job.Result = report
			} else {
				msg := m.restoredFailure(jobID)
				job.Status = models.JobStatusFailed
				job.Error = &msg
			}
			if err := m.store.Create(ctx, job); err != nil {
				return restored, fmt.Errorf("restore job %s: %w", jobID, err)
			}
		case err != nil:
			return restored, fmt.Errorf("restore job %s: %w", jobID, err)
		case job.Status.IsTerminal():
			continue
		case job.Status == models.JobStatusProcessing && resultErr == nil:
			job.MarkCompleted(report)
			if err := m.store.Update(ctx, job); err != nil {
				return restored, fmt.Errorf("restore job %s: %w", jobID, err)
			}
		default:
			job.MarkFailed(m.restoredFailure(jobID))
			if err := m.store.Update(ctx, job); err != nil {
				return restored, fmt.Errorf("restore job %s: %w", jobID, err)
			}
		}

		restored++
		log.WithField("status", job.Status).Info("Restored job")
	}
	return restored, nil
}

// process runs on a worker. The pipeline gets a background context so it
// outlives the request that submitted it.
func (m *Manager) process(jobID, path string) {
	ctx, span := otel.Tracer("jobs").Start(context.Background(), "jobs.process",
		trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	log := logger.ForJob(jobID)

	job, err := m.store.Get(ctx, jobID)
	if err != nil {
		log.WithError(err).Error("Queued job disappeared from the store")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			crash := apperrors.NewWorkerCrashError("worker crashed", fmt.Errorf("%v", r))
			span.RecordError(crash)
			span.SetStatus(codes.Error, "worker crash")
			log.WithFields(logrus.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Job worker panicked")
			m.fail(ctx, job, fmt.Sprintf("worker crashed: %v", r))
		}
	}()

	job.MarkProcessing()
	if err := m.store.Update(ctx, job); err != nil {
		log.WithError(err).Error("Could not mark job as processing")
		m.fail(ctx, job, fmt.Sprintf("Could not start job: %v", err))
		return
	}
	m.publish(ctx, observer.JobStarted, job, nil)

	start := time.Now()
	report, err := m.pipeline.Run(ctx, path, m.pipeline.Defaults())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		m.fail(ctx, job, failureMessage(report, err))
		return
	}
	if report == nil {
		m.fail(ctx, job, "pipeline returned no report")
		return
	}

	if err := m.files.WriteResult(jobID, report); err != nil {
		span.RecordError(err)
		m.fail(ctx, job, fmt.Sprintf("Error writing result: %v", err))
		return
	}

	job.MarkCompleted(report)
	if err := m.store.Update(ctx, job); err != nil {
		log.WithError(err).Error("Could not mark job as completed")
		return
	}
	span.SetAttributes(attribute.Int("job.frame_count", report.FrameCount))
	m.publish(ctx, observer.JobCompleted, job, &eventDetails{elapsed: time.Since(start), frames: report.FrameCount})

	m.mirrorResult(ctx, jobID, report)
}

// fail records a terminal failure, on disk first so the error text survives a restart
// even when the store is unavailable. Stores reject it when the job already finished.
func (m *Manager) fail(ctx context.Context, job *models.JobRecord, message string) {
	job.MarkFailed(message)
	if err := m.files.WriteStatus(job); err != nil {
		logger.ForJob(job.JobID).WithError(err).Warn("Could not write job status file")
	}
	if err := m.store.Update(ctx, job); err != nil {
		logger.ForJob(job.JobID).WithError(err).Error("Could not mark job as failed")
		return
	}
	m.publish(ctx, observer.JobFailed, job, nil)
}

// restoredFailure is the error text for a job restored without a result
func (m *Manager) restoredFailure(jobID string) string {
	doc, err := m.files.ReadStatus(jobID)
	if err != nil {
		if !errors.Is(err, storage.ErrNoStatus) {
			logger.ForJob(jobID).WithError(err).Warn("Could not read stored status")
		}
		return interruptedMessage
	}
	if doc.Status != models.JobStatusFailed || doc.Error == "" {
		return interruptedMessage
	}
	return doc.Error
}

func (m *Manager) mirrorResult(ctx context.Context, jobID string, report *models.Report) {
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()
	if err := m.mirror.Mirror(ctx, jobID, storage.ResultFileName, data); err != nil {
		logger.ForJob(jobID).WithError(err).Warn("Failed to mirror job result")
	}
}

func (m *Manager) get(ctx context.Context, jobID string) (*models.JobRecord, error) {
	job, err := m.store.Get(ctx, jobID)
	if errors.Is(err, repository.ErrJobNotFound) {
		return nil, apperrors.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("Error reading job", err)
	}
	return job, nil
}

type eventDetails struct {
	elapsed time.Duration
	frames  int
}

func (m *Manager) publish(ctx context.Context, eventType observer.EventType, job *models.JobRecord, details *eventDetails) {
	if m.events == nil {
		return
	}
	event := observer.JobEvent{
		EventType: eventType,
		JobID:     job.JobID,
		Filename:  job.Filename,
		Status:    string(job.Status),
	}
	if job.Error != nil {
		event.ErrorMessage = *job.Error
	}
	if details != nil {
		event.ProcessingTime = details.elapsed
		event.FrameCount = details.frames
	}
	m.events.NotifyObservers(ctx, event)
}

// failureMessage prefers the message of a failed report, which is what clients see
func failureMessage(report *models.Report, err error) string {
	if report != nil && !report.Success && report.Message != "" {
		return report.Message
	}
	return err.Error()
}
