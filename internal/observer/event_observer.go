package observer

import (
	"context"
	"sync"
	"time"

	"github.com/anime-shed/lecture-indexer-go/internal/metrics"

	"github.com/sirupsen/logrus"
)

// JobEvent represents a job lifecycle event
type JobEvent struct {
	EventType      EventType     `json:"event_type"`
	Timestamp      time.Time     `json:"timestamp"`
	JobID          string        `json:"job_id"`
	Filename       string        `json:"filename,omitempty"`
	Status         string        `json:"status"`
	ProcessingTime time.Duration `json:"processing_time,omitempty"`
	FrameCount     int           `json:"frame_count,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// EventType represents the type of job event
type EventType string

const (
	// JobQueued when an upload has been stored and enqueued
	JobQueued EventType = "job_queued"
	// JobStarted when a worker picks the job up
	JobStarted EventType = "job_started"
	// JobCompleted when the report has been written
	JobCompleted EventType = "job_completed"
	// JobFailed when the job ends without a report
	JobFailed EventType = "job_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event JobEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event JobEvent)
}

// LoggingObserver logs job events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles job events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event JobEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"job_id":     event.JobID,
		"status":     event.Status,
	}
	if event.Filename != "" {
		fields["filename"] = event.Filename
	}
	if event.ProcessingTime > 0 {
		fields["processing_time"] = event.ProcessingTime.String()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case JobQueued:
		entry.Info("Job queued")
	case JobStarted:
		entry.Info("Job started")
	case JobCompleted:
		entry.WithField("frame_count", event.FrameCount).Info("Job completed")
	case JobFailed:
		entry.Error("Job failed")
	default:
		entry.Info("Job event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver counts job lifecycle transitions in Prometheus
type MetricsObserver struct{}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() Observer {
	return &MetricsObserver{}
}

// OnEvent handles job events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event JobEvent) {
	metrics.JobsTotal.WithLabelValues(event.Status).Inc()
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event JobEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(context.WithoutCancel(ctx), event)
		}(observer)
	}
}

// Wait blocks until every notification started so far has been handled
func (p *EventPublisher) Wait() {
	p.inflight.Wait()
}
