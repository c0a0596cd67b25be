package jobs

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/anime-shed/lecture-indexer-go/internal/logger"
	"github.com/anime-shed/lecture-indexer-go/internal/metrics"
)

// WorkerPool runs submitted tasks on a fixed number of workers fed by a bounded queue
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once

	mu     sync.RWMutex
	closed bool

	totalJobs     atomic.Int64
	completedJobs atomic.Int64
	panickedJobs  atomic.Int64
	activeWorkers atomic.Int64
}

// PoolStats is a point-in-time view of the pool counters
type PoolStats struct {
	TotalJobs     int64
	CompletedJobs int64
	PanickedJobs  int64
	ActiveWorkers int64
	QueuedJobs    int
}

// NewWorkerPool creates a pool with the given number of workers and queue capacity
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), queueSize),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

// worker processes jobs from the job queue
func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		metrics.QueueDepth.Set(float64(len(wp.jobQueue)))
		wp.run(job)
	}
}

func (wp *WorkerPool) run(job func()) {
	wp.activeWorkers.Add(1)
	metrics.ActiveWorkers.Inc()
	defer func() {
		if r := recover(); r != nil {
			wp.panickedJobs.Add(1)
			logger.WithField("panic", r).Error("Worker task panicked")
		}
		wp.completedJobs.Add(1)
		wp.activeWorkers.Add(-1)
		metrics.ActiveWorkers.Dec()
		wp.wg.Done()
	}()
	job()
}

// Submit enqueues a job without blocking. It returns false when the queue
// is full or the pool has been closed.
func (wp *WorkerPool) Submit(job func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}

	wp.wg.Add(1)
	select {
	case wp.jobQueue <- job:
		wp.totalJobs.Add(1)
		metrics.QueueDepth.Set(float64(len(wp.jobQueue)))
		return true
	default:
		wp.wg.Done()
		return false
	}
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Close stops accepting jobs; queued jobs still run. Safe to call more than once.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return
	}
	wp.closed = true
	close(wp.jobQueue)
}

// Closed reports whether Close has been called
func (wp *WorkerPool) Closed() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.closed
}

// GetStats returns the current counters
func (wp *WorkerPool) GetStats() PoolStats {
	return PoolStats{
		TotalJobs:     wp.totalJobs.Load(),
		CompletedJobs: wp.completedJobs.Load(),
		PanickedJobs:  wp.panickedJobs.Load(),
		ActiveWorkers: wp.activeWorkers.Load(),
		QueuedJobs:    len(wp.jobQueue),
	}
}
