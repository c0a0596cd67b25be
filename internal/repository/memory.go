package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/anime-shed/lecture-indexer-go/pkg/models"
)

// MemoryJobStore keeps records in process memory
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.JobRecord
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*models.JobRecord)}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *models.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.JobID]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, job.JobID)
	}
	s.jobs[job.JobID] = job.Clone()
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, jobID string) (*models.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job.Clone(), nil
}

func (s *MemoryJobStore) Update(ctx context.Context, job *models.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[job.JobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.JobID)
	}
	if current.Status != job.Status && !current.Status.CanTransitionTo(job.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, job.Status)
	}
	if current.Status == job.Status && current.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, current.Status)
	}
	s.jobs[job.JobID] = job.Clone()
	return nil
}

func (s *MemoryJobStore) List(ctx context.Context) ([]*models.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.JobRecord, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

var _ JobStore = (*MemoryJobStore)(nil)
