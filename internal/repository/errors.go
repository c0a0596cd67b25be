package repository

import "errors"

var (
	// ErrJobNotFound indicates no job exists with the given id
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists indicates a job with the same id was already created
	ErrJobExists = errors.New("job already exists")

	// ErrInvalidTransition indicates a status change that would move a job backwards
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
