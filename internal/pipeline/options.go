package pipeline

import (
	"github.com/anime-shed/lecture-indexer-go/internal/analyzer"
	"github.com/anime-shed/lecture-indexer-go/internal/ocr"
)

// Options tunes one pipeline run
type Options struct {
	// Keyframe selection
	StdThreshold float64

	// OCR
	ConfidenceThreshold float64
}

// DefaultOptions returns default run options
func DefaultOptions() Options {
	return Options{
		StdThreshold:        analyzer.DefaultStdThreshold,
		ConfidenceThreshold: ocr.DefaultConfidenceThreshold,
	}
}

// WithConfidenceThreshold returns options with a different OCR confidence cut-off in [0, 1]
func (opts Options) WithConfidenceThreshold(threshold float64) Options {
	opts.ConfidenceThreshold = threshold
	return opts
}

// WithStdThreshold returns options with a different keyframe threshold
func (opts Options) WithStdThreshold(threshold float64) Options {
	opts.StdThreshold = threshold
	return opts
}
