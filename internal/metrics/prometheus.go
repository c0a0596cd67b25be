package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lecture_jobs_total",
		Help: "Total number of extraction jobs by terminal or initial status",
	}, []string{"status"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lecture_job_duration_seconds",
		Help:    "Wall-clock duration of a pipeline run",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	FramesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lecture_frames_scanned_total",
		Help: "Total number of decoded frames across all runs",
	})

	KeyframesSelectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lecture_keyframes_selected_total",
		Help: "Total number of frames selected for annotation",
	})

	AnnotationStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lecture_annotation_step_seconds",
		Help:    "Duration of each annotation step",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	OCRResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lecture_ocr_results_total",
		Help: "OCR outcomes by extraction mode",
	}, []string{"mode"})

	DescriptionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lecture_description_failures_total",
		Help: "Frame descriptions that were blocked or unavailable",
	}, []string{"reason"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lecture_active_workers",
		Help: "Number of workers currently running a job",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lecture_queue_depth",
		Help: "Number of jobs waiting for a worker",
	})
)
