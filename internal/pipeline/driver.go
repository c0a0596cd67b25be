package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anime-shed/lecture-indexer-go/internal/analyzer"
	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"
	"github.com/anime-shed/lecture-indexer-go/internal/metrics"
	"github.com/anime-shed/lecture-indexer-go/internal/video"
	"github.com/anime-shed/lecture-indexer-go/pkg/models"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FrameAnnotator turns one selected frame into an Annotation
type FrameAnnotator interface {
	Annotate(ctx context.Context, img image.Image, timestamp string) models.Annotation
}

// AnnotatorFactory builds the annotator for one run's options
type AnnotatorFactory func(opts Options) FrameAnnotator

type runState int

const (
	stateScanning runState = iota
	stateDone
)

// Driver runs Frame Source -> Keyframe Selector -> Annotator for one video at a time.
// A Driver is safe for concurrent use; each Run owns its own selector and source.
type Driver struct {
	opener       video.Opener
	newAnnotator AnnotatorFactory
	defaults     Options
	tempDir      string
}

func NewDriver(opener video.Opener, newAnnotator AnnotatorFactory, defaults Options) *Driver {
	return &Driver{
		opener:       opener,
		newAnnotator: newAnnotator,
		defaults:     defaults,
	}
}

// WithTempDir sets where RunReader stages uploads; empty means the OS default.
func (d *Driver) WithTempDir(dir string) *Driver {
	d.tempDir = dir
	return d
}

// Defaults returns the options used when a caller has no preference
func (d *Driver) Defaults() Options {
	return d.defaults
}

// Run processes the video at path. When the video cannot be opened the returned
// report has Success=false and the error is an unreadable_video AppError.
func (d *Driver) Run(ctx context.Context, path string, opts Options) (*models.Report, error) {
	start := time.Now()
	ctx, span := otel.Tracer("pipeline").Start(ctx, "pipeline.Run")
	defer span.End()

	log := logger.WithFields(logrus.Fields{"video": filepath.Base(path)})

	src, err := d.opener.Open(ctx, path)
	if err != nil {
		unreadable := asUnreadable(err)
		span.RecordError(unreadable)
		span.SetStatus(codes.Error, "unreadable video")
		log.WithError(unreadable).Error("Could not open video")
		return models.NewFailedReport(describeOpenFailure(unreadable)), unreadable
	}
	// Released exactly once, before RunReader removes the staged file.
	defer src.Close()

	selector := analyzer.NewKeyframeSelector(opts.StdThreshold)
	annotate := d.newAnnotator(opts)
	annotations := make([]models.Annotation, 0)
	scanned := 0

	for state := stateScanning; state != stateDone; {
		frame, err := src.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				gap := apperrors.NewFrameDecodeGapError("frame source failed", err)
				log.WithError(gap).WithField("frame_index", scanned).Warn("Treating decode failure as end of stream")
			}
			state = stateDone
			continue
		}
		scanned++

		selected, diff := selector.Observe(frame.Image)
		if !selected {
			continue
		}

		log.WithFields(logrus.Fields{
			"frame_index": frame.Index,
			"timestamp":   frame.Timestamp,
			"mean_diff":   diff.Mean,
			"std_diff":    diff.StdDev,
		}).Debug("Keyframe selected")
		metrics.KeyframesSelectedTotal.Inc()
		annotations = append(annotations, annotate.Annotate(ctx, frame.Image, frame.Timestamp))
	}

	metrics.FramesScannedTotal.Add(float64(scanned))

	elapsed := time.Since(start).Seconds()
	metrics.JobDuration.Observe(elapsed)
	span.SetAttributes(
		attribute.Int("pipeline.frames_scanned", scanned),
		attribute.Int("pipeline.frames_annotated", len(annotations)),
	)

	log.WithFields(logrus.Fields{
		"frames_scanned":   scanned,
		"frames_annotated": len(annotations),
		"processing_time":  elapsed,
	}).Info("Video processed")

	return &models.Report{
		Success:            true,
		Message:            fmt.Sprintf("Successfully extracted text from %d frames", len(annotations)),
		ExtractedText:      models.UniqueTexts(annotations),
		DetailedExtraction: annotations,
		FrameCount:         len(annotations),
		ProcessingTime:     roundTo2(elapsed),
	}, nil
}

// RunReader stages r in a temporary file named after filename's extension,
// runs the pipeline, and removes the file on every exit path.
func (d *Driver) RunReader(ctx context.Context, r io.Reader, filename string, opts Options) (*models.Report, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp(d.tempDir, "upload-*"+ext)
	if err != nil {
		return models.NewFailedReport("Error saving uploaded file"), apperrors.NewInternalError("create temporary file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return models.NewFailedReport("Error saving uploaded file"), apperrors.NewInternalError("write temporary file", err)
	}
	if err := tmp.Close(); err != nil {
		return models.NewFailedReport("Error saving uploaded file"), apperrors.NewInternalError("close temporary file", err)
	}

	return d.Run(ctx, tmp.Name(), opts)
}

func asUnreadable(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeUnreadable {
		return appErr
	}
	return apperrors.NewUnreadableVideoError("Could not open video file", err)
}

func describeOpenFailure(err *apperrors.AppError) string {
	if err.Cause != nil {
		return fmt.Sprintf("%s: %v", err.Message, err.Cause)
	}
	return err.Message
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
