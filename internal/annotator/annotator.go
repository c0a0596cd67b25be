package annotator

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/anime-shed/lecture-indexer-go/internal/describer"
	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"
	"github.com/anime-shed/lecture-indexer-go/internal/metrics"
	"github.com/anime-shed/lecture-indexer-go/internal/ocr"
	"github.com/anime-shed/lecture-indexer-go/pkg/models"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// TextExtractor is the OCR half of an annotation
type TextExtractor interface {
	Extract(ctx context.Context, img image.Image) ocr.Result
}

// Annotator turns a selected frame into an Annotation. Both steps always run.
type Annotator struct {
	text      TextExtractor
	describer describer.Describer
}

func New(text TextExtractor, d describer.Describer) *Annotator {
	if d == nil {
		d = describer.Disabled{}
	}
	return &Annotator{text: text, describer: d}
}

// WithTextExtractor returns a copy using a different OCR extractor.
func (a *Annotator) WithTextExtractor(text TextExtractor) *Annotator {
	return &Annotator{text: text, describer: a.describer}
}

func (a *Annotator) Annotate(ctx context.Context, img image.Image, timestamp string) models.Annotation {
	ctx, span := otel.Tracer("annotator").Start(ctx, "annotator.Annotate")
	defer span.End()
	span.SetAttributes(attribute.String("frame.timestamp", timestamp))

	start := time.Now()
	res := a.text.Extract(ctx, img)
	metrics.AnnotationStepDuration.WithLabelValues("ocr").Observe(time.Since(start).Seconds())
	metrics.OCRResultsTotal.WithLabelValues(string(res.Mode)).Inc()

	start = time.Now()
	desc, err := a.describer.Describe(ctx, img)
	metrics.AnnotationStepDuration.WithLabelValues("describe").Observe(time.Since(start).Seconds())

	fields := logrus.Fields{"timestamp": timestamp, "ocr_mode": res.Mode}
	switch {
	case err != nil:
		metrics.DescriptionFailuresTotal.WithLabelValues(describeFailureReason(err)).Inc()
		logger.WithError(err).WithFields(fields).Warn("Frame description unavailable")
	case desc.Blocked:
		blocked := apperrors.NewDescriptionBlockedError(desc.Reason)
		metrics.DescriptionFailuresTotal.WithLabelValues("blocked").Inc()
		logger.WithError(blocked).WithFields(fields).Warn("Frame description blocked")
	default:
		logger.WithFields(fields).Debug("Frame annotated")
	}

	return models.Annotation{
		Timestamp:        timestamp,
		ExtractedText:    res.Text,
		ImageDescription: describer.Marker(desc, err),
	}
}

func describeFailureReason(err error) string {
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeTimeout):
		return "timeout"
	case errors.Is(err, describer.ErrDisabled):
		return "disabled"
	default:
		return "error"
	}
}
