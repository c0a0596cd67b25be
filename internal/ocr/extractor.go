package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	"github.com/anime-shed/lecture-indexer-go/internal/analyzer"
	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultConfidenceThreshold keeps words the engine is more than 50% sure about.
const DefaultConfidenceThreshold = 0.5

// Mode records which extraction step produced a Result.
type Mode string

const (
	ModeFiltered Mode = "filtered"
	ModeFallback Mode = "fallback"
	ModeFailed   Mode = "failed"
)

// Result is the outcome of extracting text from one frame.
// Degraded holds the ocr_degraded error when the fallback step ran.
type Result struct {
	Text     string
	Mode     Mode
	Degraded error
	Err      error
}

// Extractor binarises frames and runs confidence-filtered OCR with a whole-image fallback.
type Extractor struct {
	engine    Engine
	binarizer analyzer.Binarizer
	threshold float64
}

// NewExtractor creates an extractor. A threshold outside [0, 1] uses the default.
func NewExtractor(engine Engine, binarizer analyzer.Binarizer, threshold float64) *Extractor {
	if binarizer == nil {
		binarizer = analyzer.NewOCRPreprocessor()
	}
	if threshold < 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	return &Extractor{engine: engine, binarizer: binarizer, threshold: threshold}
}

// WithThreshold returns a copy using a different confidence threshold.
func (e *Extractor) WithThreshold(threshold float64) *Extractor {
	return NewExtractor(e.engine, e.binarizer, threshold)
}

// Threshold returns the confidence threshold in [0, 1]
func (e *Extractor) Threshold() float64 {
	return e.threshold
}

// Extract never fails the frame: errors end up in the Result.
func (e *Extractor) Extract(ctx context.Context, img image.Image) Result {
	ctx, span := otel.Tracer("ocr").Start(ctx, "ocr.Extract")
	defer span.End()

	var buf bytes.Buffer
	if err := png.Encode(&buf, e.binarizer.Binarize(img)); err != nil {
		return Result{Mode: ModeFailed, Err: apperrors.NewInternalError("encode binarised frame", err)}
	}
	encoded := buf.Bytes()

	text, err := e.filtered(ctx, encoded)
	if err == nil {
		span.SetAttributes(attribute.String("ocr.mode", string(ModeFiltered)))
		return Result{Text: text, Mode: ModeFiltered}
	}

	degraded := apperrors.NewOCRDegradedError("confidence-aware extraction failed", err)
	logger.WithError(degraded).Warn("Falling back to unfiltered OCR")

	fallback, ferr := e.engine.Text(ctx, encoded)
	if ferr != nil {
		logger.WithError(ferr).WithFields(logrus.Fields{
			"step": "fallback",
		}).Error("OCR failed")
		span.SetAttributes(attribute.String("ocr.mode", string(ModeFailed)))
		return Result{Mode: ModeFailed, Degraded: degraded, Err: ferr}
	}

	span.SetAttributes(attribute.String("ocr.mode", string(ModeFallback)))
	return Result{Text: strings.TrimSpace(fallback), Mode: ModeFallback, Degraded: degraded}
}

func (e *Extractor) filtered(ctx context.Context, encoded []byte) (string, error) {
	words, err := e.engine.Words(ctx, encoded)
	if err != nil {
		return "", err
	}
	return FilterWords(words, e.threshold), nil
}

// FilterWords keeps words whose truncated confidence is strictly above threshold*100
// and joins them with single spaces in their original order.
func FilterWords(words []Word, threshold float64) string {
	kept := make([]string, 0, len(words))
	cutoff := threshold * 100
	for _, w := range words {
		if float64(int(w.Confidence)) <= cutoff {
			continue
		}
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		kept = append(kept, text)
	}
	return strings.Join(kept, " ")
}
