package ocr

import "context"

// Word is one recognised token with the engine's confidence on a 0-100 scale.
// Negative confidences mark layout boxes rather than words.
type Word struct {
	Text       string
	Confidence float64
}

// Engine runs OCR against an encoded image
type Engine interface {
	// Words returns tokens in reading order with per-token confidence
	Words(ctx context.Context, img []byte) ([]Word, error)

	// Text returns unfiltered whole-image text
	Text(ctx context.Context, img []byte) (string, error)
}
