package analyzer

import "image"

// FrameSelector decides whether a frame shows new content compared to the one before it
type FrameSelector interface {
	// Observe feeds the next frame in decode order and reports whether it was selected
	Observe(img image.Image) (bool, FrameDifference)

	// Reset forgets the previous frame
	Reset()
}

// Binarizer prepares a frame for OCR
type Binarizer interface {
	Binarize(img image.Image) *image.Gray
}
