package analyzer

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// DefaultStdThreshold is the spread of the difference image above which a frame counts as new content.
const DefaultStdThreshold = 4.0

// FrameDifference summarises the absolute grayscale difference between two frames
type FrameDifference struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Exceeds reports whether the difference is strictly above threshold.
func (d FrameDifference) Exceeds(threshold float64) bool {
	return d.StdDev > threshold
}

// KeyframeSelector keeps only the previous grayscale plane and one scratch buffer.
// It is not safe for concurrent use; each pipeline run owns one.
type KeyframeSelector struct {
	threshold float64
	prev      *image.Gray
	cur       *image.Gray
	diff      []float64
}

// NewKeyframeSelector creates a selector; a negative threshold falls back to the default.
func NewKeyframeSelector(threshold float64) *KeyframeSelector {
	if threshold < 0 {
		threshold = DefaultStdThreshold
	}
	return &KeyframeSelector{threshold: threshold}
}

// Threshold returns the configured std threshold
func (s *KeyframeSelector) Threshold() float64 {
	return s.threshold
}

// Observe compares img with the previously observed frame. The first frame is never selected.
// A frame whose size differs from the previous one is always selected and reported
// with a zero FrameDifference, since the planes cannot be compared pixel by pixel.
func (s *KeyframeSelector) Observe(img image.Image) (bool, FrameDifference) {
	s.cur = toGray(img, s.cur)

	if s.prev == nil {
		s.prev, s.cur = s.cur, nil
		return false, FrameDifference{}
	}

	var diff FrameDifference
	selected := false
	if s.prev.Rect.Size() != s.cur.Rect.Size() {
		selected = true
	} else {
		diff = s.difference(s.prev, s.cur)
		selected = diff.Exceeds(s.threshold)
	}

	s.prev, s.cur = s.cur, s.prev
	return selected, diff
}

// Reset forgets the previous frame
func (s *KeyframeSelector) Reset() {
	s.prev = nil
	s.cur = nil
}

func (s *KeyframeSelector) difference(a, b *image.Gray) FrameDifference {
	width, height := a.Rect.Dx(), a.Rect.Dy()
	n := width * height
	if n == 0 || b.Rect.Dx() != width || b.Rect.Dy() != height {
		return FrameDifference{}
	}
	if cap(s.diff) < n {
		s.diff = make([]float64, n)
	}
	s.diff = s.diff[:n]

	i := 0
	for y := 0; y < height; y++ {
		rowA := a.Pix[y*a.Stride : y*a.Stride+width]
		rowB := b.Pix[y*b.Stride : y*b.Stride+width]
		for x := 0; x < width; x++ {
			d := int(rowA[x]) - int(rowB[x])
			if d < 0 {
				d = -d
			}
			s.diff[i] = float64(d)
			i++
		}
	}

	// Population statistics, matching numpy's default ddof=0.
	mean, std := stat.PopMeanStdDev(s.diff, nil)
	return FrameDifference{Mean: mean, StdDev: std}
}

// Difference computes the absolute grayscale difference statistics of two same-sized frames.
func Difference(a, b image.Image) FrameDifference {
	s := &KeyframeSelector{}
	return s.difference(ToGray(a), ToGray(b))
}
