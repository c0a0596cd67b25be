package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"
)

// gaussian5 is the 5-tap kernel used for a 5x5 blur with sigma derived from the size,
// scaled by 16: 0.0625, 0.25, 0.375, 0.25, 0.0625.
var gaussian5 = [5]int{1, 4, 6, 4, 1}

const parallelPixelThreshold = 100000

// OCRPreprocessor applies grayscale, Gaussian smoothing and Otsu binarisation
type OCRPreprocessor struct {
	tmpPool sync.Pool
}

// NewOCRPreprocessor creates a preprocessor
func NewOCRPreprocessor() *OCRPreprocessor {
	return &OCRPreprocessor{
		tmpPool: sync.Pool{
			New: func() interface{} {
				return make([]int32, 0, 1024)
			},
		},
	}
}

// Binarize returns a black and white version of img ready for OCR.
func (p *OCRPreprocessor) Binarize(img image.Image) *image.Gray {
	gray := ToGray(img)
	blurred := p.GaussianBlur(gray)
	return Threshold(blurred, OtsuThreshold(blurred))
}

// GaussianBlur smooths gray with a separable 5x5 kernel and reflect-101 borders.
func (p *OCRPreprocessor) GaussianBlur(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return out
	}

	tmp := p.tmpPool.Get().([]int32)
	if cap(tmp) < width*height {
		tmp = make([]int32, width*height)
	}
	tmp = tmp[:width*height]
	defer p.tmpPool.Put(tmp[:0])

	// Horizontal pass
	forEachRowStrip(width, height, func(startY, endY int) {
		for y := startY; y < endY; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
			for x := 0; x < width; x++ {
				var sum int32
				for k := -2; k <= 2; k++ {
					sum += int32(gaussian5[k+2]) * int32(row[reflect101(x+k, width)])
				}
				tmp[y*width+x] = sum
			}
		}
	})

	// Vertical pass, rounding the 1/256 total scale
	forEachRowStrip(width, height, func(startY, endY int) {
		for y := startY; y < endY; y++ {
			for x := 0; x < width; x++ {
				var sum int32
				for k := -2; k <= 2; k++ {
					sum += int32(gaussian5[k+2]) * tmp[reflect101(y+k, height)*width+x]
				}
				out.Pix[y*out.Stride+x] = uint8((sum + 128) >> 8)
			}
		}
	})

	return out
}

// OtsuThreshold picks the cut point that maximises between-class variance.
func OtsuThreshold(gray *image.Gray) uint8 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	total := width * height
	if total == 0 {
		return 0
	}

	var hist [256]int
	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
		for _, v := range row {
			hist[v]++
		}
	}

	scale := 1.0 / float64(total)
	var mu float64
	for i, count := range hist {
		mu += float64(i) * float64(count)
	}
	mu *= scale

	const eps = 1.1920929e-07 // float32 epsilon
	var q1, mu1, maxSigma float64
	threshold := 0
	for i, count := range hist {
		p := float64(count) * scale
		mu1 *= q1
		q1 += p
		q2 := 1 - q1
		if math.Min(q1, q2) < eps || math.Max(q1, q2) > 1-eps {
			continue
		}
		mu1 = (mu1 + float64(i)*p) / q1
		mu2 := (mu - q1*mu1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > maxSigma {
			maxSigma = sigma
			threshold = i
		}
	}
	return uint8(threshold)
}

// Threshold maps pixels above t to white and everything else to black.
func Threshold(gray *image.Gray, t uint8) *image.Gray {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
		dst := out.Pix[y*out.Stride : y*out.Stride+width]
		for x, v := range row {
			if v > t {
				dst[x] = 255
			}
		}
	}
	return out
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// forEachRowStrip splits rows across CPUs for large images and runs sequentially otherwise.
func forEachRowStrip(width, height int, fn func(startY, endY int)) {
	if width*height < parallelPixelThreshold {
		fn(0, height)
		return
	}

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	var wg sync.WaitGroup
	for startY := 0; startY < height; startY += rowsPerWorker {
		endY := startY + rowsPerWorker
		if endY > height {
			endY = height
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			fn(startY, endY)
		}(startY, endY)
	}
	wg.Wait()
}
