package analyzer

import (
	"image"
	"image/color"
	"testing"
)

func TestOtsuThreshold_Bimodal(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range gray.Pix {
		if i%2 == 0 {
			gray.Pix[i] = 30
		} else {
			gray.Pix[i] = 220
		}
	}

	th := OtsuThreshold(gray)
	if th < 30 || th >= 220 {
		t.Errorf("Expected threshold between the two modes, got %d", th)
	}

	bin := Threshold(gray, th)
	for i, v := range bin.Pix {
		want := uint8(0)
		if gray.Pix[i] == 220 {
			want = 255
		}
		if v != want {
			t.Fatalf("Pixel %d: expected %d, got %d", i, want, v)
		}
	}
}

func TestOtsuThreshold_Uniform(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range gray.Pix {
		gray.Pix[i] = 128
	}
	if th := OtsuThreshold(gray); th != 0 {
		t.Errorf("Expected 0 for a single-valued image, got %d", th)
	}
}

func TestGaussianBlur_PreservesUniformImage(t *testing.T) {
	p := NewOCRPreprocessor()
	gray := ToGray(createTestImage(12, 7, color.RGBA{77, 77, 77, 255}))

	blurred := p.GaussianBlur(gray)
	for i, v := range blurred.Pix {
		if v != 77 {
			t.Fatalf("Pixel %d: expected 77, got %d", i, v)
		}
	}
}

func TestGaussianBlur_SmoothsImpulse(t *testing.T) {
	p := NewOCRPreprocessor()
	gray := image.NewGray(image.Rect(0, 0, 9, 9))
	gray.SetGray(4, 4, color.Gray{Y: 255})

	blurred := p.GaussianBlur(gray)

	// Centre weight is 6*6/256 of the impulse.
	if got := blurred.GrayAt(4, 4).Y; got != 36 {
		t.Errorf("Expected centre 36, got %d", got)
	}
	if got := blurred.GrayAt(0, 0).Y; got != 0 {
		t.Errorf("Expected corner untouched, got %d", got)
	}
}

func TestGaussianBlur_LargeImageParallel(t *testing.T) {
	p := NewOCRPreprocessor()
	gray := ToGray(createTestImage(400, 300, color.RGBA{10, 10, 10, 255}))

	blurred := p.GaussianBlur(gray)
	if blurred.Bounds().Dx() != 400 || blurred.Bounds().Dy() != 300 {
		t.Fatalf("Unexpected bounds %v", blurred.Bounds())
	}
	for i, v := range blurred.Pix {
		if v != 10 {
			t.Fatalf("Pixel %d: expected 10, got %d", i, v)
		}
	}
}

func TestBinarize_OutputIsBlackAndWhite(t *testing.T) {
	p := NewOCRPreprocessor()
	bin := p.Binarize(createCornerTextImage(60, 60))

	for i, v := range bin.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("Pixel %d: expected 0 or 255, got %d", i, v)
		}
	}
}

func TestReflect101(t *testing.T) {
	tests := []struct{ i, n, want int }{
		{-2, 5, 2},
		{-1, 5, 1},
		{0, 5, 0},
		{4, 5, 4},
		{5, 5, 3},
		{6, 5, 2},
		{-1, 1, 0},
		{2, 2, 0},
	}
	for _, tt := range tests {
		if got := reflect101(tt.i, tt.n); got != tt.want {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}
