package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(0, 0, color.Gray{Y: 254})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEngine_BlankImageHasNoWords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping tesseract test in short mode")
	}

	e := NewEngine()
	words, err := e.Words(context.Background(), blankPNG(t))
	require.NoError(t, err)
	for _, w := range words {
		assert.Empty(t, w.Text)
	}

	text, err := e.Text(context.Background(), blankPNG(t))
	require.NoError(t, err)
	assert.Empty(t, bytes.TrimSpace([]byte(text)))
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Words(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
