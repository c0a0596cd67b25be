// Package tesseract adapts gosseract to the ocr.Engine interface.
// It needs libtesseract at build time, which is why it lives apart from package ocr.
package tesseract

import (
	"context"
	"fmt"

	"github.com/anime-shed/lecture-indexer-go/internal/ocr"

	"github.com/otiai10/gosseract/v2"
)

// Engine creates one Tesseract client per call; clients are not goroutine safe.
type Engine struct {
	languages []string
}

// NewEngine creates an engine for the given languages, defaulting to English.
func NewEngine(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{languages: languages}
}

func (e *Engine) client(img []byte) (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(e.languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		client.Close()
		return nil, fmt.Errorf("set image: %w", err)
	}
	return client, nil
}

func (e *Engine) Words(ctx context.Context, img []byte) ([]ocr.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := e.client(img)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("word boxes: %w", err)
	}

	words := make([]ocr.Word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, ocr.Word{Text: box.Word, Confidence: box.Confidence})
	}
	return words, nil
}

func (e *Engine) Text(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client, err := e.client(img)
	if err != nil {
		return "", err
	}
	defer client.Close()

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("whole-image text: %w", err)
	}
	return text, nil
}

var _ ocr.Engine = (*Engine)(nil)
