// Package videotest provides in-memory frame sources for tests.
package videotest

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"
	"sync/atomic"

	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/internal/video"
)

// SliceSource serves a fixed list of frames, optionally failing after FailAfter frames.
type SliceSource struct {
	Frames    []*image.RGBA
	FPS       float64
	FailAfter int
	FailErr   error

	next   int
	closes atomic.Int32
}

func (s *SliceSource) FrameRate() float64 { return s.FPS }

func (s *SliceSource) Next(ctx context.Context) (*video.Frame, error) {
	if s.FailErr != nil && s.next >= s.FailAfter {
		return nil, s.FailErr
	}
	if s.next >= len(s.Frames) {
		return nil, io.EOF
	}
	f := &video.Frame{
		Image:     s.Frames[s.next],
		Index:     s.next,
		Timestamp: video.FormatTimestamp(s.next, s.FPS),
	}
	s.next++
	return f, nil
}

func (s *SliceSource) Close() error {
	s.closes.Add(1)
	return nil
}

// Closes reports how many times Close was called.
func (s *SliceSource) Closes() int { return int(s.closes.Load()) }

// Opener maps paths to sources. Unknown paths are unreadable.
type Opener struct {
	mu      sync.Mutex
	Sources map[string]func() *SliceSource
	Any     func() *SliceSource
	opened  []*SliceSource
}

func (o *Opener) Open(ctx context.Context, path string) (video.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	build, ok := o.Sources[path]
	if !ok {
		build = o.Any
	}
	if build == nil {
		return nil, apperrors.NewUnreadableVideoError("Could not open video file", io.ErrUnexpectedEOF)
	}
	src := build()
	o.opened = append(o.opened, src)
	return src, nil
}

// Opened returns every source handed out so far.
func (o *Opener) Opened() []*SliceSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*SliceSource(nil), o.opened...)
}

// Solid returns a frame filled with one color.
func Solid(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// WithCornerText copies base and paints a striped high-contrast block over the top-left corner.
func WithCornerText(base *image.RGBA) *image.RGBA {
	img := image.NewRGBA(base.Bounds())
	copy(img.Pix, base.Pix)
	b := base.Bounds()
	for y := b.Min.Y; y < b.Min.Y+b.Dy()/3; y++ {
		for x := b.Min.X; x < b.Min.X+b.Dx()/3; x++ {
			if ((y-b.Min.Y)/4)%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

// Shifted returns a copy of base with every channel brightened by delta.
func Shifted(base *image.RGBA, delta uint8) *image.RGBA {
	img := image.NewRGBA(base.Bounds())
	for i, v := range base.Pix {
		if i%4 == 3 {
			img.Pix[i] = v
			continue
		}
		n := int(v) + int(delta)
		if n > 255 {
			n = 255
		}
		img.Pix[i] = uint8(n)
	}
	return img
}
