package video

import "context"

// Source yields frames of one video in decode order.
// Next returns io.EOF once no further frame can be decoded.
type Source interface {
	FrameRate() float64
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// Opener opens a video file as a Source. It fails with an unreadable_video
// error when the container cannot be opened at all.
type Opener interface {
	Open(ctx context.Context, path string) (Source, error)
}
