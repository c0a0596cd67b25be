package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"

	"github.com/sirupsen/logrus"
)

// FFmpegOpener decodes videos by piping raw rgb24 frames out of an ffmpeg process.
type FFmpegOpener struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegOpener creates an opener; empty paths fall back to binaries on PATH.
func NewFFmpegOpener(ffmpegPath, ffprobePath string) *FFmpegOpener {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegOpener{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

func (o *FFmpegOpener) Open(ctx context.Context, path string) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewUnreadableVideoError("Could not open video file", err)
	}
	if fi.Size() == 0 {
		return nil, apperrors.NewUnreadableVideoError("Could not open video file: file is empty", nil)
	}

	info, err := Probe(ctx, o.ffprobePath, path)
	if err != nil {
		return nil, apperrors.NewUnreadableVideoError("Could not open video file", err)
	}

	cmd := exec.CommandContext(ctx, o.ffmpegPath,
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.NewUnreadableVideoError("Could not open video file", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, apperrors.NewUnreadableVideoError("Could not start decoder", err)
	}

	logger.WithFields(logrus.Fields{
		"path":     path,
		"width":    info.Width,
		"height":   info.Height,
		"rotation": info.Rotation,
		"fps":      info.FrameRate,
		"codec":    info.Codec,
	}).Debug("Opened video")

	// ffmpeg autorotates, so frames arrive at the display size
	return &ffmpegSource{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		info:   info,
		buf:    make([]byte, info.Width*info.Height*3),
	}, nil
}

type ffmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	info   *StreamInfo
	buf    []byte
	index  int
	done   bool
	once   sync.Once
}

func (s *ffmpegSource) FrameRate() float64 {
	return s.info.FrameRate
}

// Next reads one frame. A short read or pipe error ends the stream.
func (s *ffmpegSource) Next(ctx context.Context) (*Frame, error) {
	if s.done {
		return nil, io.EOF
	}

	if _, err := io.ReadFull(s.stdout, s.buf); err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			gap := apperrors.NewFrameDecodeGapError(fmt.Sprintf("frame %d could not be decoded", s.index), err)
			logger.WithError(gap).WithFields(logrus.Fields{
				"frame_index": s.index,
				"stderr":      strings.TrimSpace(s.stderr.String()),
			}).Warn("Treating decode failure as end of stream")
		}
		return nil, io.EOF
	}

	frame := &Frame{
		Image:     rgb24ToRGBA(s.buf, s.info.Width, s.info.Height),
		Index:     s.index,
		Timestamp: FormatTimestamp(s.index, s.info.FrameRate),
	}
	s.index++
	return frame, nil
}

// Close stops the decoder and reaps the process. Safe to call more than once.
func (s *ffmpegSource) Close() error {
	s.once.Do(func() {
		s.done = true
		s.stdout.Close()
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		// Wait returns the kill signal as an error; it is expected here.
		_ = s.cmd.Wait()
	})
	return nil
}
