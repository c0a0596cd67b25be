package video

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// StreamInfo describes the first video stream of a container.
// Width and Height are the display dimensions, which is what ffmpeg emits
// after applying the rotation in the stream's display matrix.
type StreamInfo struct {
	Width     int
	Height    int
	Rotation  int
	FrameRate float64
	Codec     string
	Duration  float64
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Tags         struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideDataList []struct {
		SideDataType string  `json:"side_data_type"`
		Rotation     float64 `json:"rotation"`
	} `json:"side_data_list"`
}

// rotation returns the display rotation in degrees, normalised to [0, 360).
// Older containers carry it as a "rotate" tag, newer ffprobe builds as display matrix side data.
func (s ffprobeStream) rotation() int {
	deg := 0
	for _, sd := range s.SideDataList {
		if sd.SideDataType == "Display Matrix" {
			deg = int(math.Round(sd.Rotation))
			break
		}
	}
	if deg == 0 && s.Tags.Rotate != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(s.Tags.Rotate)); err == nil {
			deg = v
		}
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

// Probe runs ffprobe against path and returns the first video stream.
func Probe(ctx context.Context, ffprobePath, path string) (*StreamInfo, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (*StreamInfo, error) {
	var ff ffprobeOutput
	if err := json.Unmarshal(output, &ff); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range ff.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return nil, fmt.Errorf("invalid video dimensions %dx%d", s.Width, s.Height)
		}

		fps := parseFrameRate(s.RFrameRate)
		if fps <= 0 {
			fps = parseFrameRate(s.AvgFrameRate)
		}
		if fps <= 0 {
			return nil, fmt.Errorf("unknown frame rate (r=%q avg=%q)", s.RFrameRate, s.AvgFrameRate)
		}

		info := &StreamInfo{
			Width:     s.Width,
			Height:    s.Height,
			Rotation:  s.rotation(),
			FrameRate: fps,
			Codec:     s.CodecName,
		}
		if info.Rotation == 90 || info.Rotation == 270 {
			info.Width, info.Height = info.Height, info.Width
		}
		if dur, err := strconv.ParseFloat(ff.Format.Duration, 64); err == nil {
			info.Duration = dur
		}
		return info, nil
	}
	return nil, fmt.Errorf("no video stream found")
}

// parseFrameRate parses ffprobe rationals such as "30000/1001" or plain numbers.
func parseFrameRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 0
	}
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		v, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
