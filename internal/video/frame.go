package video

import (
	"fmt"
	"image"
	"math"
)

// Frame is one decoded raster image with its position in the stream.
type Frame struct {
	Image     *image.RGBA
	Index     int
	Timestamp string
}

// FormatTimestamp renders index/fps as HH:MM:SS, truncating fractional seconds.
func FormatTimestamp(index int, fps float64) string {
	if fps <= 0 || index < 0 {
		return "00:00:00"
	}
	secs := int(math.Floor(float64(index) / fps))
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// rgb24ToRGBA expands packed rgb24 bytes into a new RGBA image.
func rgb24ToRGBA(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(buf) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
