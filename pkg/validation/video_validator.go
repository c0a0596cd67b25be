package validation

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
)

// SupportedVideoFormats is the upload allow-list, lowercase with leading dot
var SupportedVideoFormats = []string{".mp4", ".avi", ".mov", ".mkv", ".wmv"}

// IsSupportedVideo reports whether filename carries an allowed extension, ignoring case
func IsSupportedVideo(filename string) bool {
	return slices.Contains(SupportedVideoFormats, strings.ToLower(filepath.Ext(filename)))
}

// ValidateVideoFilename returns a validation error for names outside the allow-list
func ValidateVideoFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return apperrors.NewValidationError("No file provided", nil)
	}
	if !IsSupportedVideo(filename) {
		return apperrors.NewValidationError(
			"Invalid video file format",
			fmt.Errorf("unsupported extension %q, allowed: %s", filepath.Ext(filename), strings.Join(SupportedVideoFormats, ", ")),
		)
	}
	return nil
}
