package models

import "strings"

// Annotation is the record produced for one selected keyframe.
type Annotation struct {
	Timestamp        string `json:"timestamp"`
	ExtractedText    string `json:"extracted_text"`
	ImageDescription string `json:"image_description"`
}

// Report represents the complete result of one pipeline run
type Report struct {
	Success            bool         `json:"success"`
	Message            string       `json:"message"`
	ExtractedText      []string     `json:"extracted_text"`
	DetailedExtraction []Annotation `json:"detailed_extraction"`
	FrameCount         int          `json:"frame_count"`
	ProcessingTime     float64      `json:"processing_time"`
}

// NewFailedReport builds the success=false report returned when a video cannot be processed.
func NewFailedReport(message string) *Report {
	return &Report{
		Success:            false,
		Message:            message,
		ExtractedText:      []string{},
		DetailedExtraction: []Annotation{},
	}
}

// UniqueTexts returns the non-empty extracted texts of the annotations,
// deduplicated case-sensitively in first-seen order.
func UniqueTexts(annotations []Annotation) []string {
	seen := make(map[string]struct{}, len(annotations))
	texts := make([]string, 0, len(annotations))
	for _, a := range annotations {
		text := strings.TrimSpace(a.ExtractedText)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		texts = append(texts, text)
	}
	return texts
}

// OCRAccuracy compares the extracted text of a report against a reference transcript.
type OCRAccuracy struct {
	ReferenceWords int     `json:"reference_words"`
	WER            float64 `json:"wer"`
	CER            float64 `json:"cer"`
	EditDistance   int     `json:"edit_distance"`
}
