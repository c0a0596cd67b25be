// Command extract runs the lecture pipeline on one local video and writes result.json.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anime-shed/lecture-indexer-go/internal/config"
	"github.com/anime-shed/lecture-indexer-go/internal/container"
	"github.com/anime-shed/lecture-indexer-go/internal/evaluation"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"
	"github.com/anime-shed/lecture-indexer-go/internal/storage"
	"github.com/anime-shed/lecture-indexer-go/pkg/models"
	"github.com/anime-shed/lecture-indexer-go/pkg/validation"
)

func main() {
	videoPath := flag.String("video", "", "path to the lecture video (required)")
	outputDir := flag.String("output", "", "directory for result.json (default: next to the video)")
	confidence := flag.Float64("confidence", -1, "OCR confidence threshold in [0, 1] (default from OCR_CONFIDENCE_THRESHOLD)")
	expected := flag.String("expected", "", "reference transcript to score the extracted text against")
	flag.Parse()

	if *videoPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*videoPath, *outputDir, *confidence, *expected); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(videoPath, outputDir string, confidence float64, expectedPath string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// stdout carries the JSON result
	logger.Logger.SetOutput(os.Stderr)
	logger.Configure(cfg.LogLevel, "text")

	if err := validation.ValidateVideoFilename(videoPath); err != nil {
		return err
	}

	driver := container.NewDriver(cfg)
	opts := driver.Defaults()
	if confidence >= 0 {
		if confidence > 1 {
			return fmt.Errorf("--confidence must be within [0, 1], got %g", confidence)
		}
		opts = opts.WithConfidenceThreshold(confidence)
	}

	report, runErr := driver.Run(context.Background(), videoPath, opts)
	if report == nil {
		return runErr
	}

	if outputDir == "" {
		outputDir = filepath.Dir(videoPath)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := storage.WriteFileAtomic(filepath.Join(outputDir, storage.ResultFileName), data); err != nil {
		return err
	}
	fmt.Println(string(data))

	if expectedPath != "" && report.Success {
		if err := printAccuracy(report, expectedPath); err != nil {
			return err
		}
	}
	return runErr
}

func printAccuracy(report *models.Report, expectedPath string) error {
	reference, err := os.ReadFile(expectedPath)
	if err != nil {
		return fmt.Errorf("read expected transcript: %w", err)
	}
	acc := evaluation.CompareReport(report, string(reference))
	fmt.Fprintf(os.Stderr, "reference words: %d\nWER: %.4f\nCER: %.4f\nedit distance: %d\n",
		acc.ReferenceWords, acc.WER, acc.CER, acc.EditDistance)
	return nil
}
