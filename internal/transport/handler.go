package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/lecture-indexer-go/internal/config"
	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"
	"github.com/anime-shed/lecture-indexer-go/internal/pipeline"
	"github.com/anime-shed/lecture-indexer-go/pkg/models"
	"github.com/anime-shed/lecture-indexer-go/pkg/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// JobService is the asynchronous side of the API
type JobService interface {
	Submit(ctx context.Context, video io.Reader, filename string) (string, error)
	SubmitURL(ctx context.Context, videoURL string) (string, error)
	Status(ctx context.Context, jobID string) (*models.JobStatusResponse, error)
	Result(ctx context.Context, jobID string) (*models.Report, error)
	ArtifactPath(ctx context.Context, jobID, filename string) (string, error)
}

// Extractor runs the pipeline synchronously on an uploaded stream
type Extractor interface {
	RunReader(ctx context.Context, r io.Reader, filename string, opts pipeline.Options) (*models.Report, error)
	Defaults() pipeline.Options
}

func NewHandler(jobs JobService, extractor Extractor, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
			MaxAge:          12 * time.Hour,
		}),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/extract-text", extractText(extractor))

	api := r.Group("/api")
	api.GET("/supported-formats", supportedFormats(cfg))
	api.POST("/upload", uploadVideo(jobs))
	api.POST("/upload-url", uploadVideoURL(jobs))
	api.GET("/status/:job_id", jobStatus(jobs))
	api.GET("/result/:job_id", jobResult(jobs))
	api.GET("/download/:job_id/:filename", downloadArtifact(jobs))

	// Paths used by earlier API clients
	v1 := r.Group("/api/v1")
	v1.GET("/health", healthCheck)
	v1.GET("/supported-formats", supportedFormats(cfg))
	v1.POST("/extract-text", extractText(extractor))

	return r
}

func extractText(e Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		header, err := c.FormFile("video_file")
		if err != nil {
			respondError(c, formStatusCode(err), "video_file is required", err)
			return
		}
		if err := validation.ValidateVideoFilename(header.Filename); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid video file format", err)
			return
		}

		opts := e.Defaults()
		if raw := strings.TrimSpace(c.PostForm("confidence_threshold")); raw != "" {
			threshold, err := strconv.ParseFloat(raw, 64)
			if err != nil || threshold < 0 || threshold > 1 {
				respondError(c, http.StatusBadRequest, "invalid confidence_threshold",
					apperrors.NewValidationError("must be a number within [0, 1]", err))
				return
			}
			opts = opts.WithConfidenceThreshold(threshold)
		}

		file, err := header.Open()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Error reading uploaded file", err)
			return
		}
		defer file.Close()

		// The pipeline is not bound to the client connection
		report, err := e.RunReader(context.WithoutCancel(c.Request.Context()), file, header.Filename, opts)
		if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeUnreadable) {
			respondError(c, apperrors.GetStatusCode(err), "Error processing video", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"filename":           header.Filename,
			"success":            report.Success,
			"frame_count":        report.FrameCount,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Synchronous extraction finished")

		c.JSON(http.StatusOK, report)
	}
}

func uploadVideo(jobs JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			respondError(c, formStatusCode(err), "file is required", err)
			return
		}
		file, err := header.Open()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Error reading uploaded file", err)
			return
		}
		defer file.Close()

		jobID, err := jobs.Submit(c.Request.Context(), file, header.Filename)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "could not submit job", err)
			return
		}
		c.JSON(http.StatusCreated, models.UploadResponse{JobID: jobID, Status: models.JobStatusQueued})
	}
}

func uploadVideoURL(jobs JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UploadURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		jobID, err := jobs.SubmitURL(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "could not submit job", err)
			return
		}
		c.JSON(http.StatusCreated, models.UploadResponse{JobID: jobID, Status: models.JobStatusQueued})
	}
}

func jobStatus(jobs JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := jobs.Status(c.Request.Context(), c.Param("job_id"))
		if err != nil {
			respondAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func jobResult(jobs JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := jobs.Result(c.Request.Context(), c.Param("job_id"))
		if err != nil {
			respondAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func downloadArtifact(jobs JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename := c.Param("filename")
		path, err := jobs.ArtifactPath(c.Request.Context(), c.Param("job_id"), filename)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				respondError(c, http.StatusNotFound, "file not found", err)
				return
			}
			respondAppError(c, err)
			return
		}
		c.FileAttachment(path, filename)
	}
}

func supportedFormats(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.SupportedFormatsResponse{
			SupportedFormats: validation.SupportedVideoFormats,
			MaxFileSize:      cfg.MaxFileSizeLabel(),
		})
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// formStatusCode maps multipart parsing failures; oversized bodies get 413
func formStatusCode(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// respondAppError uses the error's own message, e.g. "job not found" or "job status is queued"
func respondAppError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondError(c, http.StatusInternalServerError, "request processing failed", err)
		return
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": appErr.StatusCode,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Warn("Request failed")

	c.AbortWithStatusJSON(appErr.StatusCode, models.ErrorResponse{
		Error:   http.StatusText(appErr.StatusCode),
		Message: appErr.Message,
	})
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
