package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anime-shed/lecture-indexer-go/internal/config"
	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/internal/pipeline"
	"github.com/anime-shed/lecture-indexer-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJobs struct {
	submitted   string
	submitErr   error
	submitURL   string
	status      *models.JobStatusResponse
	result      *models.Report
	err         error
	artifact    string
	artifactErr error
}

func (f *fakeJobs) Submit(ctx context.Context, video io.Reader, filename string) (string, error) {
	data, _ := io.ReadAll(video)
	f.submitted = filename + ":" + string(data)
	return "job-1", f.submitErr
}

func (f *fakeJobs) SubmitURL(ctx context.Context, videoURL string) (string, error) {
	f.submitURL = videoURL
	return "job-2", f.submitErr
}

func (f *fakeJobs) Status(ctx context.Context, jobID string) (*models.JobStatusResponse, error) {
	return f.status, f.err
}

func (f *fakeJobs) Result(ctx context.Context, jobID string) (*models.Report, error) {
	return f.result, f.err
}

func (f *fakeJobs) ArtifactPath(ctx context.Context, jobID, filename string) (string, error) {
	return f.artifact, f.artifactErr
}

type fakeExtractor struct {
	opts     pipeline.Options
	filename string
	report   *models.Report
	err      error
}

func (f *fakeExtractor) RunReader(ctx context.Context, r io.Reader, filename string, opts pipeline.Options) (*models.Report, error) {
	f.opts = opts
	f.filename = filename
	return f.report, f.err
}

func (f *fakeExtractor) Defaults() pipeline.Options { return pipeline.DefaultOptions() }

func testConfig() *config.Config {
	return &config.Config{MaxRequestBodySize: 1 << 20}
}

func multipartBody(t *testing.T, field, filename, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndFormats(t *testing.T) {
	h := NewHandler(&fakeJobs{}, &fakeExtractor{}, &config.Config{MaxRequestBodySize: 104857600})

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]string](t, rec)
		assert.Equal(t, "available", body["status"])
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/supported-formats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	formats := decode[models.SupportedFormatsResponse](t, rec)
	assert.Equal(t, []string{".mp4", ".avi", ".mov", ".mkv", ".wmv"}, formats.SupportedFormats)
	assert.Equal(t, "100MB", formats.MaxFileSize)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractText(t *testing.T) {
	okReport := &models.Report{
		Success:            true,
		Message:            "Successfully extracted text from 1 frames",
		ExtractedText:      []string{"Chapter 1"},
		DetailedExtraction: []models.Annotation{{Timestamp: "00:00:00", ExtractedText: "Chapter 1"}},
		FrameCount:         1,
	}

	tests := []struct {
		name       string
		field      string
		filename   string
		form       map[string]string
		extractor  *fakeExtractor
		wantStatus int
		wantThresh float64
	}{
		{"default threshold", "video_file", "talk.MP4", nil, &fakeExtractor{report: okReport}, http.StatusOK, 0.5},
		{"custom threshold", "video_file", "talk.mkv", map[string]string{"confidence_threshold": "0.8"}, &fakeExtractor{report: okReport}, http.StatusOK, 0.8},
		{"bad threshold", "video_file", "talk.mkv", map[string]string{"confidence_threshold": "1.5"}, &fakeExtractor{}, http.StatusBadRequest, 0},
		{"bad extension", "video_file", "slides.pdf", nil, &fakeExtractor{}, http.StatusBadRequest, 0},
		{"missing file", "", "", nil, &fakeExtractor{}, http.StatusBadRequest, 0},
		{
			"unreadable video",
			"video_file", "broken.avi", nil,
			&fakeExtractor{
				report: models.NewFailedReport("Could not open video file: moov atom not found"),
				err:    apperrors.NewUnreadableVideoError("Could not open video file", nil),
			},
			http.StatusOK, 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeJobs{}, tt.extractor, testConfig())
			body, contentType := multipartBody(t, tt.field, tt.filename, "bytes", tt.form)
			req := httptest.NewRequest(http.MethodPost, "/extract-text", body)
			req.Header.Set("Content-Type", contentType)

			rec := serve(h, req)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				errBody := decode[models.ErrorResponse](t, rec)
				assert.Equal(t, http.StatusText(tt.wantStatus), errBody.Error)
				return
			}

			report := decode[models.Report](t, rec)
			assert.Equal(t, tt.extractor.report.Success, report.Success)
			assert.Equal(t, tt.extractor.report.Message, report.Message)
			assert.Equal(t, tt.wantThresh, tt.extractor.opts.ConfidenceThreshold)
			assert.Equal(t, tt.filename, tt.extractor.filename)
		})
	}
}

func TestUpload(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		jobs := &fakeJobs{}
		h := NewHandler(jobs, &fakeExtractor{}, testConfig())
		body, contentType := multipartBody(t, "file", "week1.mp4", "video", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := serve(h, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decode[models.UploadResponse](t, rec)
		assert.Equal(t, "job-1", resp.JobID)
		assert.Equal(t, models.JobStatusQueued, resp.Status)
		assert.Equal(t, "week1.mp4:video", jobs.submitted)
	})

	t.Run("queue full", func(t *testing.T) {
		jobs := &fakeJobs{submitErr: apperrors.NewOverloadedError("job queue is full", nil)}
		h := NewHandler(jobs, &fakeExtractor{}, testConfig())
		body, contentType := multipartBody(t, "file", "week1.mp4", "video", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := serve(h, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		h := NewHandler(&fakeJobs{}, &fakeExtractor{}, &config.Config{MaxRequestBodySize: 64})
		body, contentType := multipartBody(t, "file", "week1.mp4", strings.Repeat("v", 4096), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := serve(h, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestUploadURL(t *testing.T) {
	jobs := &fakeJobs{}
	h := NewHandler(jobs, &fakeExtractor{}, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-url", strings.NewReader(`{"url":"https://example.com/a.mp4"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://example.com/a.mp4", jobs.submitURL)

	req = httptest.NewRequest(http.MethodPost, "/api/upload-url", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusAndResult(t *testing.T) {
	failed := "Could not open video file"

	tests := []struct {
		name       string
		path       string
		jobs       *fakeJobs
		wantStatus int
		wantMsg    string
	}{
		{
			"status ok", "/api/status/job-1",
			&fakeJobs{status: &models.JobStatusResponse{JobID: "job-1", Status: models.JobStatusFailed, Error: &failed}},
			http.StatusOK, "",
		},
		{"status unknown", "/api/status/nope", &fakeJobs{err: apperrors.NewJobNotFoundError("nope")}, http.StatusNotFound, "job not found"},
		{"result ok", "/api/result/job-1", &fakeJobs{result: &models.Report{Success: true}}, http.StatusOK, ""},
		{"result not ready", "/api/result/job-1", &fakeJobs{err: apperrors.NewJobNotReadyError("processing")}, http.StatusBadRequest, "job status is processing"},
		{"result unknown", "/api/result/nope", &fakeJobs{err: apperrors.NewJobNotFoundError("nope")}, http.StatusNotFound, "job not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.jobs, &fakeExtractor{}, testConfig())
			rec := serve(h, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decode[models.ErrorResponse](t, rec).Message)
			}
		})
	}

	h := NewHandler(tests[0].jobs, &fakeExtractor{}, testConfig())
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/status/job-1", nil))
	status := decode[models.JobStatusResponse](t, rec)
	require.NotNil(t, status.Error)
	assert.Equal(t, failed, *status.Error)
}

func TestDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"success":true}`), 0o644))

	h := NewHandler(&fakeJobs{artifact: path}, &fakeExtractor{}, testConfig())
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/download/job-1/result.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "result.json")
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	h = NewHandler(&fakeJobs{artifactErr: apperrors.NewNotFoundError("file not found", nil)}, &fakeExtractor{}, testConfig())
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/download/job-1/missing.mp4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
