package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"
	"github.com/anime-shed/lecture-indexer-go/pkg/models"
)

const (
	// ResultFileName is the report written next to each upload
	ResultFileName = "result.json"
	// StatusFileName records a failed job's error text
	StatusFileName = "status.json"
)

var (
	// ErrNoResult means the job directory holds no parseable result.json
	ErrNoResult = errors.New("no result for job")
	// ErrNoStatus means the job directory holds no parseable status.json
	ErrNoStatus = errors.New("no status for job")
)

// JobStatusFile is the terminal status persisted for jobs that end without a report.
type JobStatusFile struct {
	Status    models.JobStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// JobFiles manages the durable layout <root>/<job_id>/{<upload>, result.json, status.json}
type JobFiles struct {
	root string
}

func NewJobFiles(root string) (*JobFiles, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs dir: %w", err)
	}
	return &JobFiles{root: root}, nil
}

func (f *JobFiles) Root() string {
	return f.root
}

func (f *JobFiles) Dir(jobID string) string {
	return filepath.Join(f.root, jobID)
}

// SaveUpload streams r into the job directory under the base name of filename
// and returns the stored path.
func (f *JobFiles) SaveUpload(jobID, filename string, r io.Reader) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	dir := f.Dir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

// WriteResult stores the report as result.json via a temp file and rename,
// so readers never observe a partial document.
func (f *JobFiles) WriteResult(jobID string, report *models.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return WriteFileAtomic(filepath.Join(f.Dir(jobID), ResultFileName), data)
}

// ReadResult returns ErrNoResult when result.json is missing or not valid JSON.
func (f *JobFiles) ReadResult(jobID string) (*models.Report, error) {
	data, err := os.ReadFile(filepath.Join(f.Dir(jobID), ResultFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	return &report, nil
}

// WriteStatus stores the job's status and error text as status.json, atomically.
func (f *JobFiles) WriteStatus(job *models.JobRecord) error {
	doc := JobStatusFile{Status: job.Status, UpdatedAt: job.UpdatedAt}
	if job.Error != nil {
		doc.Error = *job.Error
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return WriteFileAtomic(filepath.Join(f.Dir(job.JobID), StatusFileName), data)
}

// ReadStatus returns ErrNoStatus when status.json is missing, not valid JSON,
// or names an unknown status.
func (f *JobFiles) ReadStatus(jobID string) (*JobStatusFile, error) {
	data, err := os.ReadFile(filepath.Join(f.Dir(jobID), StatusFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoStatus
	}
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	var doc JobStatusFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoStatus, err)
	}
	if !doc.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrNoStatus, doc.Status)
	}
	return &doc, nil
}

// ArtifactPath resolves filename inside the job directory.
func (f *JobFiles) ArtifactPath(jobID, filename string) (string, error) {
	if _, err := cleanName(jobID); err != nil {
		return "", err
	}
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	if name != filename {
		return "", apperrors.NewValidationError("invalid file name", fmt.Errorf("%q", filename))
	}

	dir := f.Dir(jobID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", apperrors.NewNotFoundError("job directory not found", err)
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", apperrors.NewNotFoundError("file not found", err)
	}
	return path, nil
}

// ListJobDirs returns the names of all job directories, sorted.
func (f *JobFiles) ListJobDirs() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("list jobs dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// UploadName returns the uploaded file's name in a job directory, if any.
func (f *JobFiles) UploadName(jobID string) string {
	entries, err := os.ReadDir(f.Dir(jobID))
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == ResultFileName || e.Name() == StatusFileName || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		return e.Name()
	}
	return ""
}

// WriteFileAtomic writes data to a sibling temp file and renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func cleanName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", apperrors.NewValidationError("invalid file name", fmt.Errorf("%q", name))
	}
	return base, nil
}
