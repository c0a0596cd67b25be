package models

// UploadURLRequest submits a video by URL instead of multipart upload
type UploadURLRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// UploadResponse is returned when a job has been accepted
type UploadResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// SupportedFormatsResponse lists accepted containers and the upload size limit
type SupportedFormatsResponse struct {
	SupportedFormats []string `json:"supported_formats"`
	MaxFileSize      string   `json:"max_file_size"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
