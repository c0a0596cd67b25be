package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

type VideoFetcher interface {
	// FetchVideo returns the response body and a file name derived from the URL.
	// The caller must close the body.
	FetchVideo(ctx context.Context, videoURL string) (io.ReadCloser, string, error)
}

// HTTPVideoFetcher downloads videos with a small retry budget
type HTTPVideoFetcher struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
}

// NewHTTPVideoFetcher creates a fetcher whose timeout covers the whole download
func NewHTTPVideoFetcher(timeout time.Duration) *HTTPVideoFetcher {
	transport := &http.Transport{
		// Downloads are large and rare; keep few idle connections
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		// Video containers are already compressed
		DisableCompression:     true,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPVideoFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		attempts: 3,
		backoff:  time.Second,
	}
}

// WithBackoff sets the base delay between retries
func (h *HTTPVideoFetcher) WithBackoff(d time.Duration) *HTTPVideoFetcher {
	h.backoff = d
	return h
}

func (h *HTTPVideoFetcher) FetchVideo(ctx context.Context, videoURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "video/*, application/octet-stream, */*")
	req.Header.Set("User-Agent", "Lecture-Indexer/1.0")

	// Only transient failures are retried: transport errors and 5xx
	var lastErr error
	for attempt := 0; attempt < h.attempts; attempt++ {
		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode == http.StatusOK {
			return resp.Body, fileNameFromURL(resp.Request.URL), nil
		} else {
			resp.Body.Close()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, "", fmt.Errorf("failed to fetch video: client error: status code %d", resp.StatusCode)
			}
			if resp.StatusCode < 500 {
				return nil, "", fmt.Errorf("failed to fetch video: unexpected status code %d", resp.StatusCode)
			}
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
		}

		if attempt < h.attempts-1 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	return nil, "", fmt.Errorf("failed to fetch video after %d attempts: %w", h.attempts, lastErr)
}

func fileNameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
