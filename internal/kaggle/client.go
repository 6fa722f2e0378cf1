// Package kaggle downloads datasets from the Kaggle API.
package kaggle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/burqi/orderflow/internal/pipeline"
)

// ClientConfig configures the Kaggle API client.
type ClientConfig struct {
	// BaseURL of the Kaggle API (default: https://www.kaggle.com).
	BaseURL string

	// Username and Key are the API credential (basic auth).
	Username string
	Key      string

	// Timeout for individual requests (default: 5m; dataset archives can
	// be large).
	Timeout time.Duration

	// RateLimit requests per second (default: 2).
	RateLimit float64

	// RateBurst maximum burst size (default: 1).
	RateBurst int

	// UserAgent string (default: "orderflow/1.0").
	UserAgent string

	// Transport allows injecting a custom HTTP transport (for tests).
	Transport http.RoundTripper
}

// Client is a rate-limited Kaggle API client. It makes exactly one attempt
// per call; retries are the scheduler's responsibility.
type Client struct {
	config      *ClientConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a Kaggle client with the given configuration.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://www.kaggle.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2.0
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if config.UserAgent == "" {
		config.UserAgent = "orderflow/1.0"
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
}

// DownloadArchive fetches the dataset archive and writes it to destDir,
// returning the archive path. The dataset identifier is "owner/slug".
func (c *Client) DownloadArchive(ctx context.Context, dataset, destDir string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := strings.TrimSuffix(c.config.BaseURL, "/") +
		"/api/v1/datasets/download/" + strings.TrimPrefix(dataset, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.Username != "" || c.config.Key != "" {
		req.SetBasicAuth(c.config.Username, c.config.Key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &pipeline.FetchError{
			Code:      pipeline.CodeNetwork,
			Dataset:   dataset,
			Retryable: true,
			Err:       err,
		}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, dataset); err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	archivePath := filepath.Join(destDir, archiveName(dataset))
	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(archivePath)
		return "", &pipeline.FetchError{
			Code:      pipeline.CodeNetwork,
			Dataset:   dataset,
			Retryable: true,
			Err:       err,
		}
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}

	return archivePath, nil
}

func classifyStatus(status int, dataset string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &pipeline.FetchError{
			Code:      pipeline.CodeAuthInvalid,
			Dataset:   dataset,
			Retryable: false,
			Err:       fmt.Errorf("credentials rejected (status %d)", status),
		}
	case status == http.StatusNotFound:
		return &pipeline.FetchError{
			Code:      pipeline.CodeDatasetNotFound,
			Dataset:   dataset,
			Retryable: false,
			Err:       errors.New("dataset not found"),
		}
	default:
		return &pipeline.FetchError{
			Code:      pipeline.CodeNetwork,
			Dataset:   dataset,
			Retryable: status >= 500,
			Err:       fmt.Errorf("unexpected status %d", status),
		}
	}
}

// archiveName derives the local zip name from the dataset slug.
func archiveName(dataset string) string {
	slug := dataset
	if i := strings.LastIndex(dataset, "/"); i >= 0 {
		slug = dataset[i+1:]
	}
	if slug == "" {
		slug = "dataset"
	}
	return slug + ".zip"
}
