package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
)

// HTTPBlobStore talks to a file service exposing
// POST {base}/files (multipart field "file") -> {"id": "...", "url": "..."}
// and GET on the returned url.
type HTTPBlobStore struct {
	baseURL      string
	uploadClient *resty.Client // uploads are not idempotent; no retries
	fetchClient  *resty.Client
	logger       *zap.Logger
}

type uploadResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

const (
	fetchRetries      = 2
	fetchRetryWait    = 500 * time.Millisecond
	fetchRetryMaxWait = 2 * time.Second
)

// NewHTTPBlobStore creates the client. token is sent as a bearer token when set.
func NewHTTPBlobStore(baseURL, token string, timeout time.Duration, logger *zap.Logger) *HTTPBlobStore {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")

	fetch := newRestyClient(baseURL, token, timeout).
		SetRetryCount(fetchRetries).
		SetRetryWaitTime(fetchRetryWait).
		SetRetryMaxWaitTime(fetchRetryMaxWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode() >= http.StatusInternalServerError
		})

	return &HTTPBlobStore{
		baseURL:      baseURL,
		uploadClient: newRestyClient(baseURL, token, timeout),
		fetchClient:  fetch,
		logger:       logger,
	}
}

func newRestyClient(baseURL, token string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return client
}

var _ BlobStore = (*HTTPBlobStore)(nil)

// Upload sends data as a multipart file and returns its retrieval url.
func (s *HTTPBlobStore) Upload(ctx context.Context, data []byte, contentType, name string) (string, error) {
	var out uploadResponse
	resp, err := s.uploadClient.R().
		SetContext(ctx).
		SetMultipartField("file", name, contentType, bytes.NewReader(data)).
		SetResult(&out).
		Post("/files")
	if err != nil {
		s.logger.Warn("blob upload failed", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	if resp.IsError() {
		s.logger.Warn("blob upload rejected",
			zap.String("name", name),
			zap.Int("status_code", resp.StatusCode()),
		)
		return "", fmt.Errorf("%w: status %d", domain.ErrUploadFailed, resp.StatusCode())
	}

	switch {
	case out.URL != "":
		return out.URL, nil
	case out.ID != "":
		return s.baseURL + "/files/" + out.ID, nil
	default:
		return "", fmt.Errorf("%w: response carries no locator", domain.ErrUploadFailed)
	}
}

// Fetch downloads the object behind locator.
func (s *HTTPBlobStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	resp, err := s.fetchClient.R().
		SetContext(ctx).
		Get(locator)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", locator, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch %s: status %d", locator, resp.StatusCode())
	}
	return resp.Body(), nil
}
