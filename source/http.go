package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPSource fetches the snapshot payload with a GET request.
//
// The endpoint may answer with the bare base64 text or with a JSON object
// carrying it in a "data" field.
type HTTPSource struct {
	url         string
	token       string
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

var _ PairingSource = (*HTTPSource)(nil)

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithBearerToken sends an Authorization header on every request.
func WithBearerToken(token string) HTTPOption {
	return func(s *HTTPSource) {
		s.token = token
	}
}

// WithRetry retries failed fetches with exponential backoff. Client errors
// other than 408 and 429 are not retried. The default is a single attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.maxAttempts = maxAttempts
		s.retryDelay = baseDelay
	}
}

// WithHTTPLogger sets a custom logger.
// Default is slog.Default().
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(s *HTTPSource) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewHTTPSource creates a source for url.
func NewHTTPSource(url string, opts ...HTTPOption) (*HTTPSource, error) {
	if url == "" {
		return nil, ErrURLRequired
	}
	s := &HTTPSource{
		url:         url,
		client:      &http.Client{Timeout: 60 * time.Second},
		maxAttempts: 1,
		retryDelay:  time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	return s, nil
}

// Fetch downloads the payload.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	return fetchWithRetry(ctx, s.url, s.maxAttempts, s.retryDelay, s.logger, s.fetchOnce)
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("snapshot downloaded", "url", s.url, "bytes", len(body), "elapsed", time.Since(start))

	return unwrapPayload(body)
}

// unwrapPayload extracts the base64 text from a {"data": "..."} envelope.
// Anything that is not a JSON object is returned untouched.
func unwrapPayload(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}

	var envelope struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: envelope: %w", ErrMalformedPayload, err)
	}
	if envelope.Data == "" {
		return nil, fmt.Errorf("%w: envelope has no data", ErrMalformedPayload)
	}
	return []byte(envelope.Data), nil
}
