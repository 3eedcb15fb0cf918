// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// StatusError is a non-2xx answer from the snapshot endpoint.
type StatusError struct {
	Code       int
	Status     string
	RetryAfter time.Duration // From the Retry-After header, zero if absent
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnexpectedStatus, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Temporary reports whether the same request may succeed later: server
// errors, request timeouts and rate limiting.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

func newStatusError(resp *http.Response) *StatusError {
	e := &StatusError{Code: resp.StatusCode, Status: resp.Status}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}
	return e
}

// retryable reports whether a failed download is worth repeating. Client
// errors and undecodable bodies come back the same on every attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedPayload) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// fetchWithRetry downloads url up to maxAttempts times, waiting
// baseDelay * 2^(attempt-1) between attempts, or longer when the server asks
// for it. It gives up early on an error retrying cannot fix.
func fetchWithRetry(ctx context.Context, url string, maxAttempts int, baseDelay time.Duration, logger *slog.Logger, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		payload, err := fetch(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("snapshot download succeeded after retry", "url", url, "attempt", attempt)
			}
			return payload, nil
		}
		lastErr = err

		if !retryable(err) {
			logger.Debug("snapshot download failed permanently", "url", url, "attempt", attempt, "err", err)
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := baseDelay << (attempt - 1)
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > delay {
			delay = se.RetryAfter
		}
		logger.Warn("snapshot download failed, will retry",
			"url", url,
			"attempt", attempt,
			"maxAttempts", maxAttempts,
			"delay", delay,
			"err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}
