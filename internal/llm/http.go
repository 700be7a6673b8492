package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 4 << 20

// StatusError is a non-2xx answer from the model endpoint.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string { return fmt.Sprintf("non-2xx status: %d", e.Status) }

// Retryable reports whether the endpoint asked us to come back later.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Transport posts JSON to an OpenAI-compatible endpoint. Rate limits and
// server errors are retried up to MaxAttempts with linear backoff.
type Transport struct {
	Client      *http.Client
	Logger      *slog.Logger
	MaxAttempts int
	Backoff     time.Duration
}

// PostJSON sends body and returns the raw response. A non-2xx answer is a
// *StatusError carrying the response body.
func (t Transport) PostJSON(ctx context.Context, url string, body any, headers map[string]string) ([]byte, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	attempts := max(t.MaxAttempts, 1)

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	reqID := uuid.New().String()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, wait, err := t.send(ctx, client, logger, reqID, attempt, url, bs, headers)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		var se *StatusError
		if !errors.As(err, &se) || !se.Retryable() || attempt == attempts {
			return raw, err
		}
		if wait <= 0 {
			wait = t.Backoff * time.Duration(attempt)
		}
		logger.Warn("llm.http.retry", "req_id", reqID, "attempt", attempt, "status", se.Status, "wait_ms", wait.Milliseconds())
		select {
		case <-ctx.Done():
			return raw, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (t Transport) send(ctx context.Context, client *http.Client, logger *slog.Logger, reqID string, attempt int, url string, body []byte, headers map[string]string) ([]byte, time.Duration, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "attempt", attempt, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func() {
		if cErr := resp.Body.Close(); cErr != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", cErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	logger.Info("llm.http.response",
		"req_id", reqID,
		"attempt", attempt,
		"status", resp.StatusCode,
		"request_bytes", len(body),
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, retryAfter(resp.Header.Get("Retry-After")), &StatusError{Status: resp.StatusCode, Body: raw}
	}
	return raw, 0, nil
}

// retryAfter reads the delay-seconds form of Retry-After, capped at 30s.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, 30*time.Second)
}
