package cloudevent

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SignatureHeader carries "sha256=" plus the hex HMAC-SHA256 of the body.
const SignatureHeader = "X-Signature-256"

const contentType = "application/cloudevents+json"

// Sink is one webhook endpoint. Events are signed when a key is set.
type Sink struct {
	url    string
	key    string
	client *http.Client
}

// NewSink creates a sink for rawURL. timeout bounds each delivery attempt.
func NewSink(rawURL, signingKey string, timeout time.Duration) *Sink {
	return &Sink{
		url: rawURL,
		key: signingKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Host is the sink's host, safe to log: paths and query strings may hold
// tokens.
func (s *Sink) Host() string {
	parsed, err := url.Parse(s.url)
	if err != nil || parsed.Host == "" {
		return "invalid-url"
	}
	return parsed.Host
}

// Send POSTs event once. A non-2xx answer is returned as *StatusError.
func (s *Sink) Send(ctx context.Context, event *CloudEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Ce-Id", event.ID)
	req.Header.Set("Ce-Type", event.Type)
	if s.key != "" {
		req.Header.Set(SignatureHeader, sign(body, s.key))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// StatusError is a non-2xx answer from the sink.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sink answered HTTP %d", e.Code)
}

// Retryable reports whether another attempt may succeed. The sink rejecting
// the event itself (4xx other than 408 and 429) is final, as is an invalid
// event or a cancelled context. Transport failures and 5xx are retried.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusRequestTimeout, se.Code == http.StatusTooManyRequests:
			return true
		case se.Code >= 400 && se.Code < 500:
			return false
		}
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Verify reports whether signature is the HMAC-SHA256 of payload under key.
func Verify(payload []byte, key, signature string) bool {
	return hmac.Equal([]byte(sign(payload, key)), []byte(signature))
}

func sign(payload []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
