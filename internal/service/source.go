package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Source yields one raw payload per call. Implementations are called from a
// single goroutine at a time per tick but ticks may overlap.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

var (
	// ErrStatus marks responses rejected by HTTP status code.
	ErrStatus = errors.New("unexpected response status")
	// ErrExhausted is returned by finite sources once every payload was served.
	ErrExhausted = errors.New("source exhausted")
)

const maxPayloadBytes = 8 * 1024 * 1024

type apiError struct {
	Error string `json:"error"`
}

type HTTPSource struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func NewHTTPSource(endpoint, token string, timeout time.Duration) (*HTTPSource, error) {
	endpoint = strings.TrimSpace(endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must use http or https", endpoint)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		endpoint: parsed.String(),
		token:    strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (s *HTTPSource) Endpoint() string {
	return s.endpoint
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var apiErr apiError
		if json.Unmarshal(blob, &apiErr) == nil && strings.TrimSpace(apiErr.Error) != "" {
			return nil, fmt.Errorf("%w: GET %s returned %d: %s", ErrStatus, s.endpoint, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrStatus, s.endpoint, resp.StatusCode)
	}

	blob, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(blob) > maxPayloadBytes {
		return nil, fmt.Errorf("response exceeded max size (%d bytes)", maxPayloadBytes)
	}
	return blob, nil
}
