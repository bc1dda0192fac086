// Package genclient talks to the remote document generation service.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Job is the body submitted to the generation service.
type Job struct {
	ClientID     int64          `json:"clientId"`
	EvaluationID *int64         `json:"evaluationId,omitempty"`
	DocumentType string         `json:"documentType"`
	Options      map[string]any `json:"options"`
}

// Document describes the file the service produced.
type Document struct {
	Path     string `json:"path"`
	Filename string `json:"filename,omitempty"`
	ID       any    `json:"id,omitempty"`
}

type response struct {
	Success  *bool     `json:"success,omitempty"`
	Message  string    `json:"message,omitempty"`
	Document *Document `json:"document,omitempty"`
}

// Generator submits generation jobs.
type Generator interface {
	Generate(ctx context.Context, job Job) (*Document, error)
}

// ErrNoDocument is returned when the service reports success without a
// document path.
var ErrNoDocument = errors.New("genclient: response carries no document path")

// ServiceError is a failure reported by the generation service. Message is
// the service's own message when it sent one.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error %d", e.StatusCode)
}

// Compile-time interface check.
var _ Generator = (*Client)(nil)

// Client is an HTTP Generator.
type Client struct {
	http     *http.Client
	endpoint string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New returns a Client posting jobs to endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 2 * time.Minute},
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate posts job and waits for the service to answer.
func (c *Client) Generate(ctx context.Context, job Job) (*Document, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("genclient: marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("genclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genclient: post job: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("genclient: read response: %w", err)
	}

	var r response
	// Error bodies are not always JSON; the status code still tells.
	decodeErr := json.Unmarshal(respBody, &r)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: r.Message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("genclient: decode response: %w", decodeErr)
	}
	if r.Success != nil && !*r.Success {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: r.Message}
	}
	if r.Document == nil || r.Document.Path == "" {
		return nil, ErrNoDocument
	}
	return r.Document, nil
}
