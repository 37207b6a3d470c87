// Package gateway is the HTTP client for the remote task-list API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gosuda/kanban/internal/domain"
)

// StatusError is returned when the task API answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Unwrap lets callers match any status failure with domain.ErrGateway.
func (e *StatusError) Unwrap() error {
	return domain.ErrGateway
}

// Client implements domain.TaskGateway over JSON/HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// Compile-time interface check.
var _ domain.TaskGateway = (*Client)(nil) //nolint:gochecknoglobals // compile-time check

// New creates a Client for the task API at baseURL (e.g. http://localhost:5000).
// timeout caps each request regardless of the caller's context; zero disables it.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ListTasks fetches every task record.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Record, error) {
	var records []domain.Record
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &records); err != nil {
		return nil, fmt.Errorf("gateway.Client.ListTasks: %w", err)
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// CreateTask posts a new record. The response body is ignored.
func (c *Client) CreateTask(ctx context.Context, r domain.Record) error {
	if err := c.do(ctx, http.MethodPost, "/tasks", r, nil); err != nil {
		return fmt.Errorf("gateway.Client.CreateTask: %w", err)
	}
	return nil
}

// UpdateTask replaces the remote record for id.
func (c *Client) UpdateTask(ctx context.Context, id string, r domain.Record) error {
	if err := c.do(ctx, http.MethodPut, taskPath(id), r, nil); err != nil {
		return fmt.Errorf("gateway.Client.UpdateTask: %w", err)
	}
	return nil
}

// DeleteTask removes the remote record for id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, taskPath(id), nil, nil); err != nil {
		return fmt.Errorf("gateway.Client.DeleteTask: %w", err)
	}
	return nil
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
