// Package contextstack provides a client for the ContextStack HTTP API.
package contextstack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eldtechnologies/contextstack/internal/models"
)

// DefaultURL is used when no base URL is given.
const DefaultURL = "http://localhost:8080"

// Client is a ContextStack API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("contextstack error %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new ContextStack client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request and decodes the JSON response into out.
func (c *Client) doRequest(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// GetContext fetches the aggregated context for a message. A limit of zero
// uses the server default.
func (c *Client) GetContext(ctx context.Context, channelID, messageID string, limit int) (*models.ContextResponse, error) {
	req := models.ContextRequest{ChannelID: channelID, MessageID: messageID, Limit: limit}
	var resp models.ContextResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/context", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MessagesResponse represents a channel history page, newest first.
type MessagesResponse struct {
	ChannelID string           `json:"channelId"`
	Messages  []models.Message `json:"messages"`
}

// ListMessages returns the latest messages of a channel, newest first.
func (c *Client) ListMessages(ctx context.Context, channelID string, limit int) (*MessagesResponse, error) {
	path := "/api/messages/" + url.PathEscape(channelID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp MessagesResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IngestResponse reports a bulk message ingest.
type IngestResponse struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
}

// IngestMessages stores messages in bulk. Duplicates are skipped.
func (c *Client) IngestMessages(ctx context.Context, msgs []models.Message) (*IngestResponse, error) {
	var resp IngestResponse
	body := map[string]any{"messages": msgs}
	if err := c.doRequest(ctx, http.MethodPost, "/api/messages/ingest", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TasksResponse represents a channel's tasks.
type TasksResponse struct {
	ChannelID string        `json:"channelId"`
	Tasks     []models.Task `json:"tasks"`
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	var resp models.Task
	if err := c.doRequest(ctx, http.MethodPost, "/api/tasks", task, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTasks returns the tasks of a channel.
func (c *Client) ListTasks(ctx context.Context, channelID string) (*TasksResponse, error) {
	var resp TasksResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(channelID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateTaskStatus changes a task's status.
func (c *Client) UpdateTaskStatus(ctx context.Context, id, status string) (*models.Task, error) {
	var resp models.Task
	body := map[string]string{"status": status}
	if err := c.doRequest(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChannelsResponse represents the channel listing.
type ChannelsResponse struct {
	Channels []struct {
		ID           string `json:"id"`
		MessageCount int64  `json:"messageCount"`
		LastActive   string `json:"lastActive"`
	} `json:"channels"`
	Total int `json:"total"`
}

// ListChannels returns channels by most recent activity.
func (c *Client) ListChannels(ctx context.Context) (*ChannelsResponse, error) {
	var resp ChannelsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/channels", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse represents the server health report.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"checks"`
}

// Health returns the server health report. A degraded server answers 503,
// which is reported as the decoded body rather than an error.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return &HealthResponse{Status: "degraded"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
