// Package nlp is the HTTP client for the NLP service that extracts action
// items from message text and ranks stored documents by relevance.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eldtechnologies/contextstack/internal/metrics"
	"github.com/eldtechnologies/contextstack/internal/models"
)

// Capability names, used as metric labels and in degradation events.
const (
	CapabilityExtractActions = "extract_actions"
	CapabilitySearchDocs     = "search_docs"
	CapabilityIndexDoc       = "index_doc"
)

const maxResponseBytes = 1 << 20

// StatusError is returned when the NLP service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("nlp service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("nlp service returned %d: %s", e.StatusCode, e.Detail)
}

// Client is an NLP service API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new NLP client. timeout bounds every request made
// through it; callers may impose a shorter deadline via the context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// doRequest performs an HTTP request and decodes a JSON response into out.
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
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		detail := errResp.Detail
		if detail == "" {
			detail = errResp.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type textRequest struct {
	Text string `json:"text"`
}

// ExtractActions returns candidate action items found in text, in the
// order the service ranked them.
func (c *Client) ExtractActions(ctx context.Context, text string) ([]models.Action, error) {
	defer observe(CapabilityExtractActions, time.Now())

	var actions []models.Action
	if err := c.doRequest(ctx, http.MethodPost, "/nlp/extract_actions", textRequest{Text: text}, &actions); err != nil {
		return nil, err
	}
	if actions == nil {
		actions = []models.Action{}
	}
	return actions, nil
}

type searchRequest struct {
	Text string `json:"text"`
	TopK int    `json:"topK"`
}

// SearchDocs returns up to topK stored documents ranked by relevance to text.
func (c *Client) SearchDocs(ctx context.Context, text string, topK int) ([]models.DocMatch, error) {
	defer observe(CapabilitySearchDocs, time.Now())

	var docs []models.DocMatch
	if err := c.doRequest(ctx, http.MethodPost, "/nlp/search_docs", searchRequest{Text: text, TopK: topK}, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.DocMatch{}
	}
	if len(docs) > topK && topK > 0 {
		docs = docs[:topK]
	}
	return docs, nil
}

// IndexDocRequest is the body sent to index a document for relevance search.
type IndexDocRequest struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// IndexDoc adds a stored document to the service's relevance index.
func (c *Client) IndexDoc(ctx context.Context, doc *models.Doc) error {
	defer observe(CapabilityIndexDoc, time.Now())

	req := IndexDocRequest{
		ID:      doc.ID.String(),
		Text:    doc.IndexText(),
		Title:   doc.Title,
		URL:     doc.URL,
		Excerpt: doc.Excerpt,
	}
	return c.doRequest(ctx, http.MethodPost, "/nlp/index_doc", req, nil)
}

// HealthResponse is the NLP service health payload.
type HealthResponse struct {
	Status      string `json:"status"`
	DocsIndexed int    `json:"docs_indexed"`
	Model       string `json:"model"`
}

// Health checks that the NLP service is up.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func observe(capability string, start time.Time) {
	metrics.CapabilityLatency.WithLabelValues(capability).Observe(time.Since(start).Seconds())
}
