package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Client calls the customer-service backend. Every call is a single attempt.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithToken sets a bearer token acquired elsewhere.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: missing scheme or host", baseURL)
	}

	c := &Client{
		baseURL: parsed,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token logs in with a password and keeps the returned token for later calls.
func (c *Client) Token(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var token Token
	if err := c.do(ctx, http.MethodPost, "/auth/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &token); err != nil {
		return Token{}, err
	}
	if token.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: token response without access token", ErrTransportFailure)
	}

	c.SetToken(token.AccessToken)
	return token, nil
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	// Channel tells the backend where the message came from, e.g. "voice".
	Channel string `json:"channel,omitempty"`
	// Language is the BCP 47 tag of the caller's language.
	Language string            `json:"language,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ChatResponse struct {
	Response       string   `json:"response"`
	Message        string   `json:"message"`
	Content        string   `json:"content"`
	ConversationID string   `json:"conversation_id"`
	Sources        []Source `json:"sources,omitempty"`
}

type Source struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// Text returns the reply to show and speak. Backends disagree on the field
// name, so the first non-empty one wins.
func (r ChatResponse) Text() string {
	for _, text := range []string{r.Response, r.Message, r.Content} {
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return ""
}

func (c *Client) Chat(ctx context.Context, agentID string, request ChatRequest) (ChatResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to encode chat request: %w", err)
	}

	var response ChatResponse
	path := "/chat/agents/" + url.PathEscape(agentID) + "/chat"
	if err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), &response); err != nil {
		return ChatResponse{}, err
	}
	return response, nil
}

type Stats struct {
	TotalConversations int `json:"total_conversations"`
	TotalMessages      int `json:"total_messages"`
	TotalAgents        int `json:"total_agents"`
	ActiveAgents       int `json:"active_agents"`
	TotalDocuments     int `json:"total_documents"`
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/admin/stats", "", nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.do(ctx, http.MethodGet, "/admin/agents", "", nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// UploadDocument adds a knowledge document to an agent.
func (c *Client) UploadDocument(ctx context.Context, agentID, name string, content io.Reader) (Document, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Document{}, fmt.Errorf("failed to finish upload form: %w", err)
	}

	var document Document
	path := "/admin/agents/" + url.PathEscape(agentID) + "/documents"
	if err := c.do(ctx, http.MethodPost, path, writer.FormDataContentType(), &body, &document); err != nil {
		return Document{}, err
	}
	return document, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	ctx, span := tracer.Start(ctx, "backend "+method+" "+path)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	span.SetAttributes(attribute.String("request.url", req.URL.String()))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %s %s: %w", ErrTransportFailure, method, path, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("%w: error reading response body: %w", ErrTransportFailure, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Detail:     parseDetail(respBody),
			Body:       string(respBody),
		}
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Error())
		logger.Warn("backend request failed", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		err = fmt.Errorf("%w: error unmarshalling JSON: %w", ErrTransportFailure, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
