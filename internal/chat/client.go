// Package chat is a thin client for the Webex messages API.
package chat

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

	"go.uber.org/zap"

	"github.com/spec-kit/webhook-relay/internal/domain"
	apperrors "github.com/spec-kit/webhook-relay/pkg/util/errorutil"
)

const serviceName = "chat"

// Operation names reported in upstream errors.
const (
	OpGetMessage  = "get_message"
	OpPostMessage = "post_message"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the chat platform REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient creates a chat API client authenticated with the bot token.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "chat")),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// GetMessage fetches the full message for a webhook event id.
func (c *Client) GetMessage(ctx context.Context, messageID string) (domain.ChatMessage, error) {
	var msg domain.ChatMessage
	body, err := c.do(ctx, OpGetMessage, http.MethodGet, "/messages/"+url.PathEscape(messageID), nil)
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, &apperrors.UpstreamError{
			Service: serviceName,
			Op:      OpGetMessage,
			Body:    apperrors.Excerpt(body),
			Err:     fmt.Errorf("decoding response: %w", err),
		}
	}
	return msg, nil
}

type postMessageRequest struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// PostMessage sends a plain text message to a room.
func (c *Client) PostMessage(ctx context.Context, roomID, text string) error {
	payload, err := json.Marshal(postMessageRequest{RoomID: roomID, Text: text})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	body, err := c.do(ctx, OpPostMessage, http.MethodPost, "/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.logger.Debug("message posted", zap.String("room_id", roomID), zap.Int("response_bytes", len(body)))
	return nil
}

// do executes an authenticated API request and returns the response body.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.UpstreamError{Service: serviceName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &apperrors.UpstreamError{Service: serviceName, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apperrors.NewUpstreamStatusError(serviceName, op, resp.StatusCode, respBody)
	}
	return respBody, nil
}
