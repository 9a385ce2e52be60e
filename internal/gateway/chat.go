package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/img-edit-agent/studio/internal/models"
)

// ErrChatNotConfigured indicates no chat endpoint base URL was supplied
var ErrChatNotConfigured = errors.New("HF_API_URL environment variable is not set")

// ChatClient posts messages to the remote chat/generation endpoint
type ChatClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewChatClient creates a chat client for baseURL
func NewChatClient(baseURL string, httpClient *http.Client) *ChatClient {
	if httpClient == nil {
		httpClient = newHTTPClient(2 * time.Minute)
	}
	return &ChatClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
	}
}

// Send posts req to {BaseURL}/chat and decodes the reply
func (c *ChatClient) Send(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	if c.BaseURL == "" {
		return models.ChatResponse{}, ErrChatNotConfigured
	}
	if req.SelectedImages == nil {
		req.SelectedImages = []models.ImageItem{}
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat", bytes.NewReader(requestBody))
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.ChatResponse{}, fmt.Errorf("received non-2xx status code: %d - %s", resp.StatusCode, string(body))
	}

	var response models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return models.ChatResponse{}, fmt.Errorf("failed to decode response body: %w", err)
	}
	if response.Response == "" {
		return models.ChatResponse{}, fmt.Errorf("malformed chat response: missing response field")
	}

	return response, nil
}
