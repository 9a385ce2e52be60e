package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/img-edit-agent/studio/internal/providers"
)

// Ollama is a provider for a local Ollama server
type Ollama struct {
	BaseURL string
	Client  *http.Client
}

// New returns a new Ollama provider pointed at OLLAMA_URL
func New() *Ollama {
	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	return &Ollama{
		BaseURL: strings.TrimRight(ollamaURL, "/"),
		Client:  &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate answers the prompt using /api/chat without streaming
func (o *Ollama) Generate(ctx context.Context, config providers.Config) (string, error) {
	url := o.BaseURL + "/api/chat"

	messages := make([]chatMessage, 0, len(config.History)+2)
	if config.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: config.System})
	}
	for _, m := range config.History {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: providers.RoleUser, Content: config.Prompt})

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":    config.Model,
		"messages": messages,
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": config.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Message chatMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Message.Content, nil
}
