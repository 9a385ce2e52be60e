package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/img-edit-agent/studio/internal/providers"
)

func TestGenerate(t *testing.T) {
	var body struct {
		Model    string        `json:"model"`
		Stream   bool          `json:"stream"`
		Messages []chatMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"Ciao!"}}`)
	}))
	defer srv.Close()

	o := &Ollama{BaseURL: srv.URL, Client: srv.Client()}
	got, err := o.Generate(context.Background(), providers.Config{
		Model:  "llama",
		System: "be brief",
		History: []providers.Message{
			{Role: providers.RoleUser, Content: "my cat is Mochi"},
			{Role: providers.RoleAssistant, Content: "Cute!"},
		},
		Prompt: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ciao!", got)

	assert.Equal(t, "llama", body.Model)
	assert.False(t, body.Stream)
	assert.Equal(t, []chatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "my cat is Mochi"},
		{Role: "assistant", Content: "Cute!"},
		{Role: "user", Content: "hi"},
	}, body.Messages)
}

func TestGenerateNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := &Ollama{BaseURL: srv.URL, Client: srv.Client()}
	_, err := o.Generate(context.Background(), providers.Config{Prompt: "hi"})
	assert.ErrorContains(t, err, "404")
}
