package openai

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
		Model    string              `json:"model"`
		Messages []map[string]string `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"Bonjour!"}}]}`)
	}))
	defer srv.Close()

	o := &OpenAI{BaseURL: srv.URL, APIKey: "sk-test", Client: srv.Client()}
	got, err := o.Generate(context.Background(), providers.Config{
		Model:  "gpt-test",
		System: "be brief",
		History: []providers.Message{
			{Role: providers.RoleUser, Content: "my cat is Mochi"},
			{Role: providers.RoleAssistant, Content: "Cute!"},
		},
		Prompt: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour!", got)

	assert.Equal(t, "gpt-test", body.Model)
	assert.Equal(t, []map[string]string{
		{"role": "system", "content": "be brief"},
		{"role": "user", "content": "my cat is Mochi"},
		{"role": "assistant", "content": "Cute!"},
		{"role": "user", "content": "hi"},
	}, body.Messages)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "quota", http.StatusTooManyRequests)
			},
			want: "429",
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"choices":[]}`)
			},
			want: "no choices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			o := &OpenAI{BaseURL: srv.URL, APIKey: "sk-test", Client: srv.Client()}
			_, err := o.Generate(context.Background(), providers.Config{Prompt: "hi"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := (&OpenAI{}).Generate(context.Background(), providers.Config{Prompt: "hi"})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}
