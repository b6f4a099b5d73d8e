package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func newOpenAIServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerate(t *testing.T) {
	var got capturedRequest
	srv := newOpenAIServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Mutiger Versuch!"}, "finish_reason": "stop"}]
	}`, &got)

	g := NewOpenAIGateway("test-key", srv.URL+"/v1", "gpt-4o-mini")
	text, err := g.Generate(context.Background(), []*genai.Content{
		{Role: "model", Parts: []genai.Part{genai.Text("Hallo Mia!")}},
		{Role: "user", Parts: []genai.Part{
			genai.Text("Hier ist meine Aufgabe"),
			genai.Blob{MIMEType: "image/png", Data: []byte("png")},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mutiger Versuch!", text)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "assistant", got.Messages[0].Role)
	assert.JSONEq(t, `"Hallo Mia!"`, string(got.Messages[0].Content))

	var parts []map[string]any
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0]["type"])
	imageURL := parts[1]["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,cG5n", imageURL["url"])
}

func TestOpenAIGenerate_Failures(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
	}{
		"provider error": {http.StatusInternalServerError, `{"error": {"message": "boom", "type": "server_error"}}`},
		"no choices":     {http.StatusOK, `{"id": "x", "object": "chat.completion", "choices": []}`},
		"empty content":  {http.StatusOK, `{"id": "x", "choices": [{"index": 0, "message": {"role": "assistant", "content": ""}}]}`},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := newOpenAIServer(t, tt.status, tt.body, nil)
			g := NewOpenAIGateway("test-key", srv.URL+"/v1", "gpt-4o-mini")
			_, err := g.Generate(context.Background(), []*genai.Content{
				{Role: "user", Parts: []genai.Part{genai.Text("Hallo")}},
			})
			var upErr *UpstreamError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, "openai", upErr.Op)
		})
	}
}

func TestToOpenAIMessages_TextOnlyUser(t *testing.T) {
	msgs := toOpenAIMessages([]*genai.Content{
		{Role: "user", Parts: []genai.Part{genai.Text("eins"), genai.Text("zwei")}},
	})
	require.Len(t, msgs, 1)
	assert.Equal(t, "eins\n\nzwei", msgs[0].Content)
	assert.Nil(t, msgs[0].MultiContent)
}
