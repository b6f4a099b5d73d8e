package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"lernbuddy.de/lernbuddy/internal/history"
)

const defaultGeminiModelName = "gemini-2.0-flash"

// GeminiGateway sends conversation turns to Google's Gemini API.
type GeminiGateway struct {
	client    *genai.Client
	modelName string
}

func NewGeminiGateway(ctx context.Context, apiKey, modelName string) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModelName
	}
	return &GeminiGateway{client: client, modelName: modelName}, nil
}

func (g *GeminiGateway) Close() {
	if g.client != nil {
		if err := g.client.Close(); err != nil {
			slog.Error("Error closing GenAI client", "error", err)
		} else {
			slog.Info("GenAI client closed")
		}
	}
}

// Generate replays all but the last turn as chat history and sends the last
// turn, which must come from the user.
func (g *GeminiGateway) Generate(ctx context.Context, turns []*genai.Content) (string, error) {
	if len(turns) == 0 {
		return "", &UpstreamError{Op: "gemini", Err: errors.New("no turns to send")}
	}
	last := turns[len(turns)-1]
	if last.Role != history.RoleUser {
		return "", &UpstreamError{Op: "gemini", Err: fmt.Errorf("last turn is from %q, not from user", last.Role)}
	}

	model := g.client.GenerativeModel(g.modelName)
	chatSession := model.StartChat()
	// SendMessage appends to History; keep the caller's slice untouched.
	chatSession.History = append([]*genai.Content(nil), turns[:len(turns)-1]...)

	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		slog.Error("Gemini SendMessage failed", "model", g.modelName, "turns", len(turns), "error", err)
		return "", &UpstreamError{Op: "gemini", Err: err}
	}

	text, err := responseText(resp)
	if err != nil {
		slog.Error("Gemini returned no usable text", "model", g.modelName, "error", err)
		return "", &UpstreamError{Op: "gemini", Err: err}
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("response was empty or had no candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			slog.Debug("Gemini response part was not text", "type", fmt.Sprintf("%T", part))
		}
	}
	if strings.TrimSpace(responseText.String()) == "" {
		return "", errors.New("response had no text")
	}
	return responseText.String(), nil
}
