package core

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"

	"lernbuddy.de/lernbuddy/internal/history"
)

// OpenAIGateway sends conversation turns to an OpenAI-compatible chat
// completions endpoint. Images travel as data-URI image_url parts.
type OpenAIGateway struct {
	client *openai.Client
	model  string
}

func NewOpenAIGateway(apiKey, baseURL, model string) *OpenAIGateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGateway{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *OpenAIGateway) Generate(ctx context.Context, turns []*genai.Content) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: toOpenAIMessages(turns),
	})
	if err != nil {
		slog.Error("OpenAI chat completion failed", "model", g.model, "turns", len(turns), "error", err)
		return "", &UpstreamError{Op: "openai", Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		slog.Error("OpenAI returned no usable text", "model", g.model)
		return "", &UpstreamError{Op: "openai", Err: errors.New("response had no text")}
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(turns []*genai.Content) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		var texts []string
		var parts []openai.ChatMessagePart
		hasImage := false
		for _, part := range turn.Parts {
			switch p := part.(type) {
			case genai.Text:
				texts = append(texts, string(p))
				parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: string(p)})
			case genai.Blob:
				hasImage = true
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data),
						Detail: openai.ImageURLDetailAuto,
					},
				})
			}
		}

		if turn.Role == history.RoleModel {
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: strings.Join(texts, "\n\n"),
			})
			continue
		}
		msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
		if hasImage {
			msg.MultiContent = parts
		} else {
			msg.Content = strings.Join(texts, "\n\n")
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
