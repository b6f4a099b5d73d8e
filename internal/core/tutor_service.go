package core

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"

	"lernbuddy.de/lernbuddy/internal/history"
	"lernbuddy.de/lernbuddy/internal/profile"
	"lernbuddy.de/lernbuddy/internal/prompt"
)

// Generator is a model gateway: one blocking call per user turn, no retries.
type Generator interface {
	Generate(ctx context.Context, turns []*genai.Content) (string, error)
}

type TutorService struct {
	gen Generator
}

func NewTutorService(gen Generator) *TutorService {
	return &TutorService{gen: gen}
}

// Reply wraps the transcript in the tutor instruction for p and returns the
// model's answer. Every failure comes back as an *UpstreamError.
func (s *TutorService) Reply(ctx context.Context, p profile.LearnerProfile, messages []history.Message) (string, error) {
	turns := history.Adapt(messages, prompt.Compose(p))

	text, err := s.gen.Generate(ctx, turns)
	if err != nil {
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			err = &UpstreamError{Op: "generate", Err: err}
		}
		return "", err
	}
	return text, nil
}
