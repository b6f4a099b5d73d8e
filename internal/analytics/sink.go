// Package analytics records anonymous usage events and learner feedback.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lernbuddy.de/lernbuddy/internal/core"
	"lernbuddy.de/lernbuddy/internal/store"
)

type Kind string

const (
	KindRegisterUser Kind = "register_user"
	KindFeedback     Kind = "feedback"
)

const (
	maxRating   = 5
	fireTimeout = 5 * time.Second
)

// Recorder is the table store the sink writes to.
type Recorder interface {
	UpsertUser(ctx context.Context, user store.UniqueUser) error
	InsertFeedback(ctx context.Context, fb *store.Feedback) error
}

type RegisterUserData struct {
	UserID    string `json:"user_id"`
	UserAgent string `json:"user_agent"`
	Locale    string `json:"locale"`
}

type FeedbackData struct {
	UserID  string            `json:"user_id"`
	Rating  int               `json:"rating"`
	Message string            `json:"message"`
	Email   string            `json:"email"`
	Context map[string]string `json:"context"`
}

type Sink struct {
	rec      Recorder
	inflight sync.WaitGroup
}

func NewSink(rec Recorder) *Sink {
	return &Sink{rec: rec}
}

// RecordEvent validates payload for kind and writes it. Invalid input yields
// a *core.ValidationError, store failures a *core.UpstreamError.
func (s *Sink) RecordEvent(ctx context.Context, kind Kind, payload json.RawMessage) error {
	switch kind {
	case KindRegisterUser:
		var data RegisterUserData
		if err := decode(payload, &data); err != nil {
			return err
		}
		return s.RegisterUser(ctx, data)
	case KindFeedback:
		var data FeedbackData
		if err := decode(payload, &data); err != nil {
			return err
		}
		return s.Feedback(ctx, data)
	default:
		return &core.ValidationError{Field: "type", Msg: "Unknown event type"}
	}
}

// RegisterUser upserts the user keyed by UserID and refreshes last_seen.
func (s *Sink) RegisterUser(ctx context.Context, data RegisterUserData) error {
	if strings.TrimSpace(data.UserID) == "" {
		return &core.ValidationError{Field: "user_id", Msg: "is required"}
	}
	err := s.rec.UpsertUser(ctx, store.UniqueUser{
		ID:        data.UserID,
		UserAgent: data.UserAgent,
		Locale:    data.Locale,
		LastSeen:  time.Now(),
	})
	if err != nil {
		return &core.UpstreamError{Op: "register user", Err: err}
	}
	return nil
}

// Feedback appends one feedback row.
func (s *Sink) Feedback(ctx context.Context, data FeedbackData) error {
	if data.Rating < 0 || data.Rating > maxRating {
		return &core.ValidationError{Field: "rating", Msg: fmt.Sprintf("must be between 0 and %d", maxRating)}
	}
	if data.Rating == 0 && strings.TrimSpace(data.Message) == "" {
		return &core.ValidationError{Field: "feedback", Msg: "rating or message is required"}
	}
	userID := data.UserID
	if userID == "" {
		userID = "unknown"
	}
	err := s.rec.InsertFeedback(ctx, &store.Feedback{
		UserID:  userID,
		Rating:  data.Rating,
		Message: data.Message,
		Email:   strings.TrimSpace(data.Email),
		Context: data.Context,
	})
	if err != nil {
		return &core.UpstreamError{Op: "insert feedback", Err: err}
	}
	return nil
}

// Fire records the event in the background. Failures are logged and never
// reach the caller.
func (s *Sink) Fire(ctx context.Context, kind Kind, payload json.RawMessage) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fireTimeout)
		defer cancel()
		if err := s.RecordEvent(ctx, kind, payload); err != nil {
			slog.Warn("Analytics event dropped", "kind", kind, "error", err)
		}
	}()
}

// Wait blocks until every event started with Fire has finished.
func (s *Sink) Wait() {
	s.inflight.Wait()
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return &core.ValidationError{Field: "data", Msg: "is required"}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &core.ValidationError{Field: "data", Msg: err.Error()}
	}
	return nil
}
