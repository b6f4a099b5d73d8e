package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lernbuddy.de/lernbuddy/internal/analytics"
	"lernbuddy.de/lernbuddy/internal/core"
	"lernbuddy.de/lernbuddy/internal/history"
	"lernbuddy.de/lernbuddy/internal/onboarding"
	"lernbuddy.de/lernbuddy/internal/profile"
	"lernbuddy.de/lernbuddy/internal/prompt"
)

// Chat bodies carry base64 images.
const maxBodyBytes = 20 << 20

// anonymousUserID is what clients send before they have an identifier.
const anonymousUserID = "anonymous-user"

type pinger interface {
	Ping(ctx context.Context) error
}

type APIHandler struct {
	tutor    *core.TutorService
	sink     *analytics.Sink
	profiles profile.Persister
	db       pinger
}

func NewAPIHandler(tutor *core.TutorService, sink *analytics.Sink, profiles profile.Persister, db pinger) *APIHandler {
	return &APIHandler{tutor: tutor, sink: sink, profiles: profiles, db: db}
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

type ChatRequest struct {
	Messages []history.Message      `json:"messages"`
	UserData *profile.LearnerProfile `json:"userData"`
	UserID   string                  `json:"userId"`
}

type ChatResponse struct {
	Text string `json:"text"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserData == nil {
		writeError(w, http.StatusBadRequest, "Missing user data")
		return
	}

	if req.UserID != "" && req.UserID != anonymousUserID {
		payload, _ := json.Marshal(analytics.RegisterUserData{UserID: req.UserID})
		h.sink.Fire(r.Context(), analytics.KindRegisterUser, payload)
	}

	text, err := h.tutor.Reply(r.Context(), *req.UserData, req.Messages)
	if err != nil {
		slog.Error("Chat API error", "messages", len(req.Messages), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to process chat",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Text: text})
}

type AnalyticsRequest struct {
	Type analytics.Kind  `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (h *APIHandler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyticsRequest
	if err := decodeBody(w, r, &req); err != nil || req.Type == "" || len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if err := h.sink.RecordEvent(r.Context(), req.Type, req.Data); err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		slog.Error("Analytics store error", "type", req.Type, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *APIHandler) PersonasHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, prompt.Personas())
}

type ProfileResponse struct {
	Profile  profile.LearnerProfile `json:"profile"`
	Complete bool                   `json:"complete"`
}

// openProfile loads the profile named by the clientID URL parameter and
// writes an error response itself when that fails.
func (h *APIHandler) openProfile(w http.ResponseWriter, r *http.Request) (*profile.Store, bool) {
	clientID := chi.URLParam(r, "clientID")
	ps, err := profile.Open(r.Context(), h.profiles, clientID)
	if err != nil {
		slog.Error("Failed to open profile", "client_id", clientID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return nil, false
	}
	return ps, true
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	ps, ok := h.openProfile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: ps.Profile(), Complete: ps.IsComplete()})
}

func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var partial profile.LearnerProfile
	if err := decodeBody(w, r, &partial); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ps, ok := h.openProfile(w, r)
	if !ok {
		return
	}
	if err := ps.Update(r.Context(), partial); err != nil {
		slog.Error("Failed to update profile", "client_id", ps.ClientID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: ps.Profile(), Complete: ps.IsComplete()})
}

func (h *APIHandler) ResetProfileHandler(w http.ResponseWriter, r *http.Request) {
	ps, ok := h.openProfile(w, r)
	if !ok {
		return
	}
	if err := ps.Reset(r.Context()); err != nil {
		slog.Error("Failed to reset profile", "client_id", ps.ClientID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type OnboardingRequest struct {
	Step   onboarding.Step `json:"step"`
	Action string          `json:"action"` // "next" or "back"
	Value  *string         `json:"value,omitempty"`
}

type OnboardingResponse struct {
	Step     onboarding.Step        `json:"step"`
	Position int                    `json:"position"`
	Total    int                    `json:"total"`
	Profile  profile.LearnerProfile `json:"profile"`
	Complete bool                   `json:"complete"`
}

func (h *APIHandler) OnboardingHandler(w http.ResponseWriter, r *http.Request) {
	var req OnboardingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Action != "next" && req.Action != "back" {
		writeError(w, http.StatusBadRequest, "action must be next or back")
		return
	}
	ps, ok := h.openProfile(w, r)
	if !ok {
		return
	}
	wizard, err := onboarding.New(req.Step, ps.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if f, isQuestion := req.Step.Field(); isQuestion && req.Value != nil {
		if err := ps.Set(r.Context(), f, *req.Value); err != nil {
			slog.Error("Failed to save onboarding answer", "client_id", ps.ClientID(), "step", req.Step, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save profile")
			return
		}
	}

	if req.Action == "next" {
		err = wizard.Next(r.Context())
	} else {
		err = wizard.Back(r.Context())
	}
	if errors.Is(err, onboarding.ErrFieldRequired) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		slog.Error("Onboarding transition failed", "step", req.Step, "action", req.Action, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to move onboarding")
		return
	}

	pos, total := wizard.Progress()
	writeJSON(w, http.StatusOK, OnboardingResponse{
		Step:     wizard.Step(),
		Position: pos,
		Total:    total,
		Profile:  ps.Profile(),
		Complete: ps.IsComplete(),
	})
}

func (h *APIHandler) GreetingHandler(w http.ResponseWriter, r *http.Request) {
	ps, ok := h.openProfile(w, r)
	if !ok {
		return
	}
	if !ps.IsComplete() {
		writeError(w, http.StatusConflict, "Profile incomplete")
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Text: prompt.Greeting(ps.Profile())})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		slog.Error("Database health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
