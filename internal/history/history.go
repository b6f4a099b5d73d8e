// Package history turns the client's chat transcript into Gemini content
// turns.
package history

import (
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
)

const (
	RoleUser      = "user"
	RoleModel     = "model"
	RoleAssistant = "assistant"
)

// Message is one entry of the client transcript.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Images    []string  `json:"images,omitempty"` // data URIs
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Role maps a client role onto the model's vocabulary: "assistant" becomes
// "model", anything else is "user".
func Role(clientRole string) string {
	if clientRole == RoleAssistant {
		return RoleModel
	}
	return RoleUser
}

// ParseDataURI splits a data URI such as "data:image/png;base64,iVBOR..." at
// the first comma and decodes the payload. ok is false when the URI has no
// comma, no MIME type, or an empty or undecodable payload.
func ParseDataURI(uri string) (blob genai.Blob, ok bool) {
	header, payload, found := strings.Cut(uri, ",")
	if !found || payload == "" {
		return genai.Blob{}, false
	}
	meta, _, _ := strings.Cut(header, ";")
	_, mimeType, found := strings.Cut(meta, ":")
	if !found || mimeType == "" {
		return genai.Blob{}, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return genai.Blob{}, false
	}
	return genai.Blob{MIMEType: mimeType, Data: data}, true
}

// Adapt converts messages into strictly alternating content turns and
// prepends instruction to the first turn's text. Every message contributes a
// text part, even an empty one; malformed images are dropped. Consecutive
// messages with the same role are merged into one turn. With no messages
// the result is a single user turn holding only the instruction.
func Adapt(messages []Message, instruction string) []*genai.Content {
	var turns []*genai.Content
	for i, m := range messages {
		role := Role(m.Role)
		parts := []genai.Part{genai.Text(m.Content)}
		for j, img := range m.Images {
			blob, ok := ParseDataURI(img)
			if !ok {
				slog.Debug("Dropping malformed image attachment", "message", i, "image", j)
				continue
			}
			parts = append(parts, blob)
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Parts = append(turns[n-1].Parts, parts...)
			continue
		}
		turns = append(turns, &genai.Content{Role: role, Parts: parts})
	}

	if len(turns) == 0 {
		return []*genai.Content{{
			Role:  RoleUser,
			Parts: []genai.Part{genai.Text(instruction)},
		}}
	}

	first := turns[0]
	first.Parts[0] = genai.Text(instruction + "\n\n" + string(first.Parts[0].(genai.Text)))
	return turns
}

// Alternates reports whether no two adjacent turns share a role.
func Alternates(turns []*genai.Content) bool {
	for i := 1; i < len(turns); i++ {
		if turns[i].Role == turns[i-1].Role {
			return false
		}
	}
	return true
}
