package store

import "time"

type UniqueUser struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	Locale    string    `json:"locale"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type Feedback struct {
	ID        string            `json:"id"` // UUID
	UserID    string            `json:"user_id"`
	Rating    int               `json:"rating"`
	Message   string            `json:"message"`
	Email     string            `json:"email,omitempty"`
	Context   map[string]string `json:"context,omitempty"` // grade, subject at the time of feedback
	CreatedAt time.Time         `json:"created_at"`
}
