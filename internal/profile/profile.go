// Package profile holds the learner's onboarding answers and persists them
// through an injected Persister.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Field names a single onboarding answer. Values match the JSON keys the
// client uses.
type Field string

const (
	FirstName       Field = "firstName"
	Age             Field = "age"
	Grade           Field = "grade"
	Subject         Field = "subject"
	FavoriteTeacher Field = "favoriteTeacher"
	TeacherReason   Field = "teacherReason"
	Hobby           Field = "hobby"
	InitialProblem  Field = "initialProblem"
)

// Fields lists every profile field in declaration order.
var Fields = []Field{FirstName, Age, Grade, Subject, FavoriteTeacher, TeacherReason, Hobby, InitialProblem}

type LearnerProfile struct {
	FirstName       string `json:"firstName"`
	Age             string `json:"age"`
	Grade           string `json:"grade"`
	Subject         string `json:"subject"`
	FavoriteTeacher string `json:"favoriteTeacher"` // persona id or free-text teacher name
	TeacherReason   string `json:"teacherReason"`
	Hobby           string `json:"hobby"`
	InitialProblem  string `json:"initialProblem"`
}

func (p *LearnerProfile) ref(f Field) *string {
	switch f {
	case FirstName:
		return &p.FirstName
	case Age:
		return &p.Age
	case Grade:
		return &p.Grade
	case Subject:
		return &p.Subject
	case FavoriteTeacher:
		return &p.FavoriteTeacher
	case TeacherReason:
		return &p.TeacherReason
	case Hobby:
		return &p.Hobby
	case InitialProblem:
		return &p.InitialProblem
	}
	return nil
}

// Get returns the value of f, or "" for an unknown field.
func (p LearnerProfile) Get(f Field) string {
	if v := p.ref(f); v != nil {
		return *v
	}
	return ""
}

// Set assigns value to f.
func (p *LearnerProfile) Set(f Field, value string) error {
	v := p.ref(f)
	if v == nil {
		return fmt.Errorf("unknown profile field %q", f)
	}
	*v = value
	return nil
}

// Merge copies every non-empty field of other onto p.
func (p *LearnerProfile) Merge(other LearnerProfile) {
	for _, f := range Fields {
		if v := other.Get(f); v != "" {
			*p.ref(f) = v
		}
	}
}

// IsComplete reports whether every field is non-empty after trimming.
func (p LearnerProfile) IsComplete() bool {
	for _, f := range Fields {
		if strings.TrimSpace(p.Get(f)) == "" {
			return false
		}
	}
	return true
}

// NewClientID generates the anonymous identifier a client keeps for its
// lifetime. It names the stored profile and the analytics user.
func NewClientID() string {
	return uuid.NewString()
}

// Persister is the durable side of a Store. LoadProfile returns nil, nil
// when nothing has been stored for clientID.
type Persister interface {
	LoadProfile(ctx context.Context, clientID string) (*LearnerProfile, error)
	SaveProfile(ctx context.Context, clientID string, p LearnerProfile) error
	DeleteProfile(ctx context.Context, clientID string) error
}

// Store is the profile of one client. Every mutation is written through to
// the Persister before it returns.
type Store struct {
	persister Persister
	clientID  string
	profile   LearnerProfile
}

// Open loads the stored profile of clientID, or starts an empty one.
func Open(ctx context.Context, persister Persister, clientID string) (*Store, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("client id is required")
	}
	s := &Store{persister: persister, clientID: clientID}
	stored, err := persister.LoadProfile(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if stored != nil {
		s.profile = *stored
	}
	return s, nil
}

func (s *Store) ClientID() string { return s.clientID }

func (s *Store) Profile() LearnerProfile { return s.profile }

func (s *Store) IsComplete() bool { return s.profile.IsComplete() }

// Set updates one field and persists the result.
func (s *Store) Set(ctx context.Context, f Field, value string) error {
	next := s.profile
	if err := next.Set(f, value); err != nil {
		return err
	}
	return s.save(ctx, next)
}

// Update merges the non-empty fields of partial and persists the result.
func (s *Store) Update(ctx context.Context, partial LearnerProfile) error {
	next := s.profile
	next.Merge(partial)
	return s.save(ctx, next)
}

// Reset clears the profile. The client id itself is kept.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.persister.DeleteProfile(ctx, s.clientID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	s.profile = LearnerProfile{}
	return nil
}

func (s *Store) save(ctx context.Context, next LearnerProfile) error {
	if err := s.persister.SaveProfile(ctx, s.clientID, next); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	s.profile = next
	return nil
}
