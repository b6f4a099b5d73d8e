package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lernbuddy.de/lernbuddy/internal/profile"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertUser_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := time.Unix(1_700_000_000, 0)
	require.NoError(t, s.UpsertUser(ctx, UniqueUser{ID: "abc", UserAgent: "Firefox", Locale: "de-DE", LastSeen: first}))
	later := first.Add(time.Hour)
	require.NoError(t, s.UpsertUser(ctx, UniqueUser{ID: "abc", LastSeen: later}))

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, err := s.GetUser(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, first.Unix(), u.FirstSeen.Unix())
	assert.Equal(t, later.Unix(), u.LastSeen.Unix())
	assert.Equal(t, "Firefox", u.UserAgent, "blank user agent must not overwrite")
	assert.Equal(t, "de-DE", u.Locale)
}

func TestGetUser_Unknown(t *testing.T) {
	u, err := newTestStore(t).GetUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestFeedback_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fb1 := &Feedback{UserID: "abc", Rating: 5, Message: "super", Context: map[string]string{"grade": "6", "subject": "Mathe"}}
	fb2 := &Feedback{UserID: "abc", Rating: 5, Message: "super"}
	require.NoError(t, s.InsertFeedback(ctx, fb1))
	require.NoError(t, s.InsertFeedback(ctx, fb2))
	assert.NotEqual(t, fb1.ID, fb2.ID)

	all, err := s.ListFeedback(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, fb2.ID, all[0].ID)
	assert.Equal(t, map[string]string{"grade": "6", "subject": "Mathe"}, all[1].Context)
	assert.Nil(t, all[0].Context)
}

func TestProfilePersistence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.LoadProfile(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, p)

	want := profile.LearnerProfile{FirstName: "Mia", Subject: "Mathematik"}
	require.NoError(t, s.SaveProfile(ctx, "client-1", want))
	want.Hobby = "Malen"
	require.NoError(t, s.SaveProfile(ctx, "client-1", want))

	p, err = s.LoadProfile(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, want, *p)

	require.NoError(t, s.DeleteProfile(ctx, "client-1"))
	require.NoError(t, s.DeleteProfile(ctx, "client-1"))
	p, err = s.LoadProfile(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProfileStoreOverSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lernbuddy.db")

	s, err := NewSQLiteStore("sqlite", path)
	require.NoError(t, err)
	ps, err := profile.Open(ctx, s, "client-1")
	require.NoError(t, err)
	require.NoError(t, ps.Set(ctx, profile.FirstName, "Mia"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore("sqlite", path)
	require.NoError(t, err)
	defer reopened.Close()
	ps, err = profile.Open(ctx, reopened, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "Mia", ps.Profile().FirstName)
}

func TestNewSQLiteStore_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStore("postgres", "x")
	require.Error(t, err)
}
