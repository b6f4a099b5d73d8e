package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lernbuddy.de/lernbuddy/internal/core"
	"lernbuddy.de/lernbuddy/internal/store"
)

func newSQLiteSink(t *testing.T) (*Sink, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewSink(st), st
}

type failingRecorder struct{}

func (failingRecorder) UpsertUser(context.Context, store.UniqueUser) error {
	return errors.New("database is locked")
}

func (failingRecorder) InsertFeedback(context.Context, *store.Feedback) error {
	return errors.New("database is locked")
}

func TestRecordEvent_RegisterUserTwiceStoresOnce(t *testing.T) {
	ctx := context.Background()
	sink, st := newSQLiteSink(t)

	payload := json.RawMessage(`{"user_id":"abc"}`)
	require.NoError(t, sink.RecordEvent(ctx, KindRegisterUser, payload))
	require.NoError(t, sink.RecordEvent(ctx, KindRegisterUser, payload))

	n, err := st.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordEvent_Feedback(t *testing.T) {
	ctx := context.Background()
	sink, st := newSQLiteSink(t)

	payload := json.RawMessage(`{"rating":4,"message":"Toll!","email":" mama@example.de ","context":{"grade":"6","subject":"Mathe"}}`)
	require.NoError(t, sink.RecordEvent(ctx, KindFeedback, payload))

	all, err := st.ListFeedback(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "unknown", all[0].UserID)
	assert.Equal(t, 4, all[0].Rating)
	assert.Equal(t, "mama@example.de", all[0].Email)
	assert.Equal(t, "Mathe", all[0].Context["subject"])
}

func TestRecordEvent_Validation(t *testing.T) {
	sink, _ := newSQLiteSink(t)
	tests := []struct {
		name    string
		kind    Kind
		payload string
	}{
		{"unknown kind", Kind("page_view"), `{}`},
		{"missing data", KindRegisterUser, ``},
		{"null data", KindFeedback, `null`},
		{"malformed data", KindFeedback, `{"rating":"five"}`},
		{"missing user id", KindRegisterUser, `{"locale":"de"}`},
		{"empty feedback", KindFeedback, `{"rating":0,"message":"  "}`},
		{"rating too high", KindFeedback, `{"rating":6,"message":"wow"}`},
		{"negative rating", KindFeedback, `{"rating":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sink.RecordEvent(context.Background(), tt.kind, json.RawMessage(tt.payload))
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestRecordEvent_StoreFailureIsUpstream(t *testing.T) {
	sink := NewSink(failingRecorder{})
	err := sink.RecordEvent(context.Background(), KindRegisterUser, json.RawMessage(`{"user_id":"abc"}`))
	var upErr *core.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.ErrorContains(t, err, "database is locked")
}

func TestFire_SwallowsFailures(t *testing.T) {
	sink := NewSink(failingRecorder{})
	ctx, cancel := context.WithCancel(context.Background())
	sink.Fire(ctx, KindRegisterUser, json.RawMessage(`{"user_id":"abc"}`))
	cancel()
	sink.Wait()
}

func TestFire_OutlivesRequestContext(t *testing.T) {
	sink, st := newSQLiteSink(t)
	ctx, cancel := context.WithCancel(context.Background())
	sink.Fire(ctx, KindRegisterUser, json.RawMessage(`{"user_id":"abc"}`))
	cancel()
	sink.Wait()

	u, err := st.GetUser(context.Background(), "abc")
	require.NoError(t, err)
	assert.NotNil(t, u)
}
