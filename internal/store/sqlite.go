package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // SQLite driver "sqlite" (pure Go)

	"lernbuddy.de/lernbuddy/internal/profile"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dataSourceName with driverName ("sqlite3" or "sqlite")
// and creates the schema if needed.
func NewSQLiteStore(driverName, dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS unique_users (
        id TEXT PRIMARY KEY,
        user_agent TEXT NOT NULL DEFAULT '',
        locale TEXT NOT NULL DEFAULT '',
        first_seen INTEGER NOT NULL,
        last_seen INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS feedback (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        rating INTEGER NOT NULL DEFAULT 0,
        message TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        context_json TEXT,
        created_at INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);

    CREATE TABLE IF NOT EXISTS learner_profiles (
        client_id TEXT PRIMARY KEY,
        profile_json TEXT NOT NULL,
        updated_at INTEGER NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// UpsertUser registers id, or refreshes last_seen, user_agent and locale if
// it is already known.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user UniqueUser) error {
	if user.LastSeen.IsZero() {
		user.LastSeen = time.Now()
	}
	query := `
    INSERT INTO unique_users (id, user_agent, locale, first_seen, last_seen)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET
        user_agent = CASE WHEN excluded.user_agent != '' THEN excluded.user_agent ELSE unique_users.user_agent END,
        locale = CASE WHEN excluded.locale != '' THEN excluded.locale ELSE unique_users.locale END,
        last_seen = excluded.last_seen`

	_, err := s.db.ExecContext(ctx, query, user.ID, user.UserAgent, user.Locale, user.LastSeen.Unix(), user.LastSeen.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUser returns nil, nil when id is unknown.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*UniqueUser, error) {
	var user UniqueUser
	var firstSeen, lastSeen int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_agent, locale, first_seen, last_seen FROM unique_users WHERE id = ?", id).
		Scan(&user.ID, &user.UserAgent, &user.Locale, &firstSeen, &lastSeen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	user.FirstSeen = time.Unix(firstSeen, 0)
	user.LastSeen = time.Unix(lastSeen, 0)
	return &user, nil
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM unique_users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// InsertFeedback appends fb, assigning its ID and CreatedAt.
func (s *SQLiteStore) InsertFeedback(ctx context.Context, fb *Feedback) error {
	fb.ID = uuid.NewString()
	fb.CreatedAt = time.Now()

	var contextJSON sql.NullString
	if len(fb.Context) > 0 {
		b, err := json.Marshal(fb.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal feedback context: %w", err)
		}
		contextJSON = sql.NullString{String: string(b), Valid: true}
	}

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO feedback (id, user_id, rating, message, email, context_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare feedback insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, fb.ID, fb.UserID, fb.Rating, fb.Message, fb.Email, contextJSON, fb.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to execute feedback insert: %w", err)
	}
	return nil
}

// ListFeedback returns the newest feedback first.
func (s *SQLiteStore) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, rating, message, email, context_json, created_at FROM feedback ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var fb Feedback
		var contextJSON sql.NullString
		var createdAt int64
		if err := rows.Scan(&fb.ID, &fb.UserID, &fb.Rating, &fb.Message, &fb.Email, &contextJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		if contextJSON.Valid && contextJSON.String != "" {
			if err := json.Unmarshal([]byte(contextJSON.String), &fb.Context); err != nil {
				slog.Warn("Failed to unmarshal feedback context", "id", fb.ID, "error", err)
			}
		}
		fb.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return out, nil
}

// LoadProfile implements profile.Persister.
func (s *SQLiteStore) LoadProfile(ctx context.Context, clientID string) (*profile.LearnerProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT profile_json FROM learner_profiles WHERE client_id = ?", clientID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	var p profile.LearnerProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &p, nil
}

// SaveProfile implements profile.Persister.
func (s *SQLiteStore) SaveProfile(ctx context.Context, clientID string, p profile.LearnerProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
    INSERT INTO learner_profiles (client_id, profile_json, updated_at) VALUES (?, ?, ?)
    ON CONFLICT(client_id) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at`,
		clientID, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// DeleteProfile implements profile.Persister. Deleting an unknown profile
// is not an error.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, clientID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM learner_profiles WHERE client_id = ?", clientID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
