// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store caches the user directory and conversation previews in a
// local SQLite database, so the home view can render immediately on
// startup while fresh data loads from the backend.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/driftline/driftline-tui/internal/model"
)

// ErrNeverSynced indicates a collection has no recorded sync time yet.
var ErrNeverSynced = errors.New("collection never synced")

// SchemaVersion tracks the cache schema for future migrations.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Directory entries, one row per known user.
CREATE TABLE IF NOT EXISTS users (
    uid TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    photo_url TEXT,
    provider TEXT NOT NULL,
    created_at INTEGER NOT NULL  -- Unix timestamp
);

CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);

-- Conversation previews for the home list. Participant snapshots and the
-- last-message record are stored as JSON; the cache never needs to query
-- inside them.
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    participants TEXT NOT NULL,       -- JSON array of uids
    participants_data TEXT NOT NULL,  -- JSON array of snapshots
    last_message TEXT,                -- JSON, null before first message
    created_at INTEGER NOT NULL,
    last_updated INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(last_updated);
`

// Store is the on-disk read cache. Safe for concurrent use; SQLite access
// is serialized through a single connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(
		"INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', ?)",
		fmt.Sprintf("%d", SchemaVersion),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to write schema version: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// USERS
// =============================================================================

// PutUsers replaces the cached directory with the given users.
func (s *Store) PutUsers(ctx context.Context, users []model.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO users (uid, name, email, photo_url, provider, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.ExecContext(ctx,
			u.UID, u.Name, u.Email, u.PhotoURL, string(u.Provider), u.CreatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert user %s: %w", u.UID, err)
		}
	}

	if err := touchSynced(ctx, tx, "users"); err != nil {
		return err
	}
	return tx.Commit()
}

// Users returns the cached directory ordered by name.
func (s *Store) Users(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT uid, name, email, photo_url, provider, created_at FROM users ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var photoURL sql.NullString
		var provider string
		var createdAt int64
		if err := rows.Scan(&u.UID, &u.Name, &u.Email, &photoURL, &provider, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.PhotoURL = photoURL.String
		u.Provider = model.Provider(provider)
		u.CreatedAt = time.Unix(createdAt, 0).UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// PutConversations upserts conversation previews. Existing rows not in the
// batch are left alone; threads the user was removed from simply stop
// updating.
func (s *Store) PutConversations(ctx context.Context, convs []model.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO conversations (id, participants, participants_data, last_message, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			participants_data = excluded.participants_data,
			last_message = excluded.last_message,
			last_updated = excluded.last_updated`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range convs {
		participants, err := json.Marshal(c.Participants)
		if err != nil {
			return fmt.Errorf("failed to encode participants: %w", err)
		}
		snapshots, err := json.Marshal(c.ParticipantsData)
		if err != nil {
			return fmt.Errorf("failed to encode snapshots: %w", err)
		}
		var lastMessage any
		if c.LastMessage != nil {
			raw, err := json.Marshal(c.LastMessage)
			if err != nil {
				return fmt.Errorf("failed to encode last message: %w", err)
			}
			lastMessage = string(raw)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, string(participants), string(snapshots), lastMessage,
			c.CreatedAt.Unix(), c.LastUpdated.Unix(),
		); err != nil {
			return fmt.Errorf("failed to upsert conversation %s: %w", c.ID, err)
		}
	}

	if err := touchSynced(ctx, tx, "conversations"); err != nil {
		return err
	}
	return tx.Commit()
}

// Conversations returns cached previews the given uid participates in,
// most recently updated first.
func (s *Store) Conversations(ctx context.Context, uid string) ([]model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participants, participants_data, last_message, created_at, last_updated
		FROM conversations
		ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var c model.Conversation
		var participants, snapshots string
		var lastMessage sql.NullString
		var createdAt, lastUpdated int64
		if err := rows.Scan(&c.ID, &participants, &snapshots, &lastMessage, &createdAt, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(participants), &c.Participants); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(snapshots), &c.ParticipantsData); err != nil {
			continue
		}
		if lastMessage.Valid {
			var lm model.LastMessage
			if err := json.Unmarshal([]byte(lastMessage.String), &lm); err == nil {
				c.LastMessage = &lm
			}
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		c.LastUpdated = time.Unix(lastUpdated, 0).UTC()
		if c.HasParticipant(uid) {
			convs = append(convs, c)
		}
	}
	return convs, rows.Err()
}

// =============================================================================
// SYNC METADATA
// =============================================================================

// LastSynced returns when the named collection was last written.
func (s *Store) LastSynced(ctx context.Context, collection string) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = ?", "synced_"+collection).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNeverSynced
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync time: %w", err)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt sync time: %w", err)
	}
	return t, nil
}

func touchSynced(ctx context.Context, tx *sql.Tx, collection string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		"synced_"+collection, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record sync time: %w", err)
	}
	return nil
}
