/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flamego/session"
	"github.com/jackc/pgx/v5"
)

// defaultSessionLifetime is how long an idle browser session is kept.
const defaultSessionLifetime = 7 * 24 * time.Hour

var errInvalidSessionConfig = errors.New("invalid SessionStoreConfig")

// SessionStoreConfig configures the PostgreSQL session store.
type SessionStoreConfig struct {
	// Lifetime is how long a session survives without being touched.
	Lifetime time.Duration
}

// SessionStore keeps flamego sessions, and so pending flash messages, in
// the web_sessions table so they survive restarts.
type SessionStore struct {
	lifetime time.Duration
}

// SessionStoreIniter returns the session.Initer for SessionStore. It
// accepts an optional SessionStoreConfig.
func SessionStoreIniter() session.Initer {
	return func(_ context.Context, args ...interface{}) (session.Store, error) {
		var config SessionStoreConfig

		if len(args) > 0 && args[0] != nil {
			var ok bool

			config, ok = args[0].(SessionStoreConfig)
			if !ok {
				return nil, fmt.Errorf("%w: %T", errInvalidSessionConfig, args[0])
			}
		}

		if config.Lifetime <= 0 {
			config.Lifetime = defaultSessionLifetime
		}

		return &SessionStore{lifetime: config.Lifetime}, nil
	}
}

// Exist reports whether an unexpired session with the ID exists.
func (s *SessionStore) Exist(ctx context.Context, sid string) bool {
	if pool == nil {
		return false
	}

	var exists bool

	err := pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM web_sessions WHERE id = $1 AND expires_at > NOW())`,
		sid,
	).Scan(&exists)

	return err == nil && exists
}

// Read loads the session, or starts an empty one under the same ID when it
// is missing, expired or undecodable.
func (s *SessionStore) Read(ctx context.Context, sid string) (session.Session, error) {
	// The session middleware writes the cookie itself.
	idWriter := func(http.ResponseWriter, *http.Request, string) {}

	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var data []byte

	err := pool.QueryRow(ctx,
		`SELECT data FROM web_sessions WHERE id = $1 AND expires_at > NOW()`,
		sid,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.NewBaseSession(sid, session.GobEncoder, idWriter), nil
		}

		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	values, err := session.GobDecoder(data)
	if err != nil {
		logger.Warn("Discarding undecodable session", "error", err)
		return session.NewBaseSession(sid, session.GobEncoder, idWriter), nil
	}

	return session.NewBaseSessionWithData(sid, session.GobEncoder, idWriter, values), nil
}

// Destroy deletes the session.
func (s *SessionStore) Destroy(ctx context.Context, sid string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	if _, err := pool.Exec(ctx, `DELETE FROM web_sessions WHERE id = $1`, sid); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	return nil
}

// Touch extends the session's expiry.
func (s *SessionStore) Touch(ctx context.Context, sid string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	_, err := pool.Exec(ctx,
		`UPDATE web_sessions SET expires_at = $1 WHERE id = $2`,
		time.Now().Add(s.lifetime), sid,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}

// Save upserts the encoded session.
func (s *SessionStore) Save(ctx context.Context, sess session.Session) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	data, err := sess.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO web_sessions (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			expires_at = EXCLUDED.expires_at
	`, sess.ID(), data, time.Now().Add(s.lifetime))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GC removes expired sessions.
func (s *SessionStore) GC(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	tag, err := pool.Exec(ctx, `DELETE FROM web_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return fmt.Errorf("failed to collect expired sessions: %w", err)
	}

	if n := tag.RowsAffected(); n > 0 {
		logger.Debug("Removed expired sessions", "count", n)
	}

	return nil
}
