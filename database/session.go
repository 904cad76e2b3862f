/*
 * Copyright 2026 the notarystore authors.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

// prePingRetries bounds how many dead connections AcquireSession will
// transparently replace before giving up.
const prePingRetries = 3

// Session is a scoped handle bound to exactly one pooled connection for
// the duration of a logical operation. It is not safe for concurrent
// use and must be closed; Close rolls back any open transaction and
// returns the connection to the pool, it never closes it.
type Session struct {
	conn   bun.Conn
	tx     *bun.Tx
	logger Logger
	mu     sync.Mutex
	closed bool
}

// DB returns the query surface for this session: the open transaction
// when one has been begun, otherwise the checked-out connection. After
// Close it returns nil — the connection went back to the pool and must
// not be reachable through a stale handle.
func (s *Session) DB() bun.IDB {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.tx != nil {
		return *s.tx
	}
	return s.conn
}

// Begin starts a transaction on the session's connection. Mutations are
// staged until Commit; Close rolls back anything uncommitted.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrManagerClosed
	}
	if s.tx != nil {
		return errors.New("database: session transaction already started")
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = &tx
	return nil
}

// Commit commits the open transaction.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return errors.New("database: no open transaction to commit")
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}

// Rollback discards the open transaction.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return errors.New("database: no open transaction to roll back")
	}
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

// Close releases the connection back to the pool. An uncommitted
// transaction is rolled back first. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil && s.logger != nil {
			s.logger.Warn("Failed to roll back session transaction", "error", err)
		}
		s.tx = nil
	}
	return s.conn.Close()
}

// AcquireSession checks out one pooled connection, waiting at most the
// configured acquisition timeout. When every persistent and overflow
// connection is in use and the timeout elapses, it fails with
// ErrPoolExhausted; the manager never retries on the caller's behalf.
// With pre-ping enabled, a connection found dead at checkout is
// replaced transparently.
func (dm *defaultManager) AcquireSession(ctx context.Context) (*Session, error) {
	dm.mu.RLock()
	db := dm.db
	closed := dm.closed
	logger := dm.logger
	cc := dm.config.Connection
	dm.mu.RUnlock()

	if closed || db == nil {
		return nil, ErrManagerClosed
	}

	acquireCtx, cancel := context.WithTimeout(ctx, cc.AcquireTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= prePingRetries; attempt++ {
		conn, err := db.Conn(acquireCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: no connection available within %s", ErrPoolExhausted, cc.AcquireTimeout)
			}
			return nil, fmt.Errorf("failed to acquire connection: %w", err)
		}

		if !cc.PrePing {
			return &Session{conn: conn, logger: logger}, nil
		}

		if _, err := conn.ExecContext(acquireCtx, "SELECT 1"); err == nil {
			return &Session{conn: conn, logger: logger}, nil
		} else {
			lastErr = err
		}

		// Dead connection: discard it and check out a replacement.
		_ = conn.Close()
		if logger != nil {
			logger.Warn("Replaced dead pooled connection", "attempt", attempt+1, "error", lastErr)
		}
		if errors.Is(lastErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no connection available within %s", ErrPoolExhausted, cc.AcquireTimeout)
		}
	}

	return nil, fmt.Errorf("connection pre-ping failed after %d attempts: %w", prePingRetries+1, lastErr)
}

// RunInSession acquires a session, runs fn, and guarantees the
// connection returns to the pool on every exit path.
func (dm *defaultManager) RunInSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	session, err := dm.AcquireSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	return fn(ctx, session)
}

// RunInTx runs fn inside a transaction on a scoped session. The
// transaction commits only when fn returns nil; any error or early exit
// rolls it back before the connection is released.
func (dm *defaultManager) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return dm.RunInSession(ctx, func(ctx context.Context, session *Session) error {
		if err := session.Begin(ctx); err != nil {
			return err
		}
		if err := fn(ctx, *session.tx); err != nil {
			return err // session.Close rolls back
		}
		return session.Commit()
	})
}
