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

package notarystore

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"github.com/absnotary/notarystore/database"
)

// Store bundles the domain repositories over one bun.IDB. A Store built
// from a *bun.DB uses the pool; a Store built from a bun.Tx scopes all
// repositories to that transaction.
type Store struct {
	db bun.IDB

	Accounts  *AccountRepository
	Documents *DocumentRepository
	APIKeys   *APIKeyRepository
}

// NewStore creates a Store over the given bun.IDB.
func NewStore(db bun.IDB) *Store {
	return &Store{
		db:        db,
		Accounts:  NewAccountRepository(db),
		Documents: NewDocumentRepository(db),
		APIKeys:   NewAPIKeyRepository(db),
	}
}

// NewStoreFromManager creates a Store backed by the manager's pooled
// connection.
func NewStoreFromManager(manager database.Manager) *Store {
	return NewStore(manager.DB())
}

// DB returns the underlying bun.IDB.
func (s *Store) DB() bun.IDB { return s.db }

// RunInTx runs fn against a transaction-scoped Store. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, store *Store) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}
