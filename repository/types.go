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

package repository

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/absnotary/notarystore/types"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
// Single-row lookups return (nil, nil) when no row matches.
type CrudRepository[T any] interface {
	// Create inserts the entity and reloads it so server-side defaults
	// are populated on the returned value.
	Create(ctx context.Context, entity *T) (*T, error)

	// CreateAll inserts all entities in one transaction. Either every
	// entity is persisted or none is.
	CreateAll(ctx context.Context, entities []*T) ([]*T, error)

	Get(ctx context.Context, id any) (*T, error)

	GetBy(ctx context.Context, column string, value any) (*T, error)

	// First returns the lowest-id entity matching the filters, or
	// (nil, nil).
	First(ctx context.Context, filters map[string]any) (*T, error)

	// GetAll lists entities ordered by id. A limit <= 0 means no limit.
	GetAll(ctx context.Context, limit, offset int) ([]*T, error)

	FilterBy(ctx context.Context, filters map[string]any) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Update applies the column/value pairs to the entity with the given
	// id and returns the updated entity, or (nil, nil) if it is absent.
	Update(ctx context.Context, id any, values map[string]any) (*T, error)

	// UpdateAll applies each update map (keyed by "id") independently and
	// returns how many entities were actually updated. Missing ids are
	// skipped, not errors.
	UpdateAll(ctx context.Context, updates []map[string]any) (int, error)

	// Delete removes the entity by id, reporting whether a row was deleted.
	Delete(ctx context.Context, id any) (bool, error)

	Exists(ctx context.Context, id any) (bool, error)

	ExistsBy(ctx context.Context, column string, value any) (bool, error)

	Count(ctx context.Context, filters map[string]any) (int, error)

	// Refresh reloads the entity from the database by primary key.
	Refresh(ctx context.Context, entity *T) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD and pagination operations and exposes the
// underlying bun.IDB and query builders for advanced use cases. The
// same repository works over a *bun.DB, a pooled bun.Conn, or a bun.Tx.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	DB() bun.IDB
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
