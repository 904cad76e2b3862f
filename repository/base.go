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
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/absnotary/notarystore/database"
	"github.com/absnotary/notarystore/types"
)

type baseRepositoryImpl[T any] struct {
	db bun.IDB
}

// NewRepository returns a generic repository backed by the provided
// bun.IDB. Pass a *bun.DB for pooled access, or a bun.Tx to scope
// every operation to one transaction.
func NewRepository[T any](db bun.IDB) Repository[T] {
	return &baseRepositoryImpl[T]{db: db}
}

func (r *baseRepositoryImpl[T]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

// sortedKeys keeps generated SQL deterministic regardless of map order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func applyFilters(query *bun.SelectQuery, filters map[string]any) *bun.SelectQuery {
	for _, column := range sortedKeys(filters) {
		query = query.Where("? = ?", bun.Ident(column), filters[column])
	}
	return query
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, fmt.Errorf("repository: entity cannot be nil")
	}
	if _, err := r.db.NewInsert().Model(entity).Exec(ctx); err != nil {
		return nil, database.TagConstraint(err)
	}
	// reload to pick up server-side defaults on every dialect
	if err := r.Refresh(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) CreateAll(ctx context.Context, entities []*T) ([]*T, error) {
	if len(entities) == 0 {
		return entities, nil
	}
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&entities).Exec(ctx); err != nil {
			return database.TagConstraint(err)
		}
		for _, entity := range entities {
			if err := tx.NewSelect().Model(entity).WherePK().Scan(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	var entity T
	err := r.db.NewSelect().Model(&entity).Where("id = ?", id).Scan(ctx)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetBy(ctx context.Context, column string, value any) (*T, error) {
	var entity T
	err := r.db.NewSelect().
		Model(&entity).
		Where("? = ?", bun.Ident(column), value).
		Order("id ASC").
		Limit(1).
		Scan(ctx)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) First(ctx context.Context, filters map[string]any) (*T, error) {
	var entity T
	query := applyFilters(r.db.NewSelect().Model(&entity), filters)
	err := query.Order("id ASC").Limit(1).Scan(ctx)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context, limit, offset int) ([]*T, error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities).Order("id ASC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) FilterBy(ctx context.Context, filters map[string]any) ([]*T, error) {
	var entities []*T
	query := applyFilters(r.db.NewSelect().Model(&entities), filters)
	err := query.Order("id ASC").Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	err := query.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if pageRequest.GetFilter() != nil {
		query = query.Where(pageRequest.GetFilter().Schema, pageRequest.GetFilter().Args...)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(pageRequest.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, id any, values map[string]any) (*T, error) {
	if len(values) == 0 {
		return r.Get(ctx, id)
	}

	entity, err := r.Get(ctx, id)
	if err != nil || entity == nil {
		return nil, err
	}

	query := r.db.NewUpdate().Model((*T)(nil)).Where("id = ?", id)
	for _, column := range sortedKeys(values) {
		query = query.Set("? = ?", bun.Ident(column), values[column])
	}
	if _, err := query.Exec(ctx); err != nil {
		return nil, database.TagConstraint(err)
	}

	return r.Get(ctx, id)
}

func (r *baseRepositoryImpl[T]) UpdateAll(ctx context.Context, updates []map[string]any) (int, error) {
	updated := 0
	for _, values := range updates {
		id, ok := values["id"]
		if !ok {
			return updated, fmt.Errorf("repository: update entry missing id")
		}

		fields := make(map[string]any, len(values)-1)
		for column, value := range values {
			if column != "id" {
				fields[column] = value
			}
		}

		entity, err := r.Update(ctx, id, fields)
		if err != nil {
			return updated, err
		}
		if entity != nil {
			updated++
		}
	}
	return updated, nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) (bool, error) {
	var entity T
	result, err := r.db.NewDelete().Model(&entity).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return false, database.TagConstraint(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, id any) (bool, error) {
	return r.db.NewSelect().Model((*T)(nil)).Where("id = ?", id).Exists(ctx)
}

func (r *baseRepositoryImpl[T]) ExistsBy(ctx context.Context, column string, value any) (bool, error) {
	return r.db.NewSelect().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(column), value).
		Exists(ctx)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, filters map[string]any) (int, error) {
	query := r.db.NewSelect().Model((*T)(nil))
	for _, column := range sortedKeys(filters) {
		query = query.Where("? = ?", bun.Ident(column), filters[column])
	}
	return query.Count(ctx)
}

func (r *baseRepositoryImpl[T]) Refresh(ctx context.Context, entity *T) error {
	return r.db.NewSelect().Model(entity).WherePK().Scan(ctx)
}
