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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/absnotary/notarystore/database"
	"github.com/absnotary/notarystore/models"
	"github.com/absnotary/notarystore/repository"
	"github.com/absnotary/notarystore/utils"
)

// APIKeyStats summarizes issued credentials.
type APIKeyStats struct {
	Total         int `json:"total"`
	UsersWithKeys int `json:"users_with_keys"`
}

// APIKeyRepository provides credential-specific queries on top of the
// generic repository.
type APIKeyRepository struct {
	repository.Repository[models.APIKey]
	db  bun.IDB
	log *utils.Logger
}

// NewAPIKeyRepository creates an APIKeyRepository over the given bun.IDB.
func NewAPIKeyRepository(db bun.IDB) *APIKeyRepository {
	return &APIKeyRepository{
		Repository: repository.NewRepository[models.APIKey](db),
		db:         db,
		log:        utils.NewLogger("APIKEYS"),
	}
}

// GetByKeyHash returns the credential with the given hash, or (nil, nil).
func (r *APIKeyRepository) GetByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	return r.GetBy(ctx, "key_hash", keyHash)
}

// GetByPrefix returns the first credential with the given display
// prefix, or (nil, nil).
func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	return r.GetBy(ctx, "prefix", prefix)
}

// KeyHashExists reports whether a credential with the given hash exists.
func (r *APIKeyRepository) KeyHashExists(ctx context.Context, keyHash string) (bool, error) {
	return r.ExistsBy(ctx, "key_hash", keyHash)
}

// GetUserAPIKeys returns every credential owned by the account.
func (r *APIKeyRepository) GetUserAPIKeys(ctx context.Context, ownerID int64) ([]*models.APIKey, error) {
	return r.FilterBy(ctx, map[string]any{"owner_id": ownerID})
}

// ValidateAPIKey resolves the credential hash to its owning account.
// An unknown hash returns (nil, nil); any lookup failure is an error,
// never a fallback account.
func (r *APIKeyRepository) ValidateAPIKey(ctx context.Context, keyHash string) (*models.Account, error) {
	var account models.Account
	err := r.db.NewSelect().
		Model(&account).
		Join("JOIN api_keys AS k ON k.owner_id = a.id").
		Where("k.key_hash = ?", keyHash).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		r.log.WithFields(logrus.Fields{"key_hash": keyHash}).Warn("API key validation failed: unknown key")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateAPIKey creates a credential after validating the input and
// checking the hash is not already issued.
func (r *APIKeyRepository) CreateAPIKey(ctx context.Context, ownerID int64, keyHash, prefix string, description *string) (*models.APIKey, error) {
	if keyHash == "" {
		return nil, fmt.Errorf("notarystore: key hash cannot be empty")
	}
	if prefix == "" {
		return nil, fmt.Errorf("notarystore: key prefix cannot be empty")
	}

	exists, err := r.KeyHashExists(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: key hash already issued", ErrDuplicateInput)
	}

	key := &models.APIKey{
		OwnerID:     ownerID,
		KeyHash:     keyHash,
		Prefix:      prefix,
		Description: description,
	}
	return r.Create(ctx, key)
}

// RevokeAPIKey deletes the credential, reporting whether it existed.
func (r *APIKeyRepository) RevokeAPIKey(ctx context.Context, keyID int64) (bool, error) {
	return r.Delete(ctx, keyID)
}

// RevokeUserAPIKeys deletes every credential owned by the account and
// returns how many were removed.
func (r *APIKeyRepository) RevokeUserAPIKeys(ctx context.Context, ownerID int64) (int, error) {
	result, err := r.db.NewDelete().
		Model((*models.APIKey)(nil)).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return 0, database.TagConstraint(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// UpdateDescription replaces the credential's description, returning
// the updated credential or (nil, nil) if it is absent.
func (r *APIKeyRepository) UpdateDescription(ctx context.Context, keyID int64, description string) (*models.APIKey, error) {
	return r.Update(ctx, keyID, map[string]any{"description": description})
}

// GetWithOwner returns the credential with its owning account loaded,
// or (nil, nil).
func (r *APIKeyRepository) GetWithOwner(ctx context.Context, keyID int64) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.NewSelect().
		Model(&key).
		Relation("Owner").
		Where("k.id = ?", keyID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// SearchByDescription returns credentials whose description contains
// the pattern, case-insensitively.
func (r *APIKeyRepository) SearchByDescription(ctx context.Context, pattern string) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	err := r.db.NewSelect().
		Model(&keys).
		Where("description IS NOT NULL").
		Where("LOWER(description) LIKE ?", "%"+strings.ToLower(pattern)+"%").
		Order("id ASC").
		Scan(ctx)
	return keys, err
}

// GetRecentAPIKeys returns credentials created within the last N days.
func (r *APIKeyRepository) GetRecentAPIKeys(ctx context.Context, days int) ([]*models.APIKey, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var keys []*models.APIKey
	err := r.db.NewSelect().
		Model(&keys).
		Where("created_at >= ?", cutoff).
		Order("id ASC").
		Scan(ctx)
	return keys, err
}

// CountUserAPIKeys counts credentials owned by the account.
func (r *APIKeyRepository) CountUserAPIKeys(ctx context.Context, ownerID int64) (int, error) {
	return r.Count(ctx, map[string]any{"owner_id": ownerID})
}

// GetAPIKeyStats returns credential totals and the number of distinct
// accounts holding at least one credential.
func (r *APIKeyRepository) GetAPIKeyStats(ctx context.Context) (*APIKeyStats, error) {
	total, err := r.Count(ctx, nil)
	if err != nil {
		return nil, err
	}

	var usersWithKeys int
	err = r.db.NewSelect().
		Model((*models.APIKey)(nil)).
		ColumnExpr("count(DISTINCT owner_id)").
		Scan(ctx, &usersWithKeys)
	if err != nil {
		return nil, err
	}

	return &APIKeyStats{Total: total, UsersWithKeys: usersWithKeys}, nil
}
