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

package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// APIKey grants an account programmatic access. Only the hash of the raw
// key is stored, plus a short non-secret prefix for display.
type APIKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:k"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	KeyHash     string    `bun:"key_hash,type:varchar(255),notnull,unique" json:"-"`
	Prefix      string    `bun:"prefix,type:varchar(16),notnull" json:"prefix"` // e.g. "sk_live_abc123"
	Description *string   `bun:"description" json:"description,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	OwnerID int64    `bun:"owner_id,notnull" json:"owner_id"`
	Owner   *Account `bun:"rel:belongs-to,join:owner_id=id" json:"-"`
}

func (k *APIKey) String() string {
	return fmt.Sprintf("APIKey(id=%d, prefix=%s)", k.ID, k.Prefix)
}
