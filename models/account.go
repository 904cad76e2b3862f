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

// Account owns documents and API keys. Email uniqueness is enforced at
// storage and is the authoritative duplicate check.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID             int64       `bun:"id,pk,autoincrement" json:"id"`
	Email          string      `bun:"email,type:varchar(255),notnull,unique" json:"email"`
	HashedPassword string      `bun:"hashed_password,type:varchar(255),notnull" json:"-"`
	Role           AccountRole `bun:"role,type:varchar(16),nullzero,notnull,default:'user'" json:"role"`
	CreatedAt      time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Documents []*Document `bun:"rel:has-many,join:id=owner_id" json:"-"`
	APIKeys   []*APIKey   `bun:"rel:has-many,join:id=owner_id" json:"-"`
}

func (a *Account) String() string {
	return fmt.Sprintf("Account(id=%d, email=%s, role=%s)", a.ID, a.Email, a.Role)
}

// IsAdmin reports whether the account carries the administrator role.
func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }
