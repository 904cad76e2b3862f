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

	"github.com/absnotary/notarystore/models"
	"github.com/absnotary/notarystore/repository"
	"github.com/absnotary/notarystore/utils"
)

// AccountStats summarizes the account population by role.
type AccountStats struct {
	Total        int `json:"total"`
	Admins       int `json:"admins"`
	RegularUsers int `json:"regular_users"`
}

// AccountRepository provides account-specific queries on top of the
// generic repository.
type AccountRepository struct {
	repository.Repository[models.Account]
	db  bun.IDB
	log *utils.Logger
}

// NewAccountRepository creates an AccountRepository over the given bun.IDB.
func NewAccountRepository(db bun.IDB) *AccountRepository {
	return &AccountRepository{
		Repository: repository.NewRepository[models.Account](db),
		db:         db,
		log:        utils.NewLogger("ACCOUNTS"),
	}
}

// GetByEmail returns the account with the given email, or (nil, nil).
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := r.GetBy(ctx, "email", email)
	if err == nil && account == nil {
		r.log.WithFields(logrus.Fields{"email": email}).Warn("Account not found")
	}
	return account, err
}

// EmailExists reports whether an account with the given email exists.
func (r *AccountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.ExistsBy(ctx, "email", email)
}

// GetAllAdmins returns every account with the admin role.
func (r *AccountRepository) GetAllAdmins(ctx context.Context) ([]*models.Account, error) {
	return r.FilterBy(ctx, map[string]any{"role": models.RoleAdmin})
}

// GetAllRegularUsers returns every account with the user role.
func (r *AccountRepository) GetAllRegularUsers(ctx context.Context) ([]*models.Account, error) {
	return r.FilterBy(ctx, map[string]any{"role": models.RoleUser})
}

// GetUsersByRole returns the accounts holding the given role.
func (r *AccountRepository) GetUsersByRole(ctx context.Context, role models.AccountRole) ([]*models.Account, error) {
	return r.FilterBy(ctx, map[string]any{"role": role})
}

// CountByRole counts accounts holding the given role.
func (r *AccountRepository) CountByRole(ctx context.Context, role models.AccountRole) (int, error) {
	return r.Count(ctx, map[string]any{"role": role})
}

// IsAdmin reports whether the account exists and holds the admin role.
// A missing account is not an admin.
func (r *AccountRepository) IsAdmin(ctx context.Context, accountID int64) (bool, error) {
	account, err := r.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account != nil && account.IsAdmin(), nil
}

// PromoteToAdmin grants the admin role. A missing account is
// ErrNotFound: a role change names an account the caller believes
// exists.
func (r *AccountRepository) PromoteToAdmin(ctx context.Context, accountID int64) error {
	return r.setRole(ctx, accountID, models.RoleAdmin)
}

// DemoteToUser reverts the account to the regular user role, failing
// with ErrNotFound when the account is absent.
func (r *AccountRepository) DemoteToUser(ctx context.Context, accountID int64) error {
	return r.setRole(ctx, accountID, models.RoleUser)
}

func (r *AccountRepository) setRole(ctx context.Context, accountID int64, role models.AccountRole) error {
	updated, err := r.Update(ctx, accountID, map[string]any{"role": role})
	if err != nil {
		return err
	}
	if updated == nil {
		r.log.WithFields(logrus.Fields{"account_id": accountID, "role": role}).Warn("Role change on missing account")
		return fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}
	r.log.WithFields(logrus.Fields{"account_id": accountID, "role": role}).Info("Account role changed")
	return nil
}

// UpdatePassword replaces the stored password hash, reporting whether
// the account existed.
func (r *AccountRepository) UpdatePassword(ctx context.Context, accountID int64, hashedPassword string) (bool, error) {
	updated, err := r.Update(ctx, accountID, map[string]any{"hashed_password": hashedPassword})
	return updated != nil, err
}

// SearchByEmail returns accounts whose email contains the pattern,
// case-insensitively.
func (r *AccountRepository) SearchByEmail(ctx context.Context, pattern string) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.db.NewSelect().
		Model(&accounts).
		Where("LOWER(email) LIKE ?", "%"+strings.ToLower(pattern)+"%").
		Order("id ASC").
		Scan(ctx)
	return accounts, err
}

// GetRecentAccounts returns accounts created within the last N days.
func (r *AccountRepository) GetRecentAccounts(ctx context.Context, days int) ([]*models.Account, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var accounts []*models.Account
	err := r.db.NewSelect().
		Model(&accounts).
		Where("created_at >= ?", cutoff).
		Order("id ASC").
		Scan(ctx)
	return accounts, err
}

// GetWithAPIKeys returns the account with its API keys loaded, or
// (nil, nil).
func (r *AccountRepository) GetWithAPIKeys(ctx context.Context, accountID int64) (*models.Account, error) {
	return r.getWithRelation(ctx, accountID, "APIKeys")
}

// GetWithDocuments returns the account with its documents loaded, or
// (nil, nil).
func (r *AccountRepository) GetWithDocuments(ctx context.Context, accountID int64) (*models.Account, error) {
	return r.getWithRelation(ctx, accountID, "Documents")
}

func (r *AccountRepository) getWithRelation(ctx context.Context, accountID int64, relation string) (*models.Account, error) {
	var account models.Account
	err := r.db.NewSelect().
		Model(&account).
		Relation(relation).
		Where("a.id = ?", accountID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// BulkCreateAccounts creates the accounts in one transaction after
// rejecting duplicate emails within the input itself.
func (r *AccountRepository) BulkCreateAccounts(ctx context.Context, accounts []*models.Account) ([]*models.Account, error) {
	seen := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		if _, ok := seen[account.Email]; ok {
			return nil, fmt.Errorf("%w: email %s", ErrDuplicateInput, account.Email)
		}
		seen[account.Email] = struct{}{}
	}
	return r.CreateAll(ctx, accounts)
}

// GetUserStats returns account counts overall and per role.
func (r *AccountRepository) GetUserStats(ctx context.Context) (*AccountStats, error) {
	total, err := r.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	admins, err := r.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	regular, err := r.CountByRole(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}
	return &AccountStats{Total: total, Admins: admins, RegularUsers: regular}, nil
}
