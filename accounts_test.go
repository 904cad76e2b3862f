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
	"errors"
	"strings"
	"testing"

	"github.com/absnotary/notarystore/models"
)

func TestGetByEmail(t *testing.T) {
	store := newTestStore(t, "acct_by_email")
	ctx := context.Background()

	created := mustCreateAccount(t, store, "alice@example.com")

	got, err := store.Accounts.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email error: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("expected account %d, got %+v", created.ID, got)
	}

	missing, err := store.Accounts.GetByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for unknown email, got (%+v, %v)", missing, err)
	}
}

func TestGetByEmailLogsMiss(t *testing.T) {
	store := newTestStore(t, "acct_miss_log")
	ctx := context.Background()
	buf := captureLog(t, "ACCOUNTS")

	if _, err := store.Accounts.GetByEmail(ctx, "ghost@example.com"); err != nil {
		t.Fatalf("get by email error: %v", err)
	}
	if !strings.Contains(buf.String(), "ghost@example.com") {
		t.Fatalf("expected miss to be logged with the email, got %q", buf.String())
	}
}

func TestRoleManagement(t *testing.T) {
	store := newTestStore(t, "acct_roles")
	ctx := context.Background()

	account := mustCreateAccount(t, store, "carol@example.com")
	if account.Role != models.RoleUser {
		t.Fatalf("expected default role user, got %q", account.Role)
	}

	isAdmin, err := store.Accounts.IsAdmin(ctx, account.ID)
	if err != nil || isAdmin {
		t.Fatalf("expected non-admin, got (%v, %v)", isAdmin, err)
	}

	if err := store.Accounts.PromoteToAdmin(ctx, account.ID); err != nil {
		t.Fatalf("promote error: %v", err)
	}
	isAdmin, err = store.Accounts.IsAdmin(ctx, account.ID)
	if err != nil || !isAdmin {
		t.Fatalf("expected admin after promotion, got (%v, %v)", isAdmin, err)
	}

	if err := store.Accounts.DemoteToUser(ctx, account.ID); err != nil {
		t.Fatalf("demote error: %v", err)
	}

	// Role changes on missing accounts fail, unlike plain lookups.
	if err := store.Accounts.PromoteToAdmin(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for promote on missing account, got %v", err)
	}
	if err := store.Accounts.DemoteToUser(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for demote on missing account, got %v", err)
	}
	isAdmin, err = store.Accounts.IsAdmin(ctx, 9999)
	if err != nil || isAdmin {
		t.Fatalf("expected missing account to not be admin, got (%v, %v)", isAdmin, err)
	}
}

func TestRoleFilters(t *testing.T) {
	store := newTestStore(t, "acct_filters")
	ctx := context.Background()

	admin := mustCreateAccount(t, store, "root@example.com")
	if err := store.Accounts.PromoteToAdmin(ctx, admin.ID); err != nil {
		t.Fatalf("promote error: %v", err)
	}
	mustCreateAccount(t, store, "u1@example.com")
	mustCreateAccount(t, store, "u2@example.com")

	admins, err := store.Accounts.GetAllAdmins(ctx)
	if err != nil || len(admins) != 1 {
		t.Fatalf("expected 1 admin, got (%d, %v)", len(admins), err)
	}
	users, err := store.Accounts.GetAllRegularUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("expected 2 regular users, got (%d, %v)", len(users), err)
	}

	stats, err := store.Accounts.GetUserStats(ctx)
	if err != nil {
		t.Fatalf("stats error: %v", err)
	}
	if stats.Total != 3 || stats.Admins != 1 || stats.RegularUsers != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestUpdatePassword(t *testing.T) {
	store := newTestStore(t, "acct_password")
	ctx := context.Background()

	account := mustCreateAccount(t, store, "dave@example.com")

	ok, err := store.Accounts.UpdatePassword(ctx, account.ID, "newhash")
	if err != nil || !ok {
		t.Fatalf("update password error: (%v, %v)", ok, err)
	}
	got, err := store.Accounts.Get(ctx, account.ID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.HashedPassword != "newhash" {
		t.Fatalf("expected new hash, got %q", got.HashedPassword)
	}

	ok, err = store.Accounts.UpdatePassword(ctx, 9999, "x")
	if err != nil || ok {
		t.Fatalf("expected false for missing account, got (%v, %v)", ok, err)
	}
}

func TestSearchByEmail(t *testing.T) {
	store := newTestStore(t, "acct_search")
	ctx := context.Background()

	mustCreateAccount(t, store, "alice@corp.example.com")
	mustCreateAccount(t, store, "Bob@Corp.example.com")
	mustCreateAccount(t, store, "eve@other.example.net")

	matches, err := store.Accounts.SearchByEmail(ctx, "CORP")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected case-insensitive match of 2 accounts, got %d", len(matches))
	}
}

func TestEmailUniqueness(t *testing.T) {
	store := newTestStore(t, "acct_unique")
	ctx := context.Background()

	mustCreateAccount(t, store, "unique@example.com")
	_, err := store.Accounts.Create(ctx, &models.Account{
		Email:          "unique@example.com",
		HashedPassword: "x",
	})
	if err == nil {
		t.Fatal("expected unique violation on second create")
	}
}

func TestBulkCreateAccountsRejectsDuplicateInput(t *testing.T) {
	store := newTestStore(t, "acct_bulk")
	ctx := context.Background()

	_, err := store.Accounts.BulkCreateAccounts(ctx, []*models.Account{
		{Email: "same@example.com", HashedPassword: "x"},
		{Email: "same@example.com", HashedPassword: "y"},
	})
	if !errors.Is(err, ErrDuplicateInput) {
		t.Fatalf("expected ErrDuplicateInput, got %v", err)
	}

	count, err := store.Accounts.Count(ctx, nil)
	if err != nil || count != 0 {
		t.Fatalf("expected nothing persisted, got (%d, %v)", count, err)
	}

	created, err := store.Accounts.BulkCreateAccounts(ctx, []*models.Account{
		{Email: "one@example.com", HashedPassword: "x"},
		{Email: "two@example.com", HashedPassword: "x"},
	})
	if err != nil || len(created) != 2 {
		t.Fatalf("bulk create error: (%d, %v)", len(created), err)
	}
}

func TestGetWithRelations(t *testing.T) {
	store := newTestStore(t, "acct_relations")
	ctx := context.Background()

	account := mustCreateAccount(t, store, "owner@example.com")
	mustCreateDocument(t, store, account.ID, "0x"+strings.Repeat("a", 64))
	if _, err := store.APIKeys.CreateAPIKey(ctx, account.ID, "hash-1", "sk_live_", nil); err != nil {
		t.Fatalf("create api key error: %v", err)
	}

	withDocs, err := store.Accounts.GetWithDocuments(ctx, account.ID)
	if err != nil {
		t.Fatalf("get with documents error: %v", err)
	}
	if withDocs == nil || len(withDocs.Documents) != 1 {
		t.Fatalf("expected 1 loaded document, got %+v", withDocs)
	}

	withKeys, err := store.Accounts.GetWithAPIKeys(ctx, account.ID)
	if err != nil {
		t.Fatalf("get with api keys error: %v", err)
	}
	if withKeys == nil || len(withKeys.APIKeys) != 1 {
		t.Fatalf("expected 1 loaded api key, got %+v", withKeys)
	}

	missing, err := store.Accounts.GetWithDocuments(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing account, got (%+v, %v)", missing, err)
	}
}
