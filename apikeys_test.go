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
)

func TestCreateAndValidateAPIKey(t *testing.T) {
	store := newTestStore(t, "key_validate")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	description := "ci pipeline"
	key, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-abc", "sk_live_", &description)
	if err != nil {
		t.Fatalf("create api key error: %v", err)
	}
	if key.ID == 0 || key.CreatedAt.IsZero() {
		t.Fatalf("expected persisted key with defaults, got %+v", key)
	}

	account, err := store.APIKeys.ValidateAPIKey(ctx, "hash-abc")
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if account == nil || account.ID != owner.ID {
		t.Fatalf("expected owner %d, got %+v", owner.ID, account)
	}

	// Unknown hashes resolve to no account, never an error.
	account, err = store.APIKeys.ValidateAPIKey(ctx, "hash-unknown")
	if err != nil || account != nil {
		t.Fatalf("expected (nil, nil) for unknown hash, got (%+v, %v)", account, err)
	}
}

func TestValidateAPIKeyLogsMiss(t *testing.T) {
	store := newTestStore(t, "key_miss_log")
	ctx := context.Background()
	buf := captureLog(t, "APIKEYS")

	if _, err := store.APIKeys.ValidateAPIKey(ctx, "hash-ghost"); err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if !strings.Contains(buf.String(), "hash-ghost") {
		t.Fatalf("expected rejected validation to be logged, got %q", buf.String())
	}
}

func TestCreateAPIKeyValidation(t *testing.T) {
	store := newTestStore(t, "key_create_validation")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")

	if _, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "", "sk_live_", nil); err == nil {
		t.Fatal("expected error for empty key hash")
	}
	if _, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-1", "", nil); err == nil {
		t.Fatal("expected error for empty prefix")
	}

	if _, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-1", "sk_live_", nil); err != nil {
		t.Fatalf("create error: %v", err)
	}
	_, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-1", "sk_live_", nil)
	if !errors.Is(err, ErrDuplicateInput) {
		t.Fatalf("expected ErrDuplicateInput for reissued hash, got %v", err)
	}
}

func TestRevokeAPIKey(t *testing.T) {
	store := newTestStore(t, "key_revoke")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	key, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-1", "sk_live_", nil)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	revoked, err := store.APIKeys.RevokeAPIKey(ctx, key.ID)
	if err != nil || !revoked {
		t.Fatalf("expected revoke true, got (%v, %v)", revoked, err)
	}

	// The credential stops validating immediately.
	account, err := store.APIKeys.ValidateAPIKey(ctx, "hash-1")
	if err != nil || account != nil {
		t.Fatalf("expected revoked key to be invalid, got (%+v, %v)", account, err)
	}

	revoked, err = store.APIKeys.RevokeAPIKey(ctx, key.ID)
	if err != nil || revoked {
		t.Fatalf("expected second revoke to report false, got (%v, %v)", revoked, err)
	}
}

func TestRevokeUserAPIKeys(t *testing.T) {
	store := newTestStore(t, "key_revoke_all")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	other := mustCreateAccount(t, store, "other@example.com")

	for _, hash := range []string{"hash-1", "hash-2", "hash-3"} {
		if _, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, hash, "sk_live_", nil); err != nil {
			t.Fatalf("create error: %v", err)
		}
	}
	if _, err := store.APIKeys.CreateAPIKey(ctx, other.ID, "hash-other", "sk_live_", nil); err != nil {
		t.Fatalf("create error: %v", err)
	}

	removed, err := store.APIKeys.RevokeUserAPIKeys(ctx, owner.ID)
	if err != nil || removed != 3 {
		t.Fatalf("expected 3 revoked, got (%d, %v)", removed, err)
	}

	remaining, err := store.APIKeys.CountUserAPIKeys(ctx, other.ID)
	if err != nil || remaining != 1 {
		t.Fatalf("expected other user's key untouched, got (%d, %v)", remaining, err)
	}
}

func TestUpdateDescription(t *testing.T) {
	store := newTestStore(t, "key_description")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	key, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-1", "sk_live_", nil)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	updated, err := store.APIKeys.UpdateDescription(ctx, key.ID, "rotated for deploy bot")
	if err != nil {
		t.Fatalf("update description error: %v", err)
	}
	if updated == nil || updated.Description == nil || *updated.Description != "rotated for deploy bot" {
		t.Fatalf("unexpected updated key: %+v", updated)
	}

	missing, err := store.APIKeys.UpdateDescription(ctx, 9999, "x")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing key, got (%+v, %v)", missing, err)
	}
}

func TestSearchByDescription(t *testing.T) {
	store := newTestStore(t, "key_search")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	ci := "CI pipeline token"
	deploy := "deploy token"
	if _, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-1", "sk_live_", &ci); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-2", "sk_live_", &deploy); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := store.APIKeys.CreateAPIKey(ctx, owner.ID, "hash-3", "sk_live_", nil); err != nil {
		t.Fatalf("create error: %v", err)
	}

	matches, err := store.APIKeys.SearchByDescription(ctx, "token")
	if err != nil || len(matches) != 2 {
		t.Fatalf("expected 2 matches, got (%d, %v)", len(matches), err)
	}
	matches, err = store.APIKeys.SearchByDescription(ctx, "ci")
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected 1 case-insensitive match, got (%d, %v)", len(matches), err)
	}
}

func TestAPIKeyStats(t *testing.T) {
	store := newTestStore(t, "key_stats")
	ctx := context.Background()

	a := mustCreateAccount(t, store, "a@example.com")
	b := mustCreateAccount(t, store, "b@example.com")
	mustCreateAccount(t, store, "c@example.com")

	if _, err := store.APIKeys.CreateAPIKey(ctx, a.ID, "hash-1", "sk_live_", nil); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := store.APIKeys.CreateAPIKey(ctx, a.ID, "hash-2", "sk_live_", nil); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := store.APIKeys.CreateAPIKey(ctx, b.ID, "hash-3", "sk_live_", nil); err != nil {
		t.Fatalf("create error: %v", err)
	}

	stats, err := store.APIKeys.GetAPIKeyStats(ctx)
	if err != nil {
		t.Fatalf("stats error: %v", err)
	}
	if stats.Total != 3 || stats.UsersWithKeys != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	withOwner, err := store.APIKeys.GetWithOwner(ctx, 1)
	if err != nil {
		t.Fatalf("get with owner error: %v", err)
	}
	if withOwner == nil || withOwner.Owner == nil || withOwner.Owner.ID != a.ID {
		t.Fatalf("expected owner loaded, got %+v", withOwner)
	}
}
