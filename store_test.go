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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/absnotary/notarystore/database"
	"github.com/absnotary/notarystore/models"
	"github.com/absnotary/notarystore/utils"
)

func newTestStore(t *testing.T, name string) *Store {
	t.Helper()

	cc := database.DefaultConnectionConfig()
	cc.Type = "sqlite"
	cc.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	manager := database.NewManager(&database.Config{Connection: *cc})
	ctx := context.Background()
	if err := manager.Connect(ctx); err != nil {
		t.Fatalf("connect error: %v", err)
	}
	t.Cleanup(func() { _ = manager.Disconnect() })

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("migrations error: %v", err)
	}
	return NewStoreFromManager(manager)
}

func mustCreateAccount(t *testing.T, store *Store, email string) *models.Account {
	t.Helper()
	account, err := store.Accounts.Create(context.Background(), &models.Account{
		Email:          email,
		HashedPassword: "hashed",
	})
	if err != nil {
		t.Fatalf("create account error: %v", err)
	}
	return account
}

func mustCreateDocument(t *testing.T, store *Store, ownerID int64, fileHash string) *models.Document {
	t.Helper()
	doc, err := store.Documents.Create(context.Background(), &models.Document{
		FileName: "contract.pdf",
		FileHash: fileHash,
		FilePath: "/data/contract.pdf",
		Type:     models.TypeHash,
		OwnerID:  ownerID,
	})
	if err != nil {
		t.Fatalf("create document error: %v", err)
	}
	return doc
}

// captureLog redirects a named registry logger into a buffer for the
// duration of the test.
func captureLog(t *testing.T, name string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger := utils.NewLogger(name)
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })
	return &buf
}

func TestStoreRunInTx(t *testing.T) {
	store := newTestStore(t, "store_tx")
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		if _, err := tx.Accounts.Create(ctx, &models.Account{
			Email:          "txuser@example.com",
			HashedPassword: "x",
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	exists, err := store.Accounts.EmailExists(ctx, "txuser@example.com")
	if err != nil {
		t.Fatalf("exists error: %v", err)
	}
	if exists {
		t.Fatal("expected rolled back account to be absent")
	}

	err = store.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		_, err := tx.Accounts.Create(ctx, &models.Account{
			Email:          "txuser@example.com",
			HashedPassword: "x",
		})
		return err
	})
	if err != nil {
		t.Fatalf("committed tx error: %v", err)
	}
	exists, err = store.Accounts.EmailExists(ctx, "txuser@example.com")
	if err != nil || !exists {
		t.Fatalf("expected committed account, got (%v, %v)", exists, err)
	}
}
