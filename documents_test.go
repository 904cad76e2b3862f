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
	"fmt"
	"strings"
	"testing"

	"github.com/absnotary/notarystore/models"
)

func testFileHash(n int) string {
	return fmt.Sprintf("0x%064d", n)
}

func TestGetByFileHash(t *testing.T) {
	store := newTestStore(t, "doc_by_hash")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	created := mustCreateDocument(t, store, owner.ID, testFileHash(1))

	got, err := store.Documents.GetByFileHash(ctx, testFileHash(1))
	if err != nil {
		t.Fatalf("get by file hash error: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("expected document %d, got %+v", created.ID, got)
	}
	if got.Status != models.StatusPending {
		t.Fatalf("expected default status pending, got %q", got.Status)
	}

	missing, err := store.Documents.GetByFileHash(ctx, testFileHash(42))
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for unknown hash, got (%+v, %v)", missing, err)
	}

	exists, err := store.Documents.FileHashExists(ctx, testFileHash(1))
	if err != nil || !exists {
		t.Fatalf("expected hash to exist, got (%v, %v)", exists, err)
	}
}

func TestFileHashUniqueness(t *testing.T) {
	store := newTestStore(t, "doc_unique")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	mustCreateDocument(t, store, owner.ID, testFileHash(1))

	_, err := store.Documents.Create(ctx, &models.Document{
		FileName: "again.pdf",
		FileHash: testFileHash(1),
		FilePath: "/data/again.pdf",
		Type:     models.TypeHash,
		OwnerID:  owner.ID,
	})
	if err == nil {
		t.Fatal("expected unique violation for duplicate file hash")
	}
}

func TestStatusLifecycle(t *testing.T) {
	store := newTestStore(t, "doc_lifecycle")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	doc := mustCreateDocument(t, store, owner.ID, testFileHash(1))

	updated, err := store.Documents.UpdateStatus(ctx, doc.ID, models.StatusProcessing, nil)
	if err != nil {
		t.Fatalf("pending -> processing error: %v", err)
	}
	if updated.Status != models.StatusProcessing {
		t.Fatalf("expected processing, got %q", updated.Status)
	}

	// Skipping processing is not allowed.
	fresh := mustCreateDocument(t, store, owner.ID, testFileHash(2))
	_, err = store.Documents.UpdateStatus(ctx, fresh.ID, models.StatusOnChain, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending -> on_chain, got %v", err)
	}

	// Unknown documents are reported distinctly.
	_, err = store.Documents.UpdateStatus(ctx, 9999, models.StatusProcessing, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusToError(t *testing.T) {
	store := newTestStore(t, "doc_error")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	doc := mustCreateDocument(t, store, owner.ID, testFileHash(1))

	message := "gas estimation failed"
	updated, err := store.Documents.UpdateStatus(ctx, doc.ID, models.StatusError, &message)
	if err != nil {
		t.Fatalf("pending -> error error: %v", err)
	}
	if updated.Status != models.StatusError {
		t.Fatalf("expected error status, got %q", updated.Status)
	}
	if updated.ErrorMessage == nil || *updated.ErrorMessage != message {
		t.Fatalf("expected stored error message, got %+v", updated.ErrorMessage)
	}

	// Error is terminal.
	_, err = store.Documents.UpdateStatus(ctx, doc.ID, models.StatusProcessing, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition out of error, got %v", err)
	}
}

func TestMarkAsOnChain(t *testing.T) {
	store := newTestStore(t, "doc_onchain")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	doc := mustCreateDocument(t, store, owner.ID, testFileHash(1))

	if _, err := store.Documents.UpdateStatus(ctx, doc.ID, models.StatusProcessing, nil); err != nil {
		t.Fatalf("to processing error: %v", err)
	}

	txHash := "0x" + strings.Repeat("b", 64)
	arweaveURL := "https://arweave.net/abc"
	tokenID := int64(7)
	updated, err := store.Documents.MarkAsOnChain(ctx, doc.ID, OnChainAssets{
		TransactionHash: txHash,
		SignedJSONPath:  "/certs/1.json",
		SignedPDFPath:   "/certs/1.pdf",
		ArweaveFileURL:  &arweaveURL,
		NFTTokenID:      &tokenID,
	})
	if err != nil {
		t.Fatalf("mark on-chain error: %v", err)
	}
	if updated.Status != models.StatusOnChain {
		t.Fatalf("expected on_chain, got %q", updated.Status)
	}
	if updated.TransactionHash == nil || *updated.TransactionHash != txHash {
		t.Fatalf("expected transaction hash stored, got %+v", updated.TransactionHash)
	}
	if updated.NFTTokenID == nil || *updated.NFTTokenID != tokenID {
		t.Fatalf("expected nft token id stored, got %+v", updated.NFTTokenID)
	}

	// Terminal: no further transitions.
	_, err = store.Documents.UpdateStatus(ctx, doc.ID, models.StatusProcessing, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition out of on_chain, got %v", err)
	}

	// Lookup by the recorded transaction hash round-trips.
	byTx, err := store.Documents.GetByTransactionHash(ctx, txHash)
	if err != nil || byTx == nil || byTx.ID != doc.ID {
		t.Fatalf("get by transaction hash mismatch: (%+v, %v)", byTx, err)
	}
}

func TestUserDocumentQueries(t *testing.T) {
	store := newTestStore(t, "doc_user_queries")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	other := mustCreateAccount(t, store, "other@example.com")

	for i := 0; i < 3; i++ {
		mustCreateDocument(t, store, owner.ID, testFileHash(i))
	}
	mustCreateDocument(t, store, other.ID, testFileHash(10))
	if _, err := store.Documents.UpdateStatus(ctx, 1, models.StatusProcessing, nil); err != nil {
		t.Fatalf("to processing error: %v", err)
	}

	all, err := store.Documents.GetUserDocuments(ctx, owner.ID, nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 owner documents, got (%d, %v)", len(all), err)
	}

	pending := models.StatusPending
	filtered, err := store.Documents.GetUserDocuments(ctx, owner.ID, &UserDocumentsFilter{Status: &pending})
	if err != nil || len(filtered) != 2 {
		t.Fatalf("expected 2 pending owner documents, got (%d, %v)", len(filtered), err)
	}

	count, err := store.Documents.CountUserDocuments(ctx, owner.ID, &pending)
	if err != nil || count != 2 {
		t.Fatalf("expected count 2, got (%d, %v)", count, err)
	}

	queue, err := store.Documents.GetPendingDocuments(ctx, 2)
	if err != nil || len(queue) != 2 {
		t.Fatalf("expected limited pending queue of 2, got (%d, %v)", len(queue), err)
	}
}

func TestSearchByFilename(t *testing.T) {
	store := newTestStore(t, "doc_search")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	docs := store.Documents
	if _, err := docs.Create(ctx, &models.Document{
		FileName: "Annual-Report.pdf", FileHash: testFileHash(1),
		FilePath: "/d/1", Type: models.TypeHash, OwnerID: owner.ID,
	}); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := docs.Create(ctx, &models.Document{
		FileName: "invoice.pdf", FileHash: testFileHash(2),
		FilePath: "/d/2", Type: models.TypeHash, OwnerID: owner.ID,
	}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	matches, err := docs.SearchByFilename(ctx, "report")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(matches) != 1 || matches[0].FileName != "Annual-Report.pdf" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestDocumentStats(t *testing.T) {
	store := newTestStore(t, "doc_stats")
	ctx := context.Background()

	owner := mustCreateAccount(t, store, "owner@example.com")
	for i := 0; i < 3; i++ {
		mustCreateDocument(t, store, owner.ID, testFileHash(i))
	}
	nft, err := store.Documents.Create(ctx, &models.Document{
		FileName: "art.png", FileHash: testFileHash(10),
		FilePath: "/d/art", Type: models.TypeNFT, OwnerID: owner.ID,
	})
	if err != nil {
		t.Fatalf("create nft doc error: %v", err)
	}
	if _, err := store.Documents.UpdateStatus(ctx, nft.ID, models.StatusProcessing, nil); err != nil {
		t.Fatalf("to processing error: %v", err)
	}

	stats, err := store.Documents.GetDocumentStats(ctx)
	if err != nil {
		t.Fatalf("stats error: %v", err)
	}
	if stats.Total != 4 || stats.Pending != 3 || stats.Processing != 1 {
		t.Fatalf("unexpected status counts: %+v", stats)
	}
	if stats.HashType != 3 || stats.NFTType != 1 {
		t.Fatalf("unexpected type counts: %+v", stats)
	}
}
