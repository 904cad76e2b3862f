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
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/absnotary/notarystore/models"
	"github.com/absnotary/notarystore/repository"
	"github.com/absnotary/notarystore/utils"
)

// DocumentStats summarizes documents by lifecycle status and type.
type DocumentStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	OnChain    int `json:"on_chain"`
	Error      int `json:"error"`
	HashType   int `json:"hash_type"`
	NFTType    int `json:"nft_type"`
}

// UserDocumentsFilter narrows GetUserDocuments. Nil fields are ignored;
// Limit <= 0 means no limit.
type UserDocumentsFilter struct {
	Status *models.DocStatus
	Type   *models.DocType
	Limit  int
	Offset int
}

// OnChainAssets carries the artifacts recorded when a document reaches
// the blockchain. The Arweave URLs and token id are only set for NFT
// notarizations.
type OnChainAssets struct {
	TransactionHash    string
	SignedJSONPath     string
	SignedPDFPath      string
	ArweaveFileURL     *string
	ArweaveMetadataURL *string
	NFTTokenID         *int64
}

// DocumentRepository provides notarization-specific queries on top of
// the generic repository.
type DocumentRepository struct {
	repository.Repository[models.Document]
	db  bun.IDB
	log *utils.Logger
}

// NewDocumentRepository creates a DocumentRepository over the given bun.IDB.
func NewDocumentRepository(db bun.IDB) *DocumentRepository {
	return &DocumentRepository{
		Repository: repository.NewRepository[models.Document](db),
		db:         db,
		log:        utils.NewLogger("DOCUMENTS"),
	}
}

// GetByFileHash returns the document with the given SHA-256 file hash,
// or (nil, nil).
func (r *DocumentRepository) GetByFileHash(ctx context.Context, fileHash string) (*models.Document, error) {
	doc, err := r.GetBy(ctx, "file_hash", fileHash)
	if err == nil && doc == nil {
		r.log.WithFields(logrus.Fields{"file_hash": fileHash}).Warn("Document not found")
	}
	return doc, err
}

// FileHashExists reports whether a document with the given file hash
// exists.
func (r *DocumentRepository) FileHashExists(ctx context.Context, fileHash string) (bool, error) {
	return r.ExistsBy(ctx, "file_hash", fileHash)
}

// GetByTransactionHash returns the document anchored by the given
// blockchain transaction hash, or (nil, nil).
func (r *DocumentRepository) GetByTransactionHash(ctx context.Context, txHash string) (*models.Document, error) {
	return r.GetBy(ctx, "transaction_hash", txHash)
}

// GetUserDocuments returns the user's documents, optionally narrowed by
// status and type.
func (r *DocumentRepository) GetUserDocuments(ctx context.Context, ownerID int64, filter *UserDocumentsFilter) ([]*models.Document, error) {
	var docs []*models.Document
	query := r.db.NewSelect().Model(&docs).Where("owner_id = ?", ownerID)

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.Type != nil {
			query = query.Where("type = ?", *filter.Type)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
	}

	err := query.Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"owner_id": ownerID, "count": len(docs)}).Info("Fetched user documents")
	return docs, nil
}

// GetByStatus returns every document in the given status.
func (r *DocumentRepository) GetByStatus(ctx context.Context, status models.DocStatus) ([]*models.Document, error) {
	return r.FilterBy(ctx, map[string]any{"status": status})
}

// GetByType returns every document of the given type.
func (r *DocumentRepository) GetByType(ctx context.Context, docType models.DocType) ([]*models.Document, error) {
	return r.FilterBy(ctx, map[string]any{"type": docType})
}

// GetPendingDocuments returns documents awaiting processing. A limit
// <= 0 means no limit.
func (r *DocumentRepository) GetPendingDocuments(ctx context.Context, limit int) ([]*models.Document, error) {
	var docs []*models.Document
	query := r.db.NewSelect().
		Model(&docs).
		Where("status = ?", models.StatusPending).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Scan(ctx)
	return docs, err
}

// GetProcessingDocuments returns documents currently being processed.
func (r *DocumentRepository) GetProcessingDocuments(ctx context.Context) ([]*models.Document, error) {
	return r.GetByStatus(ctx, models.StatusProcessing)
}

// GetErrorDocuments returns documents that failed processing.
func (r *DocumentRepository) GetErrorDocuments(ctx context.Context) ([]*models.Document, error) {
	return r.GetByStatus(ctx, models.StatusError)
}

// UpdateStatus transitions the document to the given status, validating
// the lifecycle. The error message is stored only when transitioning to
// the error status. Returns ErrNotFound for a missing document and
// ErrInvalidTransition when the lifecycle forbids the change.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, documentID int64, status models.DocStatus, errorMessage *string) (*models.Document, error) {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		r.log.WithFields(logrus.Fields{"document_id": documentID, "status": status}).Warn("Status change on missing document")
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, documentID)
	}
	if !doc.Status.CanTransitionTo(status) {
		r.log.WithFields(logrus.Fields{"document_id": documentID, "from": doc.Status, "to": status}).Warn("Rejected status transition")
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, status)
	}

	values := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if status == models.StatusError && errorMessage != nil {
		values["error_message"] = *errorMessage
		r.log.WithFields(logrus.Fields{
			"document_id": documentID,
			"error":       *errorMessage,
		}).Warn("Document moved to error status")
	}

	updated, err := r.Update(ctx, documentID, values)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"document_id": documentID,
		"status":      status,
	}).Info("Document status updated")
	return updated, nil
}

// MarkAsOnChain records the blockchain artifacts and moves the document
// to the on_chain status in one update. The same lifecycle rules as
// UpdateStatus apply.
func (r *DocumentRepository) MarkAsOnChain(ctx context.Context, documentID int64, assets OnChainAssets) (*models.Document, error) {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		r.log.WithFields(logrus.Fields{"document_id": documentID}).Warn("On-chain record for missing document")
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, documentID)
	}
	if !doc.Status.CanTransitionTo(models.StatusOnChain) {
		r.log.WithFields(logrus.Fields{"document_id": documentID, "from": doc.Status}).Warn("Rejected on-chain transition")
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, models.StatusOnChain)
	}

	values := map[string]any{
		"status":           models.StatusOnChain,
		"transaction_hash": assets.TransactionHash,
		"signed_json_path": assets.SignedJSONPath,
		"signed_pdf_path":  assets.SignedPDFPath,
		"updated_at":       time.Now().UTC(),
	}
	if assets.ArweaveFileURL != nil {
		values["arweave_file_url"] = *assets.ArweaveFileURL
	}
	if assets.ArweaveMetadataURL != nil {
		values["arweave_metadata_url"] = *assets.ArweaveMetadataURL
	}
	if assets.NFTTokenID != nil {
		values["nft_token_id"] = *assets.NFTTokenID
	}

	updated, err := r.Update(ctx, documentID, values)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"document_id":      documentID,
		"transaction_hash": assets.TransactionHash,
	}).Info("Document marked as on-chain")
	return updated, nil
}

// CountByStatus counts documents in the given status.
func (r *DocumentRepository) CountByStatus(ctx context.Context, status models.DocStatus) (int, error) {
	return r.Count(ctx, map[string]any{"status": status})
}

// CountUserDocuments counts a user's documents, optionally narrowed by
// status.
func (r *DocumentRepository) CountUserDocuments(ctx context.Context, ownerID int64, status *models.DocStatus) (int, error) {
	filters := map[string]any{"owner_id": ownerID}
	if status != nil {
		filters["status"] = *status
	}
	return r.Count(ctx, filters)
}

// SearchByFilename returns documents whose file name contains the
// pattern, case-insensitively.
func (r *DocumentRepository) SearchByFilename(ctx context.Context, pattern string) ([]*models.Document, error) {
	var docs []*models.Document
	err := r.db.NewSelect().
		Model(&docs).
		Where("LOWER(file_name) LIKE ?", "%"+strings.ToLower(pattern)+"%").
		Order("id ASC").
		Scan(ctx)
	return docs, err
}

// GetRecentDocuments returns documents created within the last N days.
func (r *DocumentRepository) GetRecentDocuments(ctx context.Context, days int) ([]*models.Document, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var docs []*models.Document
	err := r.db.NewSelect().
		Model(&docs).
		Where("created_at >= ?", cutoff).
		Order("id ASC").
		Scan(ctx)
	return docs, err
}

// GetDocumentStats returns document counts by status and type.
func (r *DocumentRepository) GetDocumentStats(ctx context.Context) (*DocumentStats, error) {
	stats := &DocumentStats{}

	var err error
	if stats.Total, err = r.Count(ctx, nil); err != nil {
		return nil, err
	}
	if stats.Pending, err = r.CountByStatus(ctx, models.StatusPending); err != nil {
		return nil, err
	}
	if stats.Processing, err = r.CountByStatus(ctx, models.StatusProcessing); err != nil {
		return nil, err
	}
	if stats.OnChain, err = r.CountByStatus(ctx, models.StatusOnChain); err != nil {
		return nil, err
	}
	if stats.Error, err = r.CountByStatus(ctx, models.StatusError); err != nil {
		return nil, err
	}
	if stats.HashType, err = r.Count(ctx, map[string]any{"type": models.TypeHash}); err != nil {
		return nil, err
	}
	if stats.NFTType, err = r.Count(ctx, map[string]any{"type": models.TypeNFT}); err != nil {
		return nil, err
	}
	return stats, nil
}
