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

// Document is one notarization record. FileHash is unique across all
// documents and guards against duplicate notarization; the optional
// on-chain and Arweave fields are populated by the worker on the
// pending→processing→on_chain path.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID       int64     `bun:"id,pk,autoincrement" json:"id"`
	FileName string    `bun:"file_name,type:varchar(255),notnull" json:"file_name"`
	FileHash string    `bun:"file_hash,type:varchar(66),notnull,unique" json:"file_hash"` // 0x-prefixed SHA-256
	FilePath string    `bun:"file_path,notnull" json:"file_path"`
	Status   DocStatus `bun:"status,type:varchar(16),nullzero,notnull,default:'pending'" json:"status"`
	Type     DocType   `bun:"type,type:varchar(8),notnull" json:"type"`

	// On-chain / storage proofs.
	TransactionHash    *string `bun:"transaction_hash,type:varchar(66),unique" json:"transaction_hash,omitempty"`
	ArweaveFileURL     *string `bun:"arweave_file_url" json:"arweave_file_url,omitempty"`
	ArweaveMetadataURL *string `bun:"arweave_metadata_url" json:"arweave_metadata_url,omitempty"`
	NFTTokenID         *int64  `bun:"nft_token_id" json:"nft_token_id,omitempty"`

	// Signed certificates stored locally.
	SignedJSONPath *string `bun:"signed_json_path" json:"signed_json_path,omitempty"`
	SignedPDFPath  *string `bun:"signed_pdf_path" json:"signed_pdf_path,omitempty"`

	ErrorMessage *string `bun:"error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	OwnerID int64    `bun:"owner_id,notnull" json:"owner_id"`
	Owner   *Account `bun:"rel:belongs-to,join:owner_id=id" json:"-"`
}

func (d *Document) String() string {
	return fmt.Sprintf("Document(id=%d, file_name=%s, status=%s)", d.ID, d.FileName, d.Status)
}
