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

import "errors"

var (
	// ErrNotFound is returned by operations that require an existing
	// entity, such as a status transition on a missing document. Plain
	// lookups return (nil, nil) instead.
	ErrNotFound = errors.New("notarystore: entity not found")

	// ErrInvalidTransition is returned when a document status change
	// violates the pending -> processing -> on_chain lifecycle.
	ErrInvalidTransition = errors.New("notarystore: invalid document status transition")

	// ErrDuplicateInput is returned when a bulk operation receives
	// conflicting values before touching the database.
	ErrDuplicateInput = errors.New("notarystore: duplicate values in bulk input")
)
