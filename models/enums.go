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

import "github.com/absnotary/notarystore/types"

// AccountRole is the closed set of account roles.
type AccountRole string

const (
	RoleAdmin AccountRole = "admin"
	RoleUser  AccountRole = "user"
)

func (r AccountRole) String() string { return string(r) }

func (r AccountRole) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// DocStatus is the closed set of document lifecycle states.
type DocStatus string

const (
	StatusPending    DocStatus = "pending"
	StatusProcessing DocStatus = "processing"
	StatusOnChain    DocStatus = "on_chain"
	StatusError      DocStatus = "error"
)

func (s DocStatus) String() string { return string(s) }

func (s DocStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusOnChain, StatusError:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s DocStatus) Terminal() bool {
	return s == StatusOnChain || s == StatusError
}

// CanTransitionTo reports whether the happy-path state machine allows
// moving from s to next: pending→processing→on_chain, with error
// reachable from pending or processing.
func (s DocStatus) CanTransitionTo(next DocStatus) bool {
	if !next.IsValid() || s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusOnChain || next == StatusError
	}
	return false
}

// DocType is the closed set of notarization kinds.
type DocType string

const (
	TypeHash DocType = "hash"
	TypeNFT  DocType = "nft"
)

func (t DocType) String() string { return string(t) }

func (t DocType) IsValid() bool {
	return t == TypeHash || t == TypeNFT
}

var (
	_ types.Enum = AccountRole("")
	_ types.Enum = DocStatus("")
	_ types.Enum = DocType("")
)
