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

package types

// IllegalName is the canonical value for an unrecognized enum member.
const IllegalName = "unknown"

// Enum is the contract implemented by closed string-kinded enum types.
// Invalid members are rejected at the API boundary, not at storage.
type Enum interface {
	IsValid() bool
	String() string
}

// Name returns e's string form, or IllegalName when e is not a member
// of its enum. Useful when rendering values read from untrusted input.
func Name(e Enum) string {
	if !e.IsValid() {
		return IllegalName
	}
	return e.String()
}
