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

package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func TestIsSqlErrorMySQL(t *testing.T) {
	cases := []struct {
		number uint16
		kind   SQLError
	}{
		{1062, DuplicateKeyErr},
		{1048, NotNullViolationErr},
		{1452, ForeignKeyViolationErr},
		{3819, CheckConstraintViolationErr},
		{1146, NoTableErr},
		{1050, ExistTableErr},
	}
	for _, tc := range cases {
		err := &mysql.MySQLError{Number: tc.number, Message: "x"}
		is, kind := IsSqlError(err)
		if !is || kind != tc.kind {
			t.Errorf("mysql %d: expected (%v, %v), got (%v, %v)", tc.number, true, tc.kind, is, kind)
		}
	}
}

func TestIsSqlErrorPostgres(t *testing.T) {
	cases := []struct {
		code pq.ErrorCode
		kind SQLError
	}{
		{"23505", DuplicateKeyErr},
		{"23502", NotNullViolationErr},
		{"23503", ForeignKeyViolationErr},
		{"42P01", NoTableErr},
	}
	for _, tc := range cases {
		is, kind := IsSqlError(&pq.Error{Code: tc.code})
		if !is || kind != tc.kind {
			t.Errorf("pq %s: expected kind %v, got (%v, %v)", tc.code, tc.kind, is, kind)
		}
	}
}

func TestIsSqlErrorTextFallback(t *testing.T) {
	cases := []struct {
		message string
		kind    SQLError
	}{
		{"constraint failed: UNIQUE constraint failed: accounts.email", DuplicateKeyErr},
		{"NOT NULL constraint failed: documents.file_hash", NotNullViolationErr},
		{"FOREIGN KEY constraint failed", ForeignKeyViolationErr},
		{"no such table: missing", NoTableErr},
	}
	for _, tc := range cases {
		is, kind := IsSqlError(errors.New(tc.message))
		if !is || kind != tc.kind {
			t.Errorf("%q: expected kind %v, got (%v, %v)", tc.message, tc.kind, is, kind)
		}
	}

	if is, _ := IsSqlError(errors.New("connection refused")); is {
		t.Fatal("unrelated error must not classify")
	}
}

func TestTagConstraint(t *testing.T) {
	driverErr := &mysql.MySQLError{Number: 1062, Message: "duplicate"}
	tagged := TagConstraint(driverErr)

	if !IsConstraintViolation(tagged) {
		t.Fatal("expected constraint violation tag")
	}
	if !IsDuplicateKey(tagged) {
		t.Fatal("expected duplicate key classification")
	}
	if !errors.Is(tagged, driverErr) {
		t.Fatal("expected original driver error to unwrap")
	}

	// Tagged errors survive further wrapping.
	wrapped := fmt.Errorf("create account: %w", tagged)
	if !IsDuplicateKey(wrapped) {
		t.Fatal("expected classification through wrapping")
	}

	plain := errors.New("some io error")
	if TagConstraint(plain) != plain {
		t.Fatal("non-constraint errors must pass through untouched")
	}
	if TagConstraint(nil) != nil {
		t.Fatal("nil must pass through")
	}
}
