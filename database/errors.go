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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Lifecycle and pool error kinds surfaced by the connection manager.
// Callers decide retry policy; the manager never retries on its own.
var (
	ErrPoolExhausted = errors.New("database: connection pool exhausted")
	ErrManagerClosed = errors.New("database: manager is closed")
	ErrInvalidConfig = errors.New("database: invalid configuration")
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
)

// ConstraintError tags a storage-level write rejection (uniqueness,
// referential, not-null, check) with its classified kind. The original
// driver error stays reachable through Unwrap.
type ConstraintError struct {
	Kind SQLError
	Err  error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("database: constraint violation: %v", e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// TagConstraint wraps err in a ConstraintError when it classifies as a
// constraint violation; any other error passes through untouched.
func TagConstraint(err error) error {
	if err == nil {
		return nil
	}
	if is, kind := IsSqlError(err); is {
		switch kind {
		case DuplicateKeyErr, NotNullViolationErr, ForeignKeyViolationErr, CheckConstraintViolationErr:
			return &ConstraintError{Kind: kind, Err: err}
		}
	}
	return err
}

// IsConstraintViolation reports whether err carries a ConstraintError.
func IsConstraintViolation(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// IsDuplicateKey reports whether err is a uniqueness violation.
func IsDuplicateKey(err error) bool {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Kind == DuplicateKeyErr
	}
	is, kind := IsSqlError(err)
	return is && kind == DuplicateKeyErr
}

// IsSqlError classifies a driver error. MySQL errors are matched by
// error number, Postgres by SQLSTATE code, and SQLite (plus drivers
// that only expose text) by message fallbacks.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217, 1451, 1452:
			return true, ForeignKeyViolationErr
		case 3819:
			return true, CheckConstraintViolationErr
		case 1265:
			return true, DataTruncatedErr
		case 1050:
			return true, ExistTableErr
		case 1146:
			return true, NoTableErr
		default:
			return true, UnknownErr
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return true, DuplicateKeyErr
		case "23502":
			return true, NotNullViolationErr
		case "23503":
			return true, ForeignKeyViolationErr
		case "23514":
			return true, CheckConstraintViolationErr
		case "22001":
			return true, DataTruncatedErr
		case "42P01":
			return true, NoTableErr
		case "42P07":
			return true, ExistTableErr
		default:
			return true, UnknownErr
		}
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "sqlstate 42p01") ||
		strings.Contains(s, "undefined table") ||
		strings.Contains(s, "no such table") {
		return true, NoTableErr
	}
	if strings.Contains(s, "already exists") &&
		(strings.Contains(s, "table") || strings.Contains(s, "relation")) {
		return true, ExistTableErr
	}
	if strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "sqlstate 23505") {
		return true, DuplicateKeyErr
	}
	if strings.Contains(s, "not-null constraint") ||
		strings.Contains(s, "not null constraint failed") ||
		strings.Contains(s, "sqlstate 23502") {
		return true, NotNullViolationErr
	}
	if strings.Contains(s, "foreign key violation") ||
		strings.Contains(s, "foreign key constraint failed") ||
		strings.Contains(s, "sqlstate 23503") {
		return true, ForeignKeyViolationErr
	}
	if strings.Contains(s, "check constraint") ||
		strings.Contains(s, "sqlstate 23514") {
		return true, CheckConstraintViolationErr
	}
	if strings.Contains(s, "string data right truncation") ||
		strings.Contains(s, "data truncated") ||
		strings.Contains(s, "sqlstate 22001") {
		return true, DataTruncatedErr
	}
	return false, UnknownErr
}
