package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlState classifies one SQLSTATE
type sqlState struct {
	code  ErrorCode
	retry bool
}

// SQLSTATEs the history writer can hit; anything else is ErrorCodeDB, not retried
var sqlStates = map[string]sqlState{
	"23505": {ErrorCodeConflict, false},        // unique_violation: cycle written twice
	"23503": {ErrorCodeInvalidArgument, false}, // foreign_key_violation
	"23502": {ErrorCodeValidation, false},      // not_null_violation
	"23514": {ErrorCodeValidation, false},      // check_violation
	"22001": {ErrorCodeInvalidArgument, false}, // string_data_right_truncation
	"22P02": {ErrorCodeInvalidArgument, false}, // invalid_text_representation
	"40001": {ErrorCodeDB, true},               // serialization_failure
	"40P01": {ErrorCodeDB, true},               // deadlock_detected
	"55P03": {ErrorCodeDB, true},               // lock_not_available
	"25006": {ErrorCodeUnavailable, false},     // read_only_sql_transaction
	"57P03": {ErrorCodeUnavailable, false},     // cannot_connect_now
}

// driver text seen when no PgError survives, e.g. on commit
var retryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"canceling statement due to lock timeout",
	"terminating connection due to administrator command",
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	ok := stderrs.As(err, &pe)
	return pe, ok
}

// DBErrorCode maps a Postgres error to an ErrorCode; ok is false when err carries no PgError
func DBErrorCode(err error) (code ErrorCode, ok bool) {
	pe, ok := pgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	if s, known := sqlStates[pe.Code]; known {
		return s.code, true
	}
	return ErrorCodeDB, true
}

// FromPostgresf wraps err with its mapped code, or ErrorCodeDB when it is not a PgError; nil stays nil
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, fmt.Sprintf(format, a...))
}

// IsRetryable reports a transient database failure. Cancellation never retries.
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pe, ok := pgError(err); ok {
		return sqlStates[pe.Code].retry
	}
	msg := strings.ToLower(Root(err).Error())
	for _, t := range retryText {
		if strings.Contains(msg, t) {
			return true
		}
	}
	return false
}
