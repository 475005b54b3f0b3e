package dbpkg

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes for failures that are safe to retry.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// IsTransientCode reports whether err is a Postgres error a caller may
// safely retry: lock timeouts, canceled statements, deadlocks and
// serialization failures. Such errors never indicate a committed outcome.
func IsTransientCode(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	switch string(pqErr.Code) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
		return true
	}

	return false
}
