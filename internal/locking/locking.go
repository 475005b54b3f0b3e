// Package locking serializes mutating access to account rows.
//
// Every transfer locks its two account rows in one global order,
// regardless of transfer direction, so two concurrent transfers over the
// same pair can never hold one lock each and wait for the other.
package locking

import (
	"context"
	"errors"

	"github.com/corebank/ledger/internal/domain"
)

// AccountLocker acquires an exclusive lock on a single account row for
// the duration of the surrounding transaction.
type AccountLocker interface {
	GetForUpdate(ctx context.Context, id string) (domain.Account, error)
}

// Order returns the two account ids in global lock order (lexicographic).
func Order(a, b string) (string, string) {
	if a < b {
		return a, b
	}

	return b, a
}

// AcquirePair locks the source and destination accounts in global order and
// returns them in (source, destination) order. When a row is missing the
// source account is reported first.
func AcquirePair(ctx context.Context, locker AccountLocker, fromID, toID string) (domain.Account, domain.Account, error) {
	firstID, secondID := Order(fromID, toID)

	first, errFirst := locker.GetForUpdate(ctx, firstID)
	if errFirst != nil && !errors.Is(errFirst, domain.ErrAccountNotFound) {
		return domain.Account{}, domain.Account{}, errFirst
	}

	second, errSecond := locker.GetForUpdate(ctx, secondID)
	if errSecond != nil && !errors.Is(errSecond, domain.ErrAccountNotFound) {
		return domain.Account{}, domain.Account{}, errSecond
	}

	var from, to domain.Account

	var errFrom, errTo error

	if firstID == fromID {
		from, to = first, second
		errFrom, errTo = errFirst, errSecond
	} else {
		from, to = second, first
		errFrom, errTo = errSecond, errFirst
	}

	if errFrom != nil {
		return domain.Account{}, domain.Account{}, errFrom
	}

	if errTo != nil {
		return domain.Account{}, domain.Account{}, errTo
	}

	return from, to, nil
}
