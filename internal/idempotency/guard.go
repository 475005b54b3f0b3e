// Package idempotency maps idempotency keys to prior transfer outcomes so
// retried requests return the original result instead of re-executing.
package idempotency

import (
	"context"
	"errors"

	"github.com/corebank/ledger/internal/domain"
)

// Ledger provides the ledger repository methods the guard needs. Keys are
// opaque strings; the guard never infers equality of two transfers except
// by exact key match.
type Ledger interface {
	InsertPending(ctx context.Context, arg domain.ExecuteTransferParams) (domain.TransferRecord, bool, error)
	FindByKey(ctx context.Context, key string) (domain.TransferRecord, error)
	FindByKeyForUpdate(ctx context.Context, key string) (domain.TransferRecord, error)
}

// Guard facilitates idempotency checks against the ledger.
type Guard struct {
	ledger Ledger
}

// NewGuard returns a Guard over the given ledger.
func NewGuard(ledger Ledger) *Guard {
	return &Guard{ledger: ledger}
}

// Lookup returns the ledger row for the key, or domain.ErrTransferNotFound.
func (g *Guard) Lookup(ctx context.Context, key string) (domain.TransferRecord, error) {
	return g.ledger.FindByKey(ctx, key)
}

// ReserveOrGet atomically claims the key for the calling transaction.
//
// Exactly one concurrent caller per key wins the PENDING insert and
// proceeds to execute; the rest block on the winner's uncommitted row and
// then read its terminal state. isNew reports whether the caller won.
func (g *Guard) ReserveOrGet(ctx context.Context, arg domain.ExecuteTransferParams) (isNew bool, rec domain.TransferRecord, err error) {
	rec, inserted, err := g.ledger.InsertPending(ctx, arg)
	if err != nil {
		return false, domain.TransferRecord{}, err
	}

	if inserted {
		return true, rec, nil
	}

	// The key is taken. Lock the owning row; this waits out an in-flight
	// attempt with the same key so the stored outcome is terminal.
	rec, err = g.ledger.FindByKeyForUpdate(ctx, arg.IdempotencyKey)
	if err != nil {
		if errors.Is(err, domain.ErrTransferNotFound) {
			// The competing attempt rolled back between our insert and
			// read. Too rare to untangle in place; the caller retries.
			return false, domain.TransferRecord{}, domain.Transient(err)
		}

		return false, domain.TransferRecord{}, err
	}

	if !rec.Status.Terminal() {
		// A committed PENDING row means an owner that never sealed it.
		// The unit of work seals in the same transaction, so this should
		// not happen; surface it as retryable rather than guessing.
		return false, domain.TransferRecord{}, domain.Transient(errors.New("idempotency key still in progress"))
	}

	if err := CheckParams(rec, arg); err != nil {
		return false, domain.TransferRecord{}, err
	}

	return false, rec, nil
}

// CheckParams verifies that a replayed request carries the same transfer
// parameters as the stored ledger row for its key.
func CheckParams(rec domain.TransferRecord, arg domain.ExecuteTransferParams) error {
	if rec.FromAccountID != arg.FromAccountID ||
		rec.ToAccountID != arg.ToAccountID ||
		!rec.Amount.Equal(arg.Amount) {
		return domain.ErrKeyParameterMismatch
	}

	return nil
}
