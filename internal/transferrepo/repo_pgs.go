// Package transferrepo runs the transfer unit of work.
//
// One database transaction covers the idempotency reservation, both
// account-row locks, both balance mutations and the ledger seal. Either
// all of it commits or none of it is observable.
package transferrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/corebank/ledger/internal/accountrepo"
	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/idempotency"
	"github.com/corebank/ledger/internal/ledgerrepo"
	"github.com/corebank/ledger/internal/locking"
	"github.com/corebank/ledger/pkg/dbpkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates the transfer unit of work over Postgres.
type RepoPGS struct {
	conn *sql.DB
	// lockTimeout bounds row-lock waits via SET LOCAL lock_timeout.
	lockTimeout time.Duration
	// maxRetries bounds internal re-runs of the unit of work on version
	// conflicts before surfacing a transient failure.
	maxRetries int
}

// NewRepoPGS returns transfer RepoPGS.
func NewRepoPGS(conn *sql.DB, lockTimeout time.Duration, maxRetries int) *RepoPGS {
	return &RepoPGS{
		conn:        conn,
		lockTimeout: lockTimeout,
		maxRetries:  maxRetries,
	}
}

// ExecuteTx runs the transfer unit of work and returns the terminal ledger
// row. Version conflicts and retryable Postgres failures (serialization,
// deadlock, lock timeout) re-run the whole unit of work up to maxRetries
// times; every other failure surfaces as is.
func (r *RepoPGS) ExecuteTx(ctx context.Context, arg domain.ExecuteTransferParams) (domain.TransferRecord, error) {
	l := zerolog.Ctx(ctx)

	var (
		rec domain.TransferRecord
		err error
	)

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		rec, err = r.executeOnce(ctx, arg)
		if err == nil || !retryable(err) {
			return rec, err
		}

		l.Warn().Err(err).Int("attempt", attempt+1).Str("key", arg.IdempotencyKey).Msg("retrying transfer")
	}

	if domain.IsTransient(err) {
		return domain.TransferRecord{}, err
	}

	return domain.TransferRecord{}, domain.Transient(err)
}

// retryable reports whether a fresh run of the unit of work may succeed:
// either a writer moved the account version between our read and save, or
// Postgres aborted the transaction with a retryable SQLSTATE.
func retryable(err error) bool {
	return errors.Is(err, domain.ErrVersionConflict) || dbpkg.IsTransientCode(err)
}

func (r *RepoPGS) executeOnce(ctx context.Context, arg domain.ExecuteTransferParams) (domain.TransferRecord, error) {
	l := zerolog.Ctx(ctx)

	var rec domain.TransferRecord

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return rec, domain.Transient(err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	// SET does not take bind parameters; the value comes from config.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())); err != nil {
		l.Error().Err(err).Send()
		return rec, domain.Transient(err)
	}

	ledger := ledgerrepo.NewRepoPGS(tx)
	accounts := accountrepo.NewRepoPGS(tx)
	guard := idempotency.NewGuard(ledger)

	isNew, rec, err := guard.ReserveOrGet(ctx, arg)
	if err != nil {
		return domain.TransferRecord{}, err
	}

	if !isNew {
		// Replay: the stored terminal row is the outcome. Commit releases
		// the key-row lock taken by the guard.
		if err := tx.Commit(); err != nil {
			l.Error().Err(err).Send()
			return domain.TransferRecord{}, domain.Transient(err)
		}

		return rec, nil
	}

	from, to, err := locking.AcquirePair(ctx, accounts, arg.FromAccountID, arg.ToAccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return r.sealAndCommit(ctx, tx, ledger, arg.IdempotencyKey, domain.StatusFailed, domain.ReasonAccountNotFound)
	} else if err != nil {
		return domain.TransferRecord{}, err
	}

	if from.Balance.LessThan(arg.Amount) {
		return r.sealAndCommit(ctx, tx, ledger, arg.IdempotencyKey, domain.StatusFailed, domain.ReasonInsufficientFunds)
	}

	from.Balance = from.Balance.Sub(arg.Amount)
	if _, err := accounts.Save(ctx, from, from.Version); err != nil {
		return domain.TransferRecord{}, err
	}

	to.Balance = to.Balance.Add(arg.Amount)
	if _, err := accounts.Save(ctx, to, to.Version); err != nil {
		return domain.TransferRecord{}, err
	}

	return r.sealAndCommit(ctx, tx, ledger, arg.IdempotencyKey, domain.StatusCompleted, "")
}

func (r *RepoPGS) sealAndCommit(
	ctx context.Context,
	tx *sql.Tx,
	ledger *ledgerrepo.RepoPGS,
	key string,
	status domain.Status,
	reason domain.FailureReason,
) (domain.TransferRecord, error) {
	l := zerolog.Ctx(ctx)

	rec, err := ledger.Seal(ctx, key, status, reason, time.Now().UTC())
	if err != nil {
		return domain.TransferRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferRecord{}, domain.Transient(err)
	}

	return rec, nil
}
