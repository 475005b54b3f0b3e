// Package ledgerrepo manages the append-only ledger of transfer attempts.
//
// A ledger row is keyed by the caller-supplied idempotency key, created
// PENDING inside the owning transaction and sealed exactly once to a
// terminal status. Terminal rows are never updated or deleted.
package ledgerrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/pkg/dbpkg"
	"github.com/corebank/ledger/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns ledger RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const insertPendingQuery = `
INSERT INTO
    transfers (idempotency_key, from_account_id, to_account_id, amount)
VALUES
    ($1, $2, $3, $4)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING idempotency_key, from_account_id, to_account_id, amount, status, created_at
`

// InsertPending reserves the idempotency key by inserting a PENDING row.
// The boolean reports whether the insert won the key; false means another
// row already holds it and the caller should read that row instead.
func (r *RepoPGS) InsertPending(ctx context.Context, arg domain.ExecuteTransferParams) (domain.TransferRecord, bool, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, insertPendingQuery,
		arg.IdempotencyKey,
		arg.FromAccountID,
		arg.ToAccountID,
		arg.Amount,
	)

	var t domain.TransferRecord

	err := row.Scan(
		&t.IdempotencyKey,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.Amount,
		&t.Status,
		&t.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return t, false, nil
		}

		l.Error().Err(err).Msgf("InsertPending(ctx, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "transfers_amount_check" {
				return t, false, domain.ErrInvalidAmount
			}
		}

		if dbpkg.IsTransientCode(err) {
			return t, false, domain.Transient(err)
		}

		return t, false, errorspkg.ErrInternal
	}

	return t, true, nil
}

const sealQuery = `
UPDATE transfers
SET status = $2, failure_reason = $3, completed_at = $4
WHERE idempotency_key = $1 AND status = 'PENDING'
RETURNING idempotency_key, from_account_id, to_account_id, amount, status, failure_reason, created_at, completed_at
`

// Seal moves a PENDING row to a terminal status exactly once.
func (r *RepoPGS) Seal(ctx context.Context, key string, status domain.Status, reason domain.FailureReason, completedAt time.Time) (domain.TransferRecord, error) {
	l := zerolog.Ctx(ctx)

	var reasonArg sql.NullString
	if reason != "" {
		reasonArg = sql.NullString{String: string(reason), Valid: true}
	}

	row := r.db.QueryRowContext(ctx, sealQuery, key, status, reasonArg, completedAt)

	t, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return t, domain.ErrTransferNotFound
		}

		l.Error().Err(err).Send()

		if dbpkg.IsTransientCode(err) {
			return t, domain.Transient(err)
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const findByKeyQuery = `
SELECT
	idempotency_key, from_account_id, to_account_id, amount, status, failure_reason, created_at, completed_at
FROM transfers
WHERE idempotency_key = $1
`

// FindByKey returns the ledger row with the given idempotency key.
func (r *RepoPGS) FindByKey(ctx context.Context, key string) (domain.TransferRecord, error) {
	return r.find(ctx, findByKeyQuery, key)
}

const findByKeyForUpdateQuery = findByKeyQuery + `
FOR UPDATE
`

// FindByKeyForUpdate returns the ledger row with the given idempotency key,
// blocking on a concurrent uncommitted attempt for the same key.
func (r *RepoPGS) FindByKeyForUpdate(ctx context.Context, key string) (domain.TransferRecord, error) {
	return r.find(ctx, findByKeyForUpdateQuery, key)
}

func (r *RepoPGS) find(ctx context.Context, query, key string) (domain.TransferRecord, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, query, key)

	t, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return t, domain.ErrTransferNotFound
		}

		l.Error().Err(err).Send()

		if dbpkg.IsTransientCode(err) {
			return t, domain.Transient(err)
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listByAccountQuery = `
SELECT
	idempotency_key, from_account_id, to_account_id, amount, status, failure_reason, created_at, completed_at
FROM transfers
WHERE
    from_account_id = $1 OR to_account_id = $1
ORDER BY created_at, idempotency_key
LIMIT $2 OFFSET $3
`

// ListByAccount returns the ledger rows touching the specified account.
func (r *RepoPGS) ListByAccount(ctx context.Context, arg domain.ListTransfersParams) ([]domain.TransferRecord, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByAccountQuery,
		arg.AccountID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.TransferRecord{}

	for rows.Next() {
		var t domain.TransferRecord

		var reason sql.NullString

		var completedAt sql.NullTime

		if err := rows.Scan(
			&t.IdempotencyKey,
			&t.FromAccountID,
			&t.ToAccountID,
			&t.Amount,
			&t.Status,
			&reason,
			&t.CreatedAt,
			&completedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		t.FailureReason = domain.FailureReason(reason.String)
		t.CompletedAt = completedAt.Time

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

func scanRecord(row *sql.Row) (domain.TransferRecord, error) {
	var t domain.TransferRecord

	var reason sql.NullString

	var completedAt sql.NullTime

	err := row.Scan(
		&t.IdempotencyKey,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.Amount,
		&t.Status,
		&reason,
		&t.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return t, err
	}

	t.FailureReason = domain.FailureReason(reason.String)
	t.CompletedAt = completedAt.Time

	return t, nil
}
