// Package transferservice implements the transfer engine entry point.
package transferservice

import (
	"context"
	"errors"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/idempotency"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Executor runs the transfer unit of work.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Executor interface {
	ExecuteTx(ctx context.Context, arg domain.ExecuteTransferParams) (domain.TransferRecord, error)
}

// Guard looks up prior outcomes by idempotency key.
type Guard interface {
	Lookup(ctx context.Context, key string) (domain.TransferRecord, error)
}

// ResultCache mirrors terminal outcomes keyed by idempotency key.
type ResultCache interface {
	Get(ctx context.Context, key string) (domain.TransferRecord, bool, error)
	Set(ctx context.Context, rec domain.TransferRecord) error
}

// Service facilitates transfer service layer logic.
type Service struct {
	executor Executor
	guard    Guard
	cache    ResultCache // optional, may be nil
}

// New returns transfer Service. cache may be nil to disable the fast path.
func New(executor Executor, guard Guard, cache ResultCache) *Service {
	return &Service{
		executor: executor,
		guard:    guard,
		cache:    cache,
	}
}

// Execute moves amount from the source to the destination account as one
// atomic, idempotent operation.
//
// Business failures (invalid amount, self-transfer, missing account,
// insufficient funds) come back as a FAILED result with a reason and nil
// error. A non-nil error means no terminal outcome exists yet: transient
// failures are safe to retry with the same key.
//
// Self-transfers are rejected rather than treated as a no-op so that every
// COMPLETED ledger row moves value.
func (s *Service) Execute(ctx context.Context, arg domain.ExecuteTransferParams) (domain.TransferResult, error) {
	if arg.IdempotencyKey == "" {
		return domain.TransferResult{}, domain.ErrInvalidKey
	}

	// Preconditions are deterministic on the inputs alone, so they stay
	// idempotent under retry without a ledger row (which could not store a
	// non-positive amount anyway).
	if !arg.Amount.GreaterThan(decimal.Zero) {
		return failedResult(domain.ReasonInvalidAmount), nil
	}

	if arg.FromAccountID == "" || arg.ToAccountID == "" || arg.FromAccountID == arg.ToAccountID {
		return failedResult(domain.ReasonInvalidTransfer), nil
	}

	if res, ok, err := s.lookupPrior(ctx, arg); err != nil {
		return domain.TransferResult{}, err
	} else if ok {
		return res, nil
	}

	rec, err := s.executor.ExecuteTx(ctx, arg)
	if err != nil {
		return domain.TransferResult{}, err
	}

	s.cacheSet(ctx, rec)

	return domain.ResultOf(rec), nil
}

// Get returns the terminal outcome stored for the key, the re-query path
// for callers that abandoned an in-flight request.
func (s *Service) Get(ctx context.Context, key string) (domain.TransferResult, error) {
	if key == "" {
		return domain.TransferResult{}, domain.ErrInvalidKey
	}

	if s.cache != nil {
		if rec, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return domain.ResultOf(rec), nil
		}
	}

	rec, err := s.guard.Lookup(ctx, key)
	if err != nil {
		return domain.TransferResult{}, err
	}

	return domain.ResultOf(rec), nil
}

func (s *Service) lookupPrior(ctx context.Context, arg domain.ExecuteTransferParams) (domain.TransferResult, bool, error) {
	l := zerolog.Ctx(ctx)

	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, arg.IdempotencyKey)
		if err != nil {
			l.Warn().Err(err).Msg("idempotency cache lookup failed")
		} else if ok {
			if err := idempotency.CheckParams(rec, arg); err != nil {
				return domain.TransferResult{}, false, err
			}

			return domain.ResultOf(rec), true, nil
		}
	}

	rec, err := s.guard.Lookup(ctx, arg.IdempotencyKey)
	if err != nil {
		if !errors.Is(err, domain.ErrTransferNotFound) {
			// The reservation inside the unit of work re-checks the key
			// under lock, so a failed fast-path lookup is not fatal.
			l.Warn().Err(err).Msg("idempotency lookup failed")
		}

		return domain.TransferResult{}, false, nil
	}

	if !rec.Status.Terminal() {
		// In-flight attempt; the unit of work waits it out under lock.
		return domain.TransferResult{}, false, nil
	}

	if err := idempotency.CheckParams(rec, arg); err != nil {
		return domain.TransferResult{}, false, err
	}

	s.cacheSet(ctx, rec)

	return domain.ResultOf(rec), true, nil
}

func (s *Service) cacheSet(ctx context.Context, rec domain.TransferRecord) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, rec); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency cache store failed")
	}
}

func failedResult(reason domain.FailureReason) domain.TransferResult {
	return domain.TransferResult{
		Status: domain.StatusFailed,
		Reason: reason,
	}
}
