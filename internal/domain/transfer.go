package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates a non-positive or unparseable amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidTransfer indicates a malformed transfer, e.g. a self-transfer.
	ErrInvalidTransfer = errors.New("invalid transfer")
	// ErrInsufficientFunds indicates that the source account balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidKey indicates a missing or empty idempotency key.
	ErrInvalidKey = errors.New("invalid idempotency key")
	// ErrKeyParameterMismatch indicates an idempotency key reused with different transfer parameters.
	ErrKeyParameterMismatch = errors.New("idempotency key reused with different parameters")
	// ErrTransferNotFound indicates that no ledger row exists for the given key.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrTransient marks infrastructure failures that are safe to retry
	// with the same idempotency key. It never describes a terminal,
	// ledger-recorded outcome.
	ErrTransient = errors.New("transient failure")
)

// Transient wraps err so that errors.Is(err, ErrTransient) reports true.
// The cause stays on the chain, so errors.As still recovers driver
// errors (e.g. *pq.Error) from the wrapped value.
func Transient(err error) error {
	return &transientError{cause: err}
}

type transientError struct {
	cause error
}

func (e *transientError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTransient, e.cause)
}

func (e *transientError) Unwrap() error {
	return e.cause
}

func (e *transientError) Is(target error) bool {
	return target == ErrTransient
}

// IsTransient reports whether the failure is retry-safe.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Status is the lifecycle state of a ledger row.
type Status string

// Ledger row statuses. A row is created PENDING and sealed exactly once
// to COMPLETED or FAILED; terminal rows are immutable.
const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FailureReason discriminates business failures recorded on FAILED ledger rows.
type FailureReason string

// Failure reasons. All of them are durable business outcomes: a retry
// with the same key returns the recorded failure instead of re-evaluating.
const (
	ReasonInvalidAmount     FailureReason = "INVALID_AMOUNT"
	ReasonInvalidTransfer   FailureReason = "INVALID_TRANSFER"
	ReasonAccountNotFound   FailureReason = "ACCOUNT_NOT_FOUND"
	ReasonInsufficientFunds FailureReason = "INSUFFICIENT_FUNDS"
)

// Err returns the sentinel error matching the reason.
func (r FailureReason) Err() error {
	switch r {
	case ReasonInvalidAmount:
		return ErrInvalidAmount
	case ReasonInvalidTransfer:
		return ErrInvalidTransfer
	case ReasonAccountNotFound:
		return ErrAccountNotFound
	case ReasonInsufficientFunds:
		return ErrInsufficientFunds
	}

	return nil
}

// TransferRecord is one ledger row. The idempotency key is its natural
// primary key; at most one row per key ever exists.
type TransferRecord struct {
	IdempotencyKey string          `json:"idempotency_key"`
	FromAccountID  string          `json:"from_account_id"`
	ToAccountID    string          `json:"to_account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         Status          `json:"status"`
	FailureReason  FailureReason   `json:"failure_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    time.Time       `json:"completed_at,omitempty"`
}

// ExecuteTransferParams is the input data for the transfer execution.
type ExecuteTransferParams struct {
	FromAccountID  string          `json:"from_account_id"`
	ToAccountID    string          `json:"to_account_id"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// TransferResult is the terminal outcome of a transfer execution.
// Both COMPLETED and FAILED results are durable and idempotency-stable.
type TransferResult struct {
	Status Status         `json:"status"`
	Reason FailureReason  `json:"reason,omitempty"`
	Record TransferRecord `json:"record"`
}

// ResultOf derives the caller-facing result from a terminal ledger row.
func ResultOf(rec TransferRecord) TransferResult {
	return TransferResult{
		Status: rec.Status,
		Reason: rec.FailureReason,
		Record: rec,
	}
}

// ListTransfersParams is the input data to list ledger rows touching an account.
type ListTransfersParams struct {
	AccountID string `json:"account_id"`
	Limit     int32  `json:"limit"`
	Offset    int32  `json:"offset"`
}
