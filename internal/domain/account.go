// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountAlreadyExists indicates that the account with the given id already exists.
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrNegativeBalance indicates an attempt to persist a balance below zero.
	ErrNegativeBalance = errors.New("negative balance")
	// ErrVersionConflict indicates that the account row changed since it was read.
	ErrVersionConflict = errors.New("account version conflict")
)

// Account holds the balance of a single account.
//
// Version strictly increases on every successful mutation and is
// checked on save so that two writers can never both commit against
// the same balance read.
type Account struct {
	ID        string          `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateAccountParams is the input data for account creation.
type CreateAccountParams struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
}
