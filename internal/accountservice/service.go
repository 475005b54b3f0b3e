// Package accountservice provides account provisioning and reads.
// Account lifecycle lives here; balances are mutated only by the
// transfer unit of work.
package accountservice

import (
	"context"

	"github.com/corebank/ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides repository layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, id string, balance decimal.Decimal) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
	List(ctx context.Context, limit, offset int32) ([]domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account Service.
func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// Create creates an account with the given opening balance. An empty id
// gets a generated one.
func (s *Service) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	id := arg.ID
	if id == "" {
		id = uuid.NewString()
	}

	balance, err := decimal.NewFromString(arg.Balance)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Account{}, domain.ErrInvalidAmount
	}

	if balance.IsNegative() {
		return domain.Account{}, domain.ErrNegativeBalance
	}

	return s.repo.Create(ctx, id, balance)
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id string) (domain.Account, error) {
	return s.repo.Get(ctx, id)
}

// List returns accounts ordered by id.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]domain.Account, error) {
	return s.repo.List(ctx, limit, offset)
}
