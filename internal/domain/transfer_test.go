package domain_test

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/corebank/ledger/internal/domain"
)

func TestTransientKeepsCauseOnChain(t *testing.T) {
	cause := &pq.Error{Code: "40P01"}

	err := domain.Transient(cause)

	require.True(t, domain.IsTransient(err))
	require.ErrorIs(t, err, domain.ErrTransient)

	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))
	require.Equal(t, pq.ErrorCode("40P01"), pqErr.Code)
}

func TestTransientWrapsSentinels(t *testing.T) {
	err := domain.Transient(domain.ErrTransferNotFound)

	require.True(t, domain.IsTransient(err))
	require.ErrorIs(t, err, domain.ErrTransferNotFound)
	require.NotErrorIs(t, domain.ErrTransferNotFound, domain.ErrTransient)
}

func TestStatusTerminal(t *testing.T) {
	require.False(t, domain.StatusPending.Terminal())
	require.True(t, domain.StatusCompleted.Terminal())
	require.True(t, domain.StatusFailed.Terminal())
}
