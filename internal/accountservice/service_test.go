package accountservice

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/corebank/ledger/internal/domain"
)

func TestCreate(t *testing.T) {
	account := domain.Account{
		ID:        "acc-alpha",
		Balance:   decimal.NewFromInt(100),
		Version:   1,
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
		UpdatedAt: time.Now().Truncate(time.Second).UTC(),
	}

	testCases := []struct {
		name        string
		arg         domain.CreateAccountParams
		buildStubs  func(repo *MockRepo)
		wantAccount domain.Account
		wantErr     error
	}{
		{
			name: "OK",
			arg:  domain.CreateAccountParams{ID: "acc-alpha", Balance: "100"},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Eq("acc-alpha"), gomock.Eq(decimal.NewFromInt(100))).
					Times(1).
					Return(account, nil)
			},
			wantAccount: account,
		},
		{
			name: "GeneratesIDWhenEmpty",
			arg:  domain.CreateAccountParams{Balance: "100"},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Not(gomock.Eq("")), gomock.Eq(decimal.NewFromInt(100))).
					Times(1).
					Return(account, nil)
			},
			wantAccount: account,
		},
		{
			name: "MalformedBalance",
			arg:  domain.CreateAccountParams{ID: "acc-alpha", Balance: "one hundred"},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "NegativeBalance",
			arg:  domain.CreateAccountParams{ID: "acc-alpha", Balance: "-100"},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrNegativeBalance,
		},
		{
			name: "AlreadyExists",
			arg:  domain.CreateAccountParams{ID: "acc-alpha", Balance: "100"},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountAlreadyExists)
			},
			wantErr: domain.ErrAccountAlreadyExists,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			tc.buildStubs(repo)

			service := New(repo)

			got, err := service.Create(context.Background(), tc.arg)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantAccount, got)
		})
	}
}

func TestGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	account := domain.Account{ID: "acc-alpha", Balance: decimal.NewFromInt(100), Version: 1}

	repo := NewMockRepo(ctrl)
	repo.EXPECT().Get(gomock.Any(), gomock.Eq("acc-alpha")).
		Times(1).
		Return(account, nil)

	service := New(repo)

	got, err := service.Get(context.Background(), "acc-alpha")
	require.NoError(t, err)
	require.Equal(t, account, got)
}
