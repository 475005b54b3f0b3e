package transferdelivery

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/pkg/errorspkg"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("amount", ValidAmount); err != nil {
			os.Exit(1)
		}
	}

	os.Exit(m.Run())
}

func newServer(service Service) *gin.Engine {
	handler := NewHandler(service)

	server := gin.New()
	server.POST("/transfers", handler.Create)
	server.GET("/transfers/:key", handler.Get)

	return server
}

func completedResult(key string) domain.TransferResult {
	return domain.ResultOf(domain.TransferRecord{
		IdempotencyKey: key,
		FromAccountID:  "acc-alpha",
		ToAccountID:    "acc-beta",
		Amount:         decimal.NewFromInt(30),
		Status:         domain.StatusCompleted,
		CreatedAt:      time.Now().Truncate(time.Second).UTC(),
		CompletedAt:    time.Now().Truncate(time.Second).UTC(),
	})
}

func failedResult(key string, reason domain.FailureReason) domain.TransferResult {
	res := completedResult(key)
	res.Status = domain.StatusFailed
	res.Reason = reason
	res.Record.Status = domain.StatusFailed
	res.Record.FailureReason = reason

	return res
}

func TestCreate(t *testing.T) {
	requestBody := gin.H{
		"from_account_id": "acc-alpha",
		"to_account_id":   "acc-beta",
		"amount":          "30",
	}

	wantArg := domain.ExecuteTransferParams{
		FromAccountID:  "acc-alpha",
		ToAccountID:    "acc-beta",
		Amount:         decimal.RequireFromString("30"),
		IdempotencyKey: "key-1",
	}

	testCases := []struct {
		name           string
		key            string
		body           gin.H
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name: "OK",
			key:  "key-1",
			body: requestBody,
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Eq(wantArg)).
					Times(1).
					Return(completedResult("key-1"), nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "MissingIdempotencyKey",
			key:  "",
			body: requestBody,
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "MissingSourceAccount",
			key:  "key-1",
			body: gin.H{"to_account_id": "acc-beta", "amount": "30"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "MalformedAmount",
			key:  "key-1",
			body: gin.H{"from_account_id": "acc-alpha", "to_account_id": "acc-beta", "amount": "!@#$"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "NegativeAmount",
			key:  "key-1",
			body: gin.H{"from_account_id": "acc-alpha", "to_account_id": "acc-beta", "amount": "-30"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "SelfTransfer",
			key:  "key-1",
			body: gin.H{"from_account_id": "acc-alpha", "to_account_id": "acc-alpha", "amount": "30"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).
					Times(1).
					Return(failedResult("key-1", domain.ReasonInvalidTransfer), nil)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "InsufficientFunds",
			key:  "key-1",
			body: requestBody,
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).
					Times(1).
					Return(failedResult("key-1", domain.ReasonInsufficientFunds), nil)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "AccountNotFound",
			key:  "key-1",
			body: requestBody,
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).
					Times(1).
					Return(failedResult("key-1", domain.ReasonAccountNotFound), nil)
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "KeyParameterMismatch",
			key:  "key-1",
			body: requestBody,
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferResult{}, domain.ErrKeyParameterMismatch)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "TransientFailure",
			key:  "key-1",
			body: requestBody,
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferResult{}, domain.Transient(errors.New("lock timeout")))
			},
			wantStatusCode: http.StatusServiceUnavailable,
		},
		{
			name: "TransientFailureWithSentinelCause",
			key:  "key-1",
			body: requestBody,
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferResult{}, domain.Transient(domain.ErrTransferNotFound))
			},
			wantStatusCode: http.StatusServiceUnavailable,
		},
		{
			name: "InternalError",
			key:  "key-1",
			body: requestBody,
			buildStubs: func(service *MockService) {
				service.EXPECT().Execute(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferResult{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(service)

			body, err := json.Marshal(tc.body)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
			if tc.key != "" {
				req.Header.Set(IdempotencyKeyHeader, tc.key)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			require.Equal(t, tc.wantStatusCode, recorder.Code)
		})
	}
}

func TestCreateResponseBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	want := completedResult("key-1")

	service := NewMockService(ctrl)
	service.EXPECT().Execute(gomock.Any(), gomock.Any()).
		Times(1).
		Return(want, nil)

	server := newServer(service)

	body, err := json.Marshal(gin.H{
		"from_account_id": "acc-alpha",
		"to_account_id":   "acc-beta",
		"amount":          "30",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
	req.Header.Set(IdempotencyKeyHeader, "key-1")

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var got response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, domain.StatusCompleted, got.Data.Result.Status)
	require.Equal(t, "key-1", got.Data.Result.Record.IdempotencyKey)
	require.True(t, got.Data.Result.Record.Amount.Equal(want.Record.Amount))
}

func TestGet(t *testing.T) {
	testCases := []struct {
		name           string
		key            string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name: "OK",
			key:  "key-1",
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq("key-1")).
					Times(1).
					Return(completedResult("key-1"), nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "NotFound",
			key:  "key-404",
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq("key-404")).
					Times(1).
					Return(domain.TransferResult{}, domain.ErrTransferNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(service)

			req := httptest.NewRequest(http.MethodGet, "/transfers/"+tc.key, nil)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			require.Equal(t, tc.wantStatusCode, recorder.Code)
		})
	}
}
