// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/pkg/jsonresponse"
)

// IdempotencyKeyHeader carries the caller-supplied idempotency key.
const IdempotencyKeyHeader = "Idempotency-Key"

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Execute(ctx context.Context, arg domain.ExecuteTransferParams) (domain.TransferResult, error)
	Get(ctx context.Context, key string) (domain.TransferResult, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

// ValidAmount validates that a bound amount parses as a positive decimal.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	if amount, ok := fl.Field().Interface().(string); ok {
		d, err := decimal.NewFromString(amount)
		return err == nil && d.GreaterThan(decimal.Zero)
	}

	return false
}

type request struct {
	FromAccountID string `json:"from_account_id" binding:"required"`
	ToAccountID   string `json:"to_account_id" binding:"required"`
	Amount        string `json:"amount" binding:"required,amount"`
}

type data struct {
	Result domain.TransferResult `json:"result"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Create handles http request to execute a transfer between two accounts.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	key := gctx.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(domain.ErrInvalidKey))
		return
	}

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(domain.ErrInvalidAmount))
		return
	}

	arg := domain.ExecuteTransferParams{
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         amount,
		IdempotencyKey: key,
	}

	res, err := h.service.Execute(ctx, arg)
	if err != nil {
		gctx.JSON(statusFromError(err), jsonresponse.Error(err))
		return
	}

	gctx.JSON(statusFromResult(res), response{Data: data{Result: res}})
}

// Get handles http request to fetch the outcome stored for an idempotency
// key, e.g. after the caller abandoned an in-flight transfer.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	res, err := h.service.Get(ctx, gctx.Param("key"))
	if err != nil {
		gctx.JSON(statusFromError(err), jsonresponse.Error(err))
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{Result: res}})
}

// statusFromResult maps terminal outcomes to response codes; the result
// body always carries the full status and reason.
func statusFromResult(res domain.TransferResult) int {
	if res.Status == domain.StatusCompleted {
		return http.StatusOK
	}

	switch res.Reason {
	case domain.ReasonAccountNotFound:
		return http.StatusNotFound
	case domain.ReasonInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// Transient is classified first: a transient error may carry a sentinel
// as its cause (e.g. a ledger row that vanished mid-reservation) and must
// still come back retryable.
func statusFromError(err error) int {
	switch {
	case domain.IsTransient(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrKeyParameterMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransferNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
