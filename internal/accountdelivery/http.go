// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/pkg/jsonresponse"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
	List(ctx context.Context, limit, offset int32) ([]domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) *Handler {
	return &Handler{
		service: as,
	}
}

type createRequest struct {
	ID      string `json:"id"`
	Balance string `json:"balance" binding:"required"`
}

type data struct {
	Account  domain.Account   `json:"account,omitempty"`
	Accounts []domain.Account `json:"accounts,omitempty"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Create handles http request to create an account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	account, err := h.service.Create(ctx, domain.CreateAccountParams{ID: req.ID, Balance: req.Balance})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountAlreadyExists):
			gctx.JSON(http.StatusConflict, jsonresponse.Error(err))
		case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrNegativeBalance):
			gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(err))
		}

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{Account: account}})
}

// Get handles http request to get an account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	account, err := h.service.Get(ctx, gctx.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(err))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{Account: account}})
}

type listRequest struct {
	Limit  int32 `form:"limit" binding:"required,min=1,max=100"`
	Offset int32 `form:"offset" binding:"min=0"`
}

// List handles http request to list accounts.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	accounts, err := h.service.List(ctx, req.Limit, req.Offset)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(err))
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{Accounts: accounts}})
}
