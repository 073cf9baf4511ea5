package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/payment"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/repository"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/service"
	"github.com/chapinin777/drkpaypal-wallet-sub000/pkg/logger"
)

// OrderCreator is the slice of the payment processor the handlers need.
type OrderCreator interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string) (*payment.Order, error)
}

// PriceSource serves display prices for the market endpoint.
type PriceSource interface {
	Price(ctx context.Context, code string) (decimal.Decimal, error)
}

type WalletHandler struct {
	ledger     service.LedgerService
	processor  OrderCreator
	prices     PriceSource
	currencies repository.CurrencyRepository
	fees       repository.ServiceFeeRepository
	prefs      repository.PreferenceRepository
	log        *logger.Logger
}

func NewWalletHandler(
	ledger service.LedgerService,
	processor OrderCreator,
	prices PriceSource,
	currencies repository.CurrencyRepository,
	fees repository.ServiceFeeRepository,
	prefs repository.PreferenceRepository,
	log *logger.Logger,
) *WalletHandler {
	return &WalletHandler{
		ledger:     ledger,
		processor:  processor,
		prices:     prices,
		currencies: currencies,
		fees:       fees,
		prefs:      prefs,
		log:        log,
	}
}

func (h *WalletHandler) respondError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.Error)
	if !ok {
		h.log.Error("unhandled error: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Type {
	case errors.InvalidRequest:
		status = http.StatusBadRequest
	case errors.NotFound:
		status = http.StatusNotFound
	case errors.InsufficientFund:
		status = http.StatusUnprocessableEntity
	case errors.Conflict:
		status = http.StatusConflict
	case errors.Unauthenticated:
		status = http.StatusUnauthorized
	case errors.ExternalDependency:
		status = http.StatusBadGateway
	}

	if appErr.Type == errors.Internal || appErr.Type == errors.ExternalDependency {
		h.log.Error(appErr.Error())
	}

	body := gin.H{"error": appErr.Message}
	if appErr.Retryable() {
		body["retryable"] = true
		body["error"] = "temporary failure, please try again"
	}
	c.JSON(status, body)
}

// CreateDepositOrder registers a deposit intent with the payment processor;
// the wallet is credited only when the processor's confirmation webhook
// arrives.
func (h *WalletHandler) CreateDepositOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.respondError(c, errors.NewUnauthenticated("api.CreateDepositOrder"))
		return
	}

	var req model.DepositOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	order, err := h.processor.CreateOrder(c.Request.Context(), userID, req.Amount, req.Currency)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.DepositOrderResponse{
		OrderID:     order.OrderID,
		ApprovalURL: order.ApprovalURL,
	})
}

func (h *WalletHandler) Send(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.respondError(c, errors.NewUnauthenticated("api.Send"))
		return
	}

	var req model.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.ledger.Send(c.Request.Context(), userID, req.Currency, req.Amount, req.Recipient)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *WalletHandler) Swap(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.respondError(c, errors.NewUnauthenticated("api.Swap"))
		return
	}

	var req model.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.ledger.Swap(c.Request.Context(), userID, req.FromCurrency, req.ToCurrency, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.respondError(c, errors.NewUnauthenticated("api.Withdraw"))
		return
	}

	var req model.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.ledger.Withdraw(c.Request.Context(), userID, req.Currency, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WalletHandler) Balances(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.respondError(c, errors.NewUnauthenticated("api.Balances"))
		return
	}

	balances, err := h.ledger.Balances(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balances)
}

func (h *WalletHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.respondError(c, errors.NewUnauthenticated("api.History"))
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page size"})
		return
	}

	transactions, err := h.ledger.History(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

func (h *WalletHandler) ListCurrencies(c *gin.Context) {
	currencies, err := h.currencies.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, errors.WrapInternal("api.ListCurrencies", err))
		return
	}

	type currencyResponse struct {
		Code     string `json:"code"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	}
	out := make([]currencyResponse, 0, len(currencies))
	for _, cur := range currencies {
		out = append(out, currencyResponse{
			Code:     cur.Code,
			Name:     cur.Name,
			Symbol:   cur.Symbol,
			Decimals: cur.Decimals,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *WalletHandler) ListFeePlans(c *gin.Context) {
	plans, err := h.fees.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, errors.WrapInternal("api.ListFeePlans", err))
		return
	}

	type planResponse struct {
		ID             uuid.UUID       `json:"id"`
		FeeAmount      decimal.Decimal `json:"fee_amount"`
		AccountBalance decimal.Decimal `json:"account_balance"`
		ROIPercentage  decimal.Decimal `json:"roi_percentage"`
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse{
			ID:             p.ID,
			FeeAmount:      p.FeeAmount,
			AccountBalance: p.AccountBalance,
			ROIPercentage:  p.ROIPercentage,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ClaimFeePlan applies an instant-credit tier to the user's USD wallet.
func (h *WalletHandler) ClaimFeePlan(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.respondError(c, errors.NewUnauthenticated("api.ClaimFeePlan"))
		return
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		return
	}

	wallet, err := h.ledger.InstantCredit(c.Request.Context(), userID, planID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *WalletHandler) SetAssetVisibility(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.respondError(c, errors.NewUnauthenticated("api.SetAssetVisibility"))
		return
	}

	var req model.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currency, err := h.currencies.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.prefs.SetVisibility(c.Request.Context(), userID, currency.ID, *req.Visible); err != nil {
		h.respondError(c, errors.WrapInternal("api.SetAssetVisibility", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": currency.Code, "visible": *req.Visible})
}

func (h *WalletHandler) MarketPrice(c *gin.Context) {
	code := c.Param("code")
	price, err := h.prices.Price(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": code, "usd_price": price})
}
