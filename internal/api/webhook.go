package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
)

// ConfirmPayment is the processor's deposit confirmation. The order id is
// stored as the transaction's external reference, so a replayed event finds
// the existing row and credits nothing.
func (h *WalletHandler) ConfirmPayment(c *gin.Context) {
	var event model.PaymentWebhook
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.ledger.Deposit(c.Request.Context(), event.UserID, event.Currency, event.Amount,
		event.OrderID, "deposit via payment processor")
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// ConfirmFeePayment clears the withdrawal fee gate for a user. Replaying the
// same confirmation is harmless.
func (h *WalletHandler) ConfirmFeePayment(c *gin.Context) {
	var event model.FeeConfirmationWebhook
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledger.ConfirmFeePayment(c.Request.Context(), event.UserID, event.Reference); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}
