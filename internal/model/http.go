package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DepositOrderRequest struct {
	Currency string          `json:"currency" binding:"required,len=3"`
	Amount   decimal.Decimal `json:"amount"`
}

type SendRequest struct {
	Currency  string          `json:"currency" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient" binding:"required"`
}

type SwapRequest struct {
	FromCurrency string          `json:"from_currency" binding:"required"`
	ToCurrency   string          `json:"to_currency" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
}

type WithdrawRequest struct {
	Currency string          `json:"currency" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

type PreferenceRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// PaymentWebhook is the processor's out-of-band deposit confirmation.
type PaymentWebhook struct {
	OrderID  string          `json:"order_id" binding:"required"`
	UserID   uuid.UUID       `json:"user_id" binding:"required"`
	Currency string          `json:"currency" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

// FeeConfirmationWebhook signals that a user's withdrawal service fee was
// paid. Replays must be harmless.
type FeeConfirmationWebhook struct {
	UserID    uuid.UUID `json:"user_id" binding:"required"`
	Reference string    `json:"reference" binding:"required"`
}

type WalletResponse struct {
	ID               uuid.UUID       `json:"id"`
	Currency         string          `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PendingBalance   decimal.Decimal `json:"pending_balance"`
	WalletAddress    string          `json:"wallet_address"`
}

type TransactionResponse struct {
	ID          uuid.UUID         `json:"id"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Currency    string            `json:"currency"`
	Amount      decimal.Decimal   `json:"amount"`
	Fee         decimal.Decimal   `json:"fee"`
	NetAmount   decimal.Decimal   `json:"net_amount"`
	Description string            `json:"description"`
	Metadata    Metadata          `json:"metadata"`
	CreatedAt   string            `json:"created_at"`
	CompletedAt string            `json:"completed_at,omitempty"`
}

// FeeInstruction tells a gated user where to pay the one-time service fee.
type FeeInstruction struct {
	PayToAddress string          `json:"pay_to_address"`
	FeeAmount    decimal.Decimal `json:"fee_amount"`
}

type WithdrawResponse struct {
	Wallet         WalletResponse  `json:"wallet"`
	TransactionID  uuid.UUID       `json:"transaction_id"`
	Held           bool            `json:"held"`
	FeeInstruction *FeeInstruction `json:"fee_instruction,omitempty"`
}

type DepositOrderResponse struct {
	OrderID     string `json:"order_id"`
	ApprovalURL string `json:"approval_url"`
}
