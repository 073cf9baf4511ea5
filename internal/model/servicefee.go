package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceFeePlan is a read-only instant-credit tier: paying FeeAmount grants
// AccountBalance. The grant sets the USD wallet balance to AccountBalance
// absolutely rather than crediting it, matching the product's tier semantics.
type ServiceFeePlan struct {
	ID             uuid.UUID       `db:"id"`
	FeeAmount      decimal.Decimal `db:"fee_amount"`
	AccountBalance decimal.Decimal `db:"account_balance"`
	ROIPercentage  decimal.Decimal `db:"roi_percentage"`
	IsActive       bool            `db:"is_active"`
	CreatedAt      time.Time       `db:"created_at"`
}

// PreferredAsset is a per-user display filter; absent rows default to visible.
type PreferredAsset struct {
	UserID     uuid.UUID `db:"user_id"`
	CurrencyID uuid.UUID `db:"currency_id"`
	IsVisible  bool      `db:"is_visible"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// FeeVerification records that a user's one-time withdrawal fee payment was
// confirmed. At most one row per user.
type FeeVerification struct {
	UserID      uuid.UUID `db:"user_id"`
	Reference   string    `db:"reference"`
	ConfirmedAt time.Time `db:"confirmed_at"`
}
