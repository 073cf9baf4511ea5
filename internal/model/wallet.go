package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddressPrefix is the fixed literal prefix of every platform wallet address.
const AddressPrefix = "0x"

// Wallet holds one user's balance in one currency. Balances are mutated only
// through the ledger service; available_balance tracks balance except while a
// withdrawal is held, and pending_balance is the running total held back for
// fee verification.
type Wallet struct {
	ID               uuid.UUID       `db:"id"`
	UserID           uuid.UUID       `db:"user_id"`
	CurrencyID       uuid.UUID       `db:"currency_id"`
	Balance          decimal.Decimal `db:"balance"`
	AvailableBalance decimal.Decimal `db:"available_balance"`
	PendingBalance   decimal.Decimal `db:"pending_balance"`
	WalletAddress    string          `db:"wallet_address"`
	IsActive         bool            `db:"is_active"`
	Version          int             `db:"version"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// NewWalletAddress generates an opaque receiving identifier.
func NewWalletAddress() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		// rand.Read does not fail on supported platforms; fall back to a
		// uuid-derived address rather than returning an error to callers.
		u := uuid.New()
		return AddressPrefix + hex.EncodeToString(u[:])
	}
	return AddressPrefix + hex.EncodeToString(b)
}
