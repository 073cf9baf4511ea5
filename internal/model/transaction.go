package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the typed form of the transaction_statuses catalog.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
)

// Final reports whether the status is terminal and must never re-transition.
func (s TransactionStatus) Final() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TransactionType is the typed form of the transaction_types catalog.
type TransactionType string

const (
	TypeDeposit  TransactionType = "deposit"
	TypeWithdraw TransactionType = "withdraw"
	TypeSend     TransactionType = "send"
	TypeSwap     TransactionType = "swap"
	TypeReceive  TransactionType = "receive"
)

const (
	RecipientKindAddress = "address"
	RecipientKindEmail   = "email"
)

// RecipientInfo records who a send was addressed to.
type RecipientInfo struct {
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
}

// SwapDetails records both legs of a swap; the transaction row itself carries
// only the source currency.
type SwapDetails struct {
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	ToAmount     decimal.Decimal `json:"to_amount"`
}

// Metadata is the structured annotation column on a transaction. Which
// fields must be present depends on the transaction type; Validate enforces
// that before the row is written.
type Metadata struct {
	Recipient     *RecipientInfo `json:"recipient,omitempty"`
	Swap          *SwapDetails   `json:"swap,omitempty"`
	InstantCredit bool           `json:"instant_credit,omitempty"`
}

func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// Validate checks the metadata against the transaction type it annotates.
func (m Metadata) Validate(txType TransactionType) error {
	switch txType {
	case TypeSend:
		if m.Recipient == nil {
			return errors.New("send metadata requires a recipient")
		}
		if m.Recipient.Identifier == "" {
			return errors.New("recipient identifier is empty")
		}
		if m.Recipient.Kind != RecipientKindAddress && m.Recipient.Kind != RecipientKindEmail {
			return fmt.Errorf("unknown recipient kind %q", m.Recipient.Kind)
		}
	case TypeSwap:
		if m.Swap == nil {
			return errors.New("swap metadata requires swap details")
		}
		if m.Swap.FromCurrency == "" || m.Swap.ToCurrency == "" {
			return errors.New("swap metadata requires both currency codes")
		}
		if !m.Swap.Rate.IsPositive() {
			return errors.New("swap rate must be positive")
		}
	}
	return nil
}

// Transaction is one logical money movement. A swap or send produces exactly
// one row; both wallet legs of a swap live in Metadata.
type Transaction struct {
	ID                uuid.UUID       `db:"id"`
	TransactionTypeID uuid.UUID       `db:"transaction_type_id"`
	StatusID          uuid.UUID       `db:"status_id"`
	CurrencyID        uuid.UUID       `db:"currency_id"`
	FromWalletID      *uuid.UUID      `db:"from_wallet_id"`
	ToWalletID        *uuid.UUID      `db:"to_wallet_id"`
	UserID            uuid.UUID       `db:"user_id"`
	Amount            decimal.Decimal `db:"amount"`
	Fee               decimal.Decimal `db:"fee"`
	NetAmount         decimal.Decimal `db:"net_amount"`
	Description       string          `db:"description"`
	ExternalReference *string         `db:"external_reference"`
	Metadata          Metadata        `db:"metadata"`
	CreatedAt         time.Time       `db:"created_at"`
	CompletedAt       *time.Time      `db:"completed_at"`
}
