package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
)

// WalletRepository is read-only: every balance mutation happens inside a
// LedgerTx so the wallet update and its transaction row commit together.
type WalletRepository interface {
	GetWallet(ctx context.Context, id uuid.UUID) (*model.Wallet, error)
	GetWalletByUserAndCurrency(ctx context.Context, userID, currencyID uuid.UUID) (*model.Wallet, error)
	GetWalletByAddress(ctx context.Context, address string) (*model.Wallet, error)
	GetWalletsByUser(ctx context.Context, userID uuid.UUID) ([]model.Wallet, error)
}

type walletRepo struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) GetWallet(ctx context.Context, id uuid.UUID) (*model.Wallet, error) {
	var wallet model.Wallet
	query := `SELECT * FROM wallets WHERE id = $1`
	err := r.db.GetContext(ctx, &wallet, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetWallet", "wallet")
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepo) GetWalletByUserAndCurrency(ctx context.Context, userID, currencyID uuid.UUID) (*model.Wallet, error) {
	var wallet model.Wallet
	query := `SELECT * FROM wallets WHERE user_id = $1 AND currency_id = $2`
	err := r.db.GetContext(ctx, &wallet, query, userID, currencyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetWalletByUserAndCurrency", "wallet")
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepo) GetWalletByAddress(ctx context.Context, address string) (*model.Wallet, error) {
	var wallet model.Wallet
	query := `SELECT * FROM wallets WHERE wallet_address = $1`
	err := r.db.GetContext(ctx, &wallet, query, address)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetWalletByAddress", "wallet")
		}
		return nil, fmt.Errorf("failed to get wallet by address: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepo) GetWalletsByUser(ctx context.Context, userID uuid.UUID) ([]model.Wallet, error) {
	var wallets []model.Wallet
	query := `SELECT * FROM wallets WHERE user_id = $1 AND is_active ORDER BY created_at`
	err := r.db.SelectContext(ctx, &wallets, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}
