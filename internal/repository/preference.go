package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
)

type PreferenceRepository interface {
	SetVisibility(ctx context.Context, userID, currencyID uuid.UUID, visible bool) error
	// HiddenCurrencies returns the set of currency ids the user chose to
	// hide; anything absent from the map is visible by default.
	HiddenCurrencies(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
}

type preferenceRepo struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

func (r *preferenceRepo) SetVisibility(ctx context.Context, userID, currencyID uuid.UUID, visible bool) error {
	query := `INSERT INTO user_preferred_assets (user_id, currency_id, is_visible)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, currency_id)
	          DO UPDATE SET is_visible = EXCLUDED.is_visible, updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, userID, currencyID, visible)
	if err != nil {
		return fmt.Errorf("failed to set asset visibility: %w", err)
	}
	return nil
}

func (r *preferenceRepo) HiddenCurrencies(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	var rows []model.PreferredAsset
	query := `SELECT * FROM user_preferred_assets WHERE user_id = $1 AND NOT is_visible`
	err := r.db.SelectContext(ctx, &rows, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset preferences: %w", err)
	}
	hidden := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		hidden[row.CurrencyID] = true
	}
	return hidden, nil
}

type FeeVerificationRepository interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type feeVerificationRepo struct {
	db *sqlx.DB
}

func NewFeeVerificationRepository(db *sqlx.DB) FeeVerificationRepository {
	return &feeVerificationRepo{db: db}
}

func (r *feeVerificationRepo) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM fee_verifications WHERE user_id = $1)`
	err := r.db.GetContext(ctx, &exists, query, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check fee verification: %w", err)
	}
	return exists, nil
}
