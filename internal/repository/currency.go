package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
)

type CurrencyRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Currency, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Currency, error)
	ListActive(ctx context.Context) ([]model.Currency, error)
}

type currencyRepo struct {
	db *sqlx.DB
}

func NewCurrencyRepository(db *sqlx.DB) CurrencyRepository {
	return &currencyRepo{db: db}
}

func (r *currencyRepo) GetByCode(ctx context.Context, code string) (*model.Currency, error) {
	var currency model.Currency
	query := `SELECT * FROM currencies WHERE code = $1 AND is_active`
	err := r.db.GetContext(ctx, &currency, query, strings.ToUpper(code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetByCode", "currency")
		}
		return nil, fmt.Errorf("failed to get currency: %w", err)
	}
	return &currency, nil
}

func (r *currencyRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Currency, error) {
	var currency model.Currency
	query := `SELECT * FROM currencies WHERE id = $1`
	err := r.db.GetContext(ctx, &currency, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetByID", "currency")
		}
		return nil, fmt.Errorf("failed to get currency: %w", err)
	}
	return &currency, nil
}

func (r *currencyRepo) ListActive(ctx context.Context) ([]model.Currency, error) {
	var currencies []model.Currency
	query := `SELECT * FROM currencies WHERE is_active ORDER BY code`
	err := r.db.SelectContext(ctx, &currencies, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	return currencies, nil
}
