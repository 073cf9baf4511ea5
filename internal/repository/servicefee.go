package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
)

type ServiceFeeRepository interface {
	ListActive(ctx context.Context) ([]model.ServiceFeePlan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceFeePlan, error)
	// ApplicableForBalance picks the plan for the nearest tier at or below
	// the balance; when the balance is below every tier the lowest active
	// plan applies.
	ApplicableForBalance(ctx context.Context, balance decimal.Decimal) (*model.ServiceFeePlan, error)
}

type serviceFeeRepo struct {
	db *sqlx.DB
}

func NewServiceFeeRepository(db *sqlx.DB) ServiceFeeRepository {
	return &serviceFeeRepo{db: db}
}

func (r *serviceFeeRepo) ListActive(ctx context.Context) ([]model.ServiceFeePlan, error) {
	var plans []model.ServiceFeePlan
	query := `SELECT * FROM service_fees WHERE is_active ORDER BY account_balance`
	err := r.db.SelectContext(ctx, &plans, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list service fee plans: %w", err)
	}
	return plans, nil
}

func (r *serviceFeeRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceFeePlan, error) {
	var plan model.ServiceFeePlan
	query := `SELECT * FROM service_fees WHERE id = $1 AND is_active`
	err := r.db.GetContext(ctx, &plan, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetByID", "service fee plan")
		}
		return nil, fmt.Errorf("failed to get service fee plan: %w", err)
	}
	return &plan, nil
}

func (r *serviceFeeRepo) ApplicableForBalance(ctx context.Context, balance decimal.Decimal) (*model.ServiceFeePlan, error) {
	var plan model.ServiceFeePlan
	query := `SELECT * FROM service_fees
	          WHERE is_active AND account_balance <= $1
	          ORDER BY account_balance DESC
	          LIMIT 1`
	err := r.db.GetContext(ctx, &plan, query, balance)
	if err == nil {
		return &plan, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get applicable fee plan: %w", err)
	}

	query = `SELECT * FROM service_fees WHERE is_active ORDER BY account_balance LIMIT 1`
	err = r.db.GetContext(ctx, &plan, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.ApplicableForBalance", "service fee plan")
		}
		return nil, fmt.Errorf("failed to get fallback fee plan: %w", err)
	}
	return &plan, nil
}
