package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/repository"
)

type feeGate struct {
	feeRepo          repository.ServiceFeeRepository
	verificationRepo repository.FeeVerificationRepository
}

// NewFeeGate builds the rule deciding whether a user's withdrawal is held
// pending the one-time service fee.
func NewFeeGate(feeRepo repository.ServiceFeeRepository, verificationRepo repository.FeeVerificationRepository) FeeGate {
	return &feeGate{feeRepo: feeRepo, verificationRepo: verificationRepo}
}

// RequiresFeeVerification is true until a fee-payment confirmation has been
// recorded for the user.
func (g *feeGate) RequiresFeeVerification(ctx context.Context, userID uuid.UUID) (bool, error) {
	verified, err := g.verificationRepo.Exists(ctx, userID)
	if err != nil {
		return false, errors.WrapInternal("feegate.RequiresFeeVerification", err)
	}
	return !verified, nil
}

// ApplicableFee looks up the service-fee plan for the user's balance tier.
func (g *feeGate) ApplicableFee(ctx context.Context, balance decimal.Decimal) (*model.ServiceFeePlan, error) {
	plan, err := g.feeRepo.ApplicableForBalance(ctx, balance)
	if err != nil {
		return nil, errors.WrapInternal("feegate.ApplicableFee", err)
	}
	return plan, nil
}
