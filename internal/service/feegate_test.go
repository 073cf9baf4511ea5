package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
)

// MockFeeVerificationRepository implements repository.FeeVerificationRepository
type MockFeeVerificationRepository struct {
	mock.Mock
}

func (m *MockFeeVerificationRepository) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func TestFeeGate_RequiresFeeVerification(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("unverified user is gated", func(t *testing.T) {
		verifications := &MockFeeVerificationRepository{}
		verifications.On("Exists", ctx, userID).Return(false, nil)
		gate := NewFeeGate(&MockServiceFeeRepository{}, verifications)

		gated, err := gate.RequiresFeeVerification(ctx, userID)
		assert.NoError(t, err)
		assert.True(t, gated)
	})

	t.Run("verified user passes the gate", func(t *testing.T) {
		verifications := &MockFeeVerificationRepository{}
		verifications.On("Exists", ctx, userID).Return(true, nil)
		gate := NewFeeGate(&MockServiceFeeRepository{}, verifications)

		gated, err := gate.RequiresFeeVerification(ctx, userID)
		assert.NoError(t, err)
		assert.False(t, gated)
	})
}

func TestFeeGate_ApplicableFee(t *testing.T) {
	ctx := context.Background()
	balance := decimal.NewFromInt(3500)
	plan := &model.ServiceFeePlan{
		ID:             uuid.New(),
		FeeAmount:      decimal.NewFromInt(150),
		AccountBalance: decimal.NewFromInt(1000),
		IsActive:       true,
	}

	fees := &MockServiceFeeRepository{}
	fees.On("ApplicableForBalance", ctx, balance).Return(plan, nil)
	gate := NewFeeGate(fees, &MockFeeVerificationRepository{})

	got, err := gate.ApplicableFee(ctx, balance)
	assert.NoError(t, err)
	assert.Equal(t, plan.ID, got.ID)
	assert.True(t, got.FeeAmount.Equal(plan.FeeAmount))
}
