package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
)

// IsSerializationFailure reports whether an error is a Postgres serialization
// or deadlock failure; the whole unit of work may be retried.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation reports whether an error is a Postgres unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	GetTransactionsByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Transaction, error)
	ExistsByExternalReference(ctx context.Context, reference string) (bool, error)
	TxManager
}

type TxManager interface {
	BeginTx(ctx context.Context) (LedgerTx, error)
}

// LedgerTx is the unit of work for operations that touch more than one row:
// swaps, recipient-crediting sends and fee-confirmation releases. Either
// every mutation inside it commits or none do.
type LedgerTx interface {
	Commit() error
	Rollback() error
	GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*model.Wallet, error)
	GetUserWalletForUpdate(ctx context.Context, userID, currencyID uuid.UUID) (*model.Wallet, error)
	CreateWalletTx(ctx context.Context, wallet *model.Wallet) error
	// DebitTx applies an atomic conditional decrement guarded by the current
	// balance; the rows-affected result distinguishes success from a balance
	// that moved underneath the caller.
	DebitTx(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
	CreditTx(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	// SetBalanceTx overwrites the balance absolutely; only the instant-credit
	// tier grant uses it.
	SetBalanceTx(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	// HoldPendingTx adds to the pending running total without touching balance.
	HoldPendingTx(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	ReleasePendingTx(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
	CreateTransactionTx(ctx context.Context, transaction *model.Transaction) error
	// GetTransactionsByStatusAndTypeTx reads matching rows under row locks so
	// a concurrent status transition cannot interleave with the caller's own.
	GetTransactionsByStatusAndTypeTx(ctx context.Context, userID, statusID, typeID uuid.UUID) ([]model.Transaction, error)
	// SetTransactionStatusTx transitions a transaction unless it already sits
	// in a final status; the rows-affected result exposes a refused
	// re-transition.
	SetTransactionStatusTx(ctx context.Context, id, statusID uuid.UUID, completedAt *time.Time) (int64, error)
	RecordFeeVerificationTx(ctx context.Context, userID uuid.UUID, reference string) (int64, error)
}

type transactionRepo struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &transactionRepo{db: db}
}

const insertTransaction = `INSERT INTO transactions
	(id, transaction_type_id, status_id, currency_id, from_wallet_id, to_wallet_id, user_id,
	 amount, fee, net_amount, description, external_reference, metadata, completed_at)
	VALUES (:id, :transaction_type_id, :status_id, :currency_id, :from_wallet_id, :to_wallet_id, :user_id,
	 :amount, :fee, :net_amount, :description, :external_reference, :metadata, :completed_at)`

func (r *transactionRepo) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	_, err := r.db.NamedExecContext(ctx, insertTransaction, transaction)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	query := `SELECT * FROM transactions WHERE id = $1`
	err := r.db.GetContext(ctx, &tx, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetTransaction", "transaction")
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepo) GetTransactionsByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Transaction, error) {
	var transactions []model.Transaction
	query := `SELECT * FROM transactions
	          WHERE user_id = $1
	          ORDER BY created_at DESC
	          LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &transactions, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return transactions, nil
}

func (r *transactionRepo) ExistsByExternalReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE external_reference = $1)`
	err := r.db.GetContext(ctx, &exists, query, reference)
	if err != nil {
		return false, fmt.Errorf("failed to check external reference: %w", err)
	}
	return exists, nil
}

func (r *transactionRepo) BeginTx(ctx context.Context) (LedgerTx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &ledgerTx{Tx: tx}, nil
}

type ledgerTx struct {
	*sqlx.Tx
}

func (lt *ledgerTx) Commit() error {
	return lt.Tx.Commit()
}

func (lt *ledgerTx) Rollback() error {
	return lt.Tx.Rollback()
}

func (lt *ledgerTx) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*model.Wallet, error) {
	var wallet model.Wallet
	query := `SELECT * FROM wallets WHERE id = $1 FOR UPDATE`
	err := lt.Tx.GetContext(ctx, &wallet, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetWalletForUpdate", "wallet")
		}
		return nil, fmt.Errorf("failed to get wallet for update: %w", err)
	}
	return &wallet, nil
}

func (lt *ledgerTx) GetUserWalletForUpdate(ctx context.Context, userID, currencyID uuid.UUID) (*model.Wallet, error) {
	var wallet model.Wallet
	query := `SELECT * FROM wallets WHERE user_id = $1 AND currency_id = $2 FOR UPDATE`
	err := lt.Tx.GetContext(ctx, &wallet, query, userID, currencyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("repository.GetUserWalletForUpdate", "wallet")
		}
		return nil, fmt.Errorf("failed to get wallet for update: %w", err)
	}
	return &wallet, nil
}

func (lt *ledgerTx) CreateWalletTx(ctx context.Context, wallet *model.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, currency_id, balance, available_balance, pending_balance, wallet_address, is_active)
	          VALUES (:id, :user_id, :currency_id, :balance, :available_balance, :pending_balance, :wallet_address, :is_active)`
	_, err := lt.Tx.NamedExecContext(ctx, query, wallet)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (lt *ledgerTx) DebitTx(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	query := `UPDATE wallets
	          SET balance = balance - $1, available_balance = balance - $1,
	              version = version + 1, updated_at = NOW()
	          WHERE id = $2 AND balance >= $1`
	result, err := lt.Tx.ExecContext(ctx, query, amount, id)
	if err != nil {
		return 0, fmt.Errorf("failed to debit wallet: %w", err)
	}
	return result.RowsAffected()
}

func (lt *ledgerTx) CreditTx(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE wallets
	          SET balance = balance + $1, available_balance = balance + $1,
	              version = version + 1, updated_at = NOW()
	          WHERE id = $2`
	_, err := lt.Tx.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	return nil
}

func (lt *ledgerTx) SetBalanceTx(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets
	          SET balance = $1, available_balance = $1,
	              version = version + 1, updated_at = NOW()
	          WHERE id = $2`
	_, err := lt.Tx.ExecContext(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("failed to set wallet balance: %w", err)
	}
	return nil
}

func (lt *ledgerTx) HoldPendingTx(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE wallets
	          SET pending_balance = pending_balance + $1,
	              version = version + 1, updated_at = NOW()
	          WHERE id = $2`
	_, err := lt.Tx.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to hold pending balance: %w", err)
	}
	return nil
}

func (lt *ledgerTx) ReleasePendingTx(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	query := `UPDATE wallets
	          SET balance = balance - $1, available_balance = balance - $1,
	              pending_balance = pending_balance - $1,
	              version = version + 1, updated_at = NOW()
	          WHERE id = $2 AND pending_balance >= $1 AND balance >= $1`
	result, err := lt.Tx.ExecContext(ctx, query, amount, id)
	if err != nil {
		return 0, fmt.Errorf("failed to release pending balance: %w", err)
	}
	return result.RowsAffected()
}

func (lt *ledgerTx) CreateTransactionTx(ctx context.Context, transaction *model.Transaction) error {
	_, err := lt.Tx.NamedExecContext(ctx, insertTransaction, transaction)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (lt *ledgerTx) GetTransactionsByStatusAndTypeTx(ctx context.Context, userID, statusID, typeID uuid.UUID) ([]model.Transaction, error) {
	var transactions []model.Transaction
	query := `SELECT * FROM transactions
	          WHERE user_id = $1 AND status_id = $2 AND transaction_type_id = $3
	          ORDER BY created_at
	          FOR UPDATE`
	err := lt.Tx.SelectContext(ctx, &transactions, query, userID, statusID, typeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by status: %w", err)
	}
	return transactions, nil
}

func (lt *ledgerTx) SetTransactionStatusTx(ctx context.Context, id, statusID uuid.UUID, completedAt *time.Time) (int64, error) {
	query := `UPDATE transactions
	          SET status_id = $1, completed_at = $2
	          WHERE id = $3
	            AND status_id NOT IN (SELECT id FROM transaction_statuses WHERE is_final)`
	result, err := lt.Tx.ExecContext(ctx, query, statusID, completedAt, id)
	if err != nil {
		return 0, fmt.Errorf("failed to set transaction status: %w", err)
	}
	return result.RowsAffected()
}

func (lt *ledgerTx) RecordFeeVerificationTx(ctx context.Context, userID uuid.UUID, reference string) (int64, error) {
	query := `INSERT INTO fee_verifications (user_id, reference)
	          VALUES ($1, $2)
	          ON CONFLICT (user_id) DO NOTHING`
	result, err := lt.Tx.ExecContext(ctx, query, userID, reference)
	if err != nil {
		return 0, fmt.Errorf("failed to record fee verification: %w", err)
	}
	return result.RowsAffected()
}
