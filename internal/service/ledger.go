package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/catalog"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/repository"
	"github.com/chapinin777/drkpaypal-wallet-sub000/pkg/logger"
)

const maxRetries = 3

// minAddressLength is the shortest identifier treated as a wallet address
// when it carries the address prefix.
const minAddressLength = 26

// RateSource supplies the exchange rate applied to a swap. The rate must be
// quoted immediately before the unit of work commits; a retried swap
// re-fetches it.
type RateSource interface {
	Rate(ctx context.Context, fromCode, toCode string) (decimal.Decimal, error)
}

// FeeGate decides whether a withdrawal must be held pending the one-time
// service fee, and which fee plan applies.
type FeeGate interface {
	RequiresFeeVerification(ctx context.Context, userID uuid.UUID) (bool, error)
	ApplicableFee(ctx context.Context, balance decimal.Decimal) (*model.ServiceFeePlan, error)
}

type Config struct {
	// CreditRecipient switches Send from the ledger-only one-sided debit to
	// resolving an internal recipient wallet and crediting it in the same
	// unit of work.
	CreditRecipient      bool
	FeeCollectionAddress string
}

// LedgerService is the sole authority for mutating wallet balances and
// appending transaction rows.
type LedgerService interface {
	Deposit(ctx context.Context, userID uuid.UUID, currencyCode string, amount decimal.Decimal, externalRef, description string) (*model.WalletResponse, error)
	InstantCredit(ctx context.Context, userID, planID uuid.UUID) (*model.WalletResponse, error)
	Send(ctx context.Context, userID uuid.UUID, currencyCode string, amount decimal.Decimal, recipient string) (*model.WalletResponse, error)
	Swap(ctx context.Context, userID uuid.UUID, fromCode, toCode string, amount decimal.Decimal) (*model.WalletResponse, error)
	Withdraw(ctx context.Context, userID uuid.UUID, currencyCode string, amount decimal.Decimal) (*model.WithdrawResponse, error)
	ConfirmFeePayment(ctx context.Context, userID uuid.UUID, reference string) error
	Balances(ctx context.Context, userID uuid.UUID) ([]model.WalletResponse, error)
	History(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]model.TransactionResponse, error)
}

type ledgerService struct {
	walletRepo   repository.WalletRepository
	txRepo       repository.TransactionRepository
	currencyRepo repository.CurrencyRepository
	feeRepo      repository.ServiceFeeRepository
	prefRepo     repository.PreferenceRepository
	txManager    repository.TxManager
	cat          *catalog.Catalog
	rates        RateSource
	gate         FeeGate
	cfg          Config
	log          *logger.Logger
}

func NewLedgerService(
	walletRepo repository.WalletRepository,
	txRepo repository.TransactionRepository,
	currencyRepo repository.CurrencyRepository,
	feeRepo repository.ServiceFeeRepository,
	prefRepo repository.PreferenceRepository,
	txManager repository.TxManager,
	cat *catalog.Catalog,
	rates RateSource,
	gate FeeGate,
	cfg Config,
	log *logger.Logger,
) LedgerService {
	return &ledgerService{
		walletRepo:   walletRepo,
		txRepo:       txRepo,
		currencyRepo: currencyRepo,
		feeRepo:      feeRepo,
		prefRepo:     prefRepo,
		txManager:    txManager,
		cat:          cat,
		rates:        rates,
		gate:         gate,
		cfg:          cfg,
		log:          log,
	}
}

// newTransaction fills the catalog ids and the fee arithmetic invariant
// (net = amount - fee) for a new row.
func (s *ledgerService) newTransaction(
	txType model.TransactionType,
	status model.TransactionStatus,
	userID, currencyID uuid.UUID,
	amount, fee decimal.Decimal,
	description string,
) (*model.Transaction, error) {
	typeID, err := s.cat.TypeID(txType)
	if err != nil {
		return nil, err
	}
	statusID, err := s.cat.StatusID(status)
	if err != nil {
		return nil, err
	}
	tx := &model.Transaction{
		ID:                uuid.New(),
		TransactionTypeID: typeID,
		StatusID:          statusID,
		CurrencyID:        currencyID,
		UserID:            userID,
		Amount:            amount,
		Fee:               fee,
		NetAmount:         amount.Sub(fee),
		Description:       description,
	}
	if status == model.StatusCompleted {
		now := time.Now().UTC()
		tx.CompletedAt = &now
	}
	return tx, nil
}

// getOrCreateWalletTx locks the user's wallet for the currency, creating it
// with a zero balance and a generated address when absent.
func (s *ledgerService) getOrCreateWalletTx(ctx context.Context, tx repository.LedgerTx, userID, currencyID uuid.UUID) (*model.Wallet, error) {
	wallet, err := tx.GetUserWalletForUpdate(ctx, userID, currencyID)
	if err == nil {
		return wallet, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	wallet = &model.Wallet{
		ID:               uuid.New(),
		UserID:           userID,
		CurrencyID:       currencyID,
		Balance:          decimal.Zero,
		AvailableBalance: decimal.Zero,
		PendingBalance:   decimal.Zero,
		WalletAddress:    model.NewWalletAddress(),
		IsActive:         true,
	}
	if err := tx.CreateWalletTx(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *ledgerService) Deposit(ctx context.Context, userID uuid.UUID, currencyCode string, amount decimal.Decimal, externalRef, description string) (*model.WalletResponse, error) {
	const op = "ledger.Deposit"

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.NewInvalidInput(op, "amount", amount)
	}
	currency, err := s.currencyRepo.GetByCode(ctx, currencyCode)
	if err != nil {
		return nil, err
	}

	// A replayed processor confirmation must not credit twice.
	if externalRef != "" {
		exists, err := s.txRepo.ExistsByExternalReference(ctx, externalRef)
		if err != nil {
			return nil, errors.WrapInternal(op, err)
		}
		if exists {
			s.log.Infof("deposit replay ignored, reference=%s", externalRef)
			wallet, err := s.walletRepo.GetWalletByUserAndCurrency(ctx, userID, currency.ID)
			if err != nil {
				return nil, err
			}
			return walletResponse(wallet, currency.Code), nil
		}
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	wallet, err := s.getOrCreateWalletTx(ctx, tx, userID, currency.ID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.CreditTx(ctx, wallet.ID, amount); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	row, err := s.newTransaction(model.TypeDeposit, model.StatusCompleted, userID, currency.ID, amount, decimal.Zero, description)
	if err != nil {
		return nil, err
	}
	row.ToWalletID = &wallet.ID
	if externalRef != "" {
		row.ExternalReference = &externalRef
	}
	if err := tx.CreateTransactionTx(ctx, row); err != nil {
		// A concurrent confirmation for the same order can slip past the
		// replay check; the unique external_reference collapses the loser
		// onto the same idempotent no-op.
		if externalRef != "" && repository.IsUniqueViolation(err) {
			_ = tx.Rollback()
			s.log.Infof("deposit replay ignored, reference=%s", externalRef)
			wallet, werr := s.walletRepo.GetWalletByUserAndCurrency(ctx, userID, currency.ID)
			if werr != nil {
				return nil, werr
			}
			return walletResponse(wallet, currency.Code), nil
		}
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	wallet.Balance = wallet.Balance.Add(amount)
	wallet.AvailableBalance = wallet.Balance
	return walletResponse(wallet, currency.Code), nil
}

// InstantCredit grants a service-fee plan's account balance to the user's
// USD wallet. The tier credit is an absolute target, not an additive
// deposit; that asymmetry with Deposit is deliberate product behavior.
func (s *ledgerService) InstantCredit(ctx context.Context, userID, planID uuid.UUID) (*model.WalletResponse, error) {
	const op = "ledger.InstantCredit"

	plan, err := s.feeRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	currency, err := s.currencyRepo.GetByCode(ctx, "USD")
	if err != nil {
		return nil, err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	wallet, err := s.getOrCreateWalletTx(ctx, tx, userID, currency.ID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.SetBalanceTx(ctx, wallet.ID, plan.AccountBalance); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	row, err := s.newTransaction(model.TypeDeposit, model.StatusCompleted, userID, currency.ID, plan.AccountBalance, decimal.Zero, "instant credit tier")
	if err != nil {
		return nil, err
	}
	row.ToWalletID = &wallet.ID
	row.Metadata = model.Metadata{InstantCredit: true}
	if err := tx.CreateTransactionTx(ctx, row); err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	wallet.Balance = plan.AccountBalance
	wallet.AvailableBalance = plan.AccountBalance
	return walletResponse(wallet, currency.Code), nil
}

// classifyRecipient distinguishes a platform wallet address from an email by
// the fixed address prefix and minimum length, falling back to email-shape
// matching.
func classifyRecipient(op, identifier string) (*model.RecipientInfo, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.HasPrefix(identifier, model.AddressPrefix) && len(identifier) >= minAddressLength {
		return &model.RecipientInfo{Identifier: identifier, Kind: model.RecipientKindAddress}, nil
	}
	if addr, err := mail.ParseAddress(identifier); err == nil && addr.Address == identifier {
		return &model.RecipientInfo{Identifier: identifier, Kind: model.RecipientKindEmail}, nil
	}
	return nil, errors.NewInvalidInput(op, "recipient", identifier)
}

func (s *ledgerService) Send(ctx context.Context, userID uuid.UUID, currencyCode string, amount decimal.Decimal, recipient string) (*model.WalletResponse, error) {
	const op = "ledger.Send"

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.NewInvalidInput(op, "amount", amount)
	}
	recipientInfo, err := classifyRecipient(op, recipient)
	if err != nil {
		return nil, err
	}
	currency, err := s.currencyRepo.GetByCode(ctx, currencyCode)
	if err != nil {
		return nil, err
	}
	wallet, err := s.walletRepo.GetWalletByUserAndCurrency(ctx, userID, currency.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewInsufficientBalance(op)
		}
		return nil, errors.WrapInternal(op, err)
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		resp, err := s.sendOnce(ctx, op, wallet, currency, amount, recipientInfo)
		if err == nil {
			return resp, nil
		}
		if repository.IsSerializationFailure(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, errors.NewConflict(op, "operation conflicted after retries: "+lastErr.Error())
}

func (s *ledgerService) sendOnce(ctx context.Context, op string, wallet *model.Wallet, currency *model.Currency, amount decimal.Decimal, recipientInfo *model.RecipientInfo) (*model.WalletResponse, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	rows, err := tx.DebitTx(ctx, wallet.ID, amount)
	if err != nil {
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}
	if rows == 0 {
		// The debit is guarded by the live balance, so zero rows means the
		// funds are not there, not that another writer won a race.
		return nil, errors.NewInsufficientBalance(op)
	}

	row, err := s.newTransaction(model.TypeSend, model.StatusCompleted, wallet.UserID, currency.ID, amount, decimal.Zero, "send to "+recipientInfo.Identifier)
	if err != nil {
		return nil, err
	}
	row.FromWalletID = &wallet.ID
	row.Metadata = model.Metadata{Recipient: recipientInfo}

	// The ledger records sends one-sided by default; the recipient leg only
	// exists when the platform is configured to resolve internal addresses.
	if s.cfg.CreditRecipient && recipientInfo.Kind == model.RecipientKindAddress {
		toWallet, err := s.walletRepo.GetWalletByAddress(ctx, recipientInfo.Identifier)
		switch {
		case err == nil && toWallet.CurrencyID == currency.ID:
			if err := tx.CreditTx(ctx, toWallet.ID, amount); err != nil {
				return nil, errors.WrapInternal(op, err)
			}
			row.ToWalletID = &toWallet.ID
		case err != nil && !errors.IsNotFound(err):
			return nil, errors.WrapInternal(op, err)
		}
	}

	if err := row.Metadata.Validate(model.TypeSend); err != nil {
		return nil, errors.NewInternal(op, err)
	}
	if err := tx.CreateTransactionTx(ctx, row); err != nil {
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.Commit(); err != nil {
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}

	fresh, err := s.walletRepo.GetWallet(ctx, wallet.ID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	return walletResponse(fresh, currency.Code), nil
}

func (s *ledgerService) Swap(ctx context.Context, userID uuid.UUID, fromCode, toCode string, amount decimal.Decimal) (*model.WalletResponse, error) {
	const op = "ledger.Swap"

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.NewInvalidInput(op, "amount", amount)
	}
	if strings.EqualFold(fromCode, toCode) {
		return nil, errors.NewInvalidInput(op, "to_currency", toCode)
	}
	fromCurrency, err := s.currencyRepo.GetByCode(ctx, fromCode)
	if err != nil {
		return nil, err
	}
	toCurrency, err := s.currencyRepo.GetByCode(ctx, toCode)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		// The rate is fetched fresh on every attempt; a retried swap must
		// not replay a stale quote.
		rate, err := s.rates.Rate(ctx, fromCurrency.Code, toCurrency.Code)
		if err != nil {
			return nil, err
		}
		if rate.LessThanOrEqual(decimal.Zero) {
			return nil, errors.NewExternalDependency(op, "market data", nil)
		}

		resp, err := s.swapOnce(ctx, op, userID, fromCurrency, toCurrency, amount, rate)
		if err == nil {
			return resp, nil
		}
		if repository.IsSerializationFailure(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, errors.NewConflict(op, "operation conflicted after retries: "+lastErr.Error())
}

func (s *ledgerService) swapOnce(ctx context.Context, op string, userID uuid.UUID, fromCurrency, toCurrency *model.Currency, amount, rate decimal.Decimal) (*model.WalletResponse, error) {
	toAmount := amount.Mul(rate)

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	fromWallet, err := tx.GetUserWalletForUpdate(ctx, userID, fromCurrency.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewInsufficientBalance(op)
		}
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}

	rows, err := tx.DebitTx(ctx, fromWallet.ID, amount)
	if err != nil {
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}
	if rows == 0 {
		return nil, errors.NewInsufficientBalance(op)
	}

	toWallet, err := s.getOrCreateWalletTx(ctx, tx, userID, toCurrency.ID)
	if err != nil {
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.CreditTx(ctx, toWallet.ID, toAmount); err != nil {
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}

	row, err := s.newTransaction(model.TypeSwap, model.StatusCompleted, userID, fromCurrency.ID, amount, decimal.Zero,
		"swap "+fromCurrency.Code+" to "+toCurrency.Code)
	if err != nil {
		return nil, err
	}
	row.FromWalletID = &fromWallet.ID
	row.ToWalletID = &toWallet.ID
	row.Metadata = model.Metadata{Swap: &model.SwapDetails{
		FromCurrency: fromCurrency.Code,
		ToCurrency:   toCurrency.Code,
		Rate:         rate,
		ToAmount:     toAmount,
	}}
	if err := row.Metadata.Validate(model.TypeSwap); err != nil {
		return nil, errors.NewInternal(op, err)
	}
	if err := tx.CreateTransactionTx(ctx, row); err != nil {
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.Commit(); err != nil {
		if repository.IsSerializationFailure(err) {
			return nil, err
		}
		return nil, errors.WrapInternal(op, err)
	}

	fromWallet.Balance = fromWallet.Balance.Sub(amount)
	fromWallet.AvailableBalance = fromWallet.Balance
	return walletResponse(fromWallet, fromCurrency.Code), nil
}

func (s *ledgerService) Withdraw(ctx context.Context, userID uuid.UUID, currencyCode string, amount decimal.Decimal) (*model.WithdrawResponse, error) {
	const op = "ledger.Withdraw"

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.NewInvalidInput(op, "amount", amount)
	}
	currency, err := s.currencyRepo.GetByCode(ctx, currencyCode)
	if err != nil {
		return nil, err
	}
	wallet, err := s.walletRepo.GetWalletByUserAndCurrency(ctx, userID, currency.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewInsufficientBalance(op)
		}
		return nil, errors.WrapInternal(op, err)
	}
	if wallet.Balance.LessThan(amount) {
		return nil, errors.NewInsufficientBalance(op)
	}

	gated, err := s.gate.RequiresFeeVerification(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if gated {
		return s.withdrawHeld(ctx, op, wallet, currency, amount)
	}
	return s.withdrawReleased(ctx, op, wallet, currency, amount)
}

// withdrawHeld parks the amount in pending_balance until the one-time
// service fee is confirmed. The pending total accumulates across attempts;
// nothing is reserved out of balance until the release.
func (s *ledgerService) withdrawHeld(ctx context.Context, op string, wallet *model.Wallet, currency *model.Currency, amount decimal.Decimal) (*model.WithdrawResponse, error) {
	plan, err := s.gate.ApplicableFee(ctx, wallet.Balance)
	if err != nil {
		return nil, err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	locked, err := tx.GetWalletForUpdate(ctx, wallet.ID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if locked.Balance.LessThan(amount) {
		return nil, errors.NewInsufficientBalance(op)
	}
	if err := tx.HoldPendingTx(ctx, wallet.ID, amount); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	row, err := s.newTransaction(model.TypeWithdraw, model.StatusPending, wallet.UserID, currency.ID, amount, plan.FeeAmount, "withdrawal pending fee verification")
	if err != nil {
		return nil, err
	}
	row.FromWalletID = &wallet.ID
	if err := tx.CreateTransactionTx(ctx, row); err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	locked.PendingBalance = locked.PendingBalance.Add(amount)
	resp := walletResponse(locked, currency.Code)
	return &model.WithdrawResponse{
		Wallet:        *resp,
		TransactionID: row.ID,
		Held:          true,
		FeeInstruction: &model.FeeInstruction{
			PayToAddress: s.cfg.FeeCollectionAddress,
			FeeAmount:    plan.FeeAmount,
		},
	}, nil
}

func (s *ledgerService) withdrawReleased(ctx context.Context, op string, wallet *model.Wallet, currency *model.Currency, amount decimal.Decimal) (*model.WithdrawResponse, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	rows, err := tx.DebitTx(ctx, wallet.ID, amount)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if rows == 0 {
		return nil, errors.NewInsufficientBalance(op)
	}

	row, err := s.newTransaction(model.TypeWithdraw, model.StatusCompleted, wallet.UserID, currency.ID, amount, decimal.Zero, "withdrawal")
	if err != nil {
		return nil, err
	}
	row.FromWalletID = &wallet.ID
	if err := tx.CreateTransactionTx(ctx, row); err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	wallet.Balance = wallet.Balance.Sub(amount)
	wallet.AvailableBalance = wallet.Balance
	resp := walletResponse(wallet, currency.Code)
	return &model.WithdrawResponse{
		Wallet:        *resp,
		TransactionID: row.ID,
		Held:          false,
	}, nil
}

// ConfirmFeePayment is the event-driven transition out of the fee gate: it
// records the verification, releases every held withdrawal and completes the
// pending rows, all in one unit of work. Replays record nothing and release
// nothing.
func (s *ledgerService) ConfirmFeePayment(ctx context.Context, userID uuid.UUID, reference string) error {
	const op = "ledger.ConfirmFeePayment"

	pendingID, err := s.cat.StatusID(model.StatusPending)
	if err != nil {
		return err
	}
	withdrawID, err := s.cat.TypeID(model.TypeWithdraw)
	if err != nil {
		return err
	}
	completedID, err := s.cat.StatusID(model.StatusCompleted)
	if err != nil {
		return err
	}
	failedID, err := s.cat.StatusID(model.StatusFailed)
	if err != nil {
		return err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return errors.WrapInternal(op, err)
	}
	defer tx.Rollback()

	recorded, err := tx.RecordFeeVerificationTx(ctx, userID, reference)
	if err != nil {
		return errors.WrapInternal(op, err)
	}
	if recorded == 0 {
		// Already verified: a replayed confirmation releases nothing.
		s.log.Infof("fee confirmation replay ignored, user=%s reference=%s", userID, reference)
		return nil
	}

	// The held rows are read inside the unit of work, after the verification
	// is recorded: a withdrawal that committed while this event was in flight
	// is still seen and released, never stranded in pending_balance.
	held, err := tx.GetTransactionsByStatusAndTypeTx(ctx, userID, pendingID, withdrawID)
	if err != nil {
		return errors.WrapInternal(op, err)
	}

	now := time.Now().UTC()
	for i := range held {
		h := &held[i]
		if h.FromWalletID == nil {
			continue
		}
		released, err := tx.ReleasePendingTx(ctx, *h.FromWalletID, h.Amount)
		if err != nil {
			return errors.WrapInternal(op, err)
		}
		if released == 1 {
			if _, err := tx.SetTransactionStatusTx(ctx, h.ID, completedID, &now); err != nil {
				return errors.WrapInternal(op, err)
			}
		} else {
			// Releasing would drive the balance negative; fail the held row
			// rather than break the balance invariant.
			s.log.Warn("held withdrawal could not be released, marking failed: ", h.ID)
			if _, err := tx.SetTransactionStatusTx(ctx, h.ID, failedID, &now); err != nil {
				return errors.WrapInternal(op, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapInternal(op, err)
	}
	s.log.Infof("fee verification confirmed, user=%s released=%d", userID, len(held))
	return nil
}

func (s *ledgerService) Balances(ctx context.Context, userID uuid.UUID) ([]model.WalletResponse, error) {
	const op = "ledger.Balances"

	wallets, err := s.walletRepo.GetWalletsByUser(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	hidden, err := s.prefRepo.HiddenCurrencies(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	codes, err := s.currencyCodes(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	responses := make([]model.WalletResponse, 0, len(wallets))
	for i := range wallets {
		w := &wallets[i]
		if hidden[w.CurrencyID] {
			continue
		}
		responses = append(responses, *walletResponse(w, codes[w.CurrencyID]))
	}
	return responses, nil
}

func (s *ledgerService) History(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]model.TransactionResponse, error) {
	const op = "ledger.History"

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	transactions, err := s.txRepo.GetTransactionsByUser(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}
	codes, err := s.currencyCodes(ctx)
	if err != nil {
		return nil, errors.WrapInternal(op, err)
	}

	responses := make([]model.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		t := &transactions[i]
		txType, _ := s.cat.TypeCode(t.TransactionTypeID)
		status, _ := s.cat.StatusCode(t.StatusID)
		resp := model.TransactionResponse{
			ID:          t.ID,
			Type:        txType,
			Status:      status,
			Currency:    codes[t.CurrencyID],
			Amount:      t.Amount,
			Fee:         t.Fee,
			NetAmount:   t.NetAmount,
			Description: t.Description,
			Metadata:    t.Metadata,
			CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.CompletedAt != nil {
			resp.CompletedAt = t.CompletedAt.UTC().Format(time.RFC3339)
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *ledgerService) currencyCodes(ctx context.Context) (map[uuid.UUID]string, error) {
	currencies, err := s.currencyRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	codes := make(map[uuid.UUID]string, len(currencies))
	for _, c := range currencies {
		codes[c.ID] = c.Code
	}
	return codes, nil
}

func walletResponse(w *model.Wallet, currencyCode string) *model.WalletResponse {
	return &model.WalletResponse{
		ID:               w.ID,
		Currency:         currencyCode,
		Balance:          w.Balance,
		AvailableBalance: w.AvailableBalance,
		PendingBalance:   w.PendingBalance,
		WalletAddress:    w.WalletAddress,
	}
}
