// Package ledger implements the cash account use cases: deposits,
// withdrawals, transfers, adjustments, and the audit trail queries.
package ledger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/ledger"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/domain/shared/valueobject"
	"github.com/terraloan/backend/internal/infrastructure/telemetry"
)

// Service handles all cash account operations. Every mutation runs in
// one transaction, takes a row lock on the affected accounts, and
// writes a matching audit entry.
type Service struct {
	accountRepo ledger.AccountRepository
	entryRepo   ledger.LedgerEntryRepository
	txManager   shared.TransactionManager
}

// NewService creates a new ledger Service
func NewService(
	accountRepo ledger.AccountRepository,
	entryRepo ledger.LedgerEntryRepository,
	txManager shared.TransactionManager,
) *Service {
	return &Service{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		txManager:   txManager,
	}
}

// CreateAccountRequest carries the inputs for account creation
type CreateAccountRequest struct {
	Name           string
	Description    string
	OpeningBalance decimal.Decimal
	Actor          shared.Actor
}

// MutationResult describes a single-account balance mutation
type MutationResult struct {
	EntryID       uuid.UUID       `json:"entry_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// TransferResult describes a completed transfer
type TransferResult struct {
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	FromBalance   decimal.Decimal `json:"from_balance"`
	ToBalance     decimal.Decimal `json:"to_balance"`
	OutEntryID    uuid.UUID       `json:"out_entry_id"`
	InEntryID     uuid.UUID       `json:"in_entry_id"`
}

// CreateAccount creates a new account. A positive opening balance is
// recorded as an OPENING_BALANCE entry.
func (s *Service) CreateAccount(ctx context.Context, req CreateAccountRequest) (*ledger.Account, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_account")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountName, req.Name,
		telemetry.SpanAttrActor, req.Actor.Name,
	)

	if req.OpeningBalance.IsNegative() {
		err := shared.NewDomainError("INVALID_AMOUNT", "Opening balance cannot be negative")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var account *ledger.Account
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		existing, err := s.accountRepo.FindByName(ctx, req.Name)
		if err != nil {
			return fmt.Errorf("failed to check account name: %w", err)
		}
		if existing != nil {
			return shared.NewDomainError("ALREADY_EXISTS",
				fmt.Sprintf("Account %q already exists", req.Name))
		}

		account, err = ledger.NewAccount(req.Name, req.Description,
			valueobject.NewMoneyPHP(req.OpeningBalance))
		if err != nil {
			return err
		}
		if err := s.accountRepo.Save(ctx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		if req.OpeningBalance.IsPositive() {
			entry, err := ledger.NewLedgerEntry(account, ledger.EntryOpeningBalance,
				req.OpeningBalance, "Opening balance", req.Actor)
			if err != nil {
				return err
			}
			if err := s.entryRepo.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to record opening balance: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return account, nil
}

// Deposit credits an account. Closed or missing accounts both surface
// as ACCOUNT_NOT_FOUND.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, note string, actor shared.Actor) (*MutationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "deposit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrAmount, amount.String(),
		telemetry.SpanAttrActor, actor.Name,
	)

	if !amount.IsPositive() {
		telemetry.RecordError(span, shared.ErrInvalidAmount)
		return nil, shared.ErrInvalidAmount
	}

	result, err := s.mutate(ctx, accountID, ledger.EntryDeposit, amount, note, "", actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

// Withdraw debits an account. Fails with INSUFFICIENT_BALANCE when the
// amount exceeds the current balance.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, note string, actor shared.Actor) (*MutationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "withdraw")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrAmount, amount.String(),
		telemetry.SpanAttrActor, actor.Name,
	)

	if !amount.IsPositive() {
		telemetry.RecordError(span, shared.ErrInvalidAmount)
		return nil, shared.ErrInvalidAmount
	}

	result, err := s.mutate(ctx, accountID, ledger.EntryWithdrawal, amount.Neg(), note, "", actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

// FundLoan debits the funding account for a loan disbursement. It is
// called from the loan approval transaction; the entry is tagged with
// the loan number for reconciliation.
func (s *Service) FundLoan(ctx context.Context, accountID uuid.UUID, principal decimal.Decimal, loanNumber string, actor shared.Actor) (*MutationResult, error) {
	if !principal.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	note := fmt.Sprintf("Loan funding %s", loanNumber)
	return s.mutate(ctx, accountID, ledger.EntryLoanFunding, principal.Neg(), note, loanNumber, actor)
}

// ReceiveRepayment credits an account with a loan repayment, tagged
// with the loan number.
func (s *Service) ReceiveRepayment(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, loanNumber string, actor shared.Actor) (*MutationResult, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	note := fmt.Sprintf("Loan repayment %s", loanNumber)
	return s.mutate(ctx, accountID, ledger.EntryLoanRepayment, amount, note, loanNumber, actor)
}

// mutate applies a single signed movement to one account under a row
// lock and records the audit entry in the same transaction.
func (s *Service) mutate(ctx context.Context, accountID uuid.UUID, category ledger.EntryCategory, signedAmount decimal.Decimal, note, reference string, actor shared.Actor) (*MutationResult, error) {
	if signedAmount.IsZero() {
		return nil, shared.ErrInvalidAmount
	}

	var result *MutationResult
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		account, err := s.findActiveForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		before := account.Balance
		if signedAmount.IsPositive() {
			err = account.Credit(valueobject.NewMoneyPHP(signedAmount))
		} else {
			err = account.Debit(valueobject.NewMoneyPHP(signedAmount.Neg()))
		}
		if err != nil {
			return err
		}

		if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		entry, err := ledger.NewLedgerEntry(account, category, signedAmount, note, actor)
		if err != nil {
			return err
		}
		if reference != "" {
			entry.WithReference(reference)
		}
		if err := s.entryRepo.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to record ledger entry: %w", err)
		}

		result = &MutationResult{
			EntryID:       entry.ID,
			AccountID:     account.ID,
			Amount:        signedAmount,
			BalanceBefore: before,
			BalanceAfter:  account.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Transfer moves money between two accounts atomically. Both rows are
// locked in ID order so concurrent opposing transfers cannot deadlock.
func (s *Service) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, note string, actor shared.Actor) (*TransferResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "transfer")
	defer span.End()
	telemetry.SetAttributes(span,
		"from_account_id", fromID.String(),
		"to_account_id", toID.String(),
		telemetry.SpanAttrAmount, amount.String(),
		telemetry.SpanAttrActor, actor.Name,
	)

	if fromID == toID {
		telemetry.RecordError(span, shared.ErrSameAccount)
		return nil, shared.ErrSameAccount
	}
	if !amount.IsPositive() {
		telemetry.RecordError(span, shared.ErrInvalidAmount)
		return nil, shared.ErrInvalidAmount
	}

	var result *TransferResult
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		// Lock both rows in a fixed order to avoid deadlock
		firstID, secondID := fromID, toID
		if bytes.Compare(toID[:], fromID[:]) < 0 {
			firstID, secondID = toID, fromID
		}
		first, err := s.findActiveForUpdate(ctx, firstID)
		if err != nil {
			return err
		}
		second, err := s.findActiveForUpdate(ctx, secondID)
		if err != nil {
			return err
		}

		from, to := first, second
		if from.ID != fromID {
			from, to = second, first
		}

		money := valueobject.NewMoneyPHP(amount)
		if err := from.Debit(money); err != nil {
			return err
		}
		if err := to.Credit(money); err != nil {
			return err
		}

		if err := s.accountRepo.SaveWithLock(ctx, from); err != nil {
			return fmt.Errorf("failed to save source account: %w", err)
		}
		if err := s.accountRepo.SaveWithLock(ctx, to); err != nil {
			return fmt.Errorf("failed to save destination account: %w", err)
		}

		outEntry, err := ledger.NewLedgerEntry(from, ledger.EntryTransferOut, amount.Neg(), note, actor)
		if err != nil {
			return err
		}
		if err := s.entryRepo.Create(ctx, outEntry); err != nil {
			return fmt.Errorf("failed to record transfer out: %w", err)
		}
		inEntry, err := ledger.NewLedgerEntry(to, ledger.EntryTransferIn, amount, note, actor)
		if err != nil {
			return err
		}
		if err := s.entryRepo.Create(ctx, inEntry); err != nil {
			return fmt.Errorf("failed to record transfer in: %w", err)
		}

		result = &TransferResult{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			Amount:        amount,
			FromBalance:   from.Balance,
			ToBalance:     to.Balance,
			OutEntryID:    outEntry.ID,
			InEntryID:     inEntry.ID,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return result, nil
}

// AdjustBalance sets an account's balance to a new value and records
// the signed delta as an ADJUSTMENT entry. History is never rewritten.
func (s *Service) AdjustBalance(ctx context.Context, accountID uuid.UUID, newBalance decimal.Decimal, note string, actor shared.Actor) (*MutationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "adjust_balance")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrAmount, newBalance.String(),
		telemetry.SpanAttrActor, actor.Name,
	)

	var result *MutationResult
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		account, err := s.findActiveForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		before := account.Balance
		delta, err := account.AdjustTo(valueobject.NewMoneyPHP(newBalance))
		if err != nil {
			return err
		}

		if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		entry, err := ledger.NewLedgerEntry(account, ledger.EntryAdjustment, delta, note, actor)
		if err != nil {
			return err
		}
		if err := s.entryRepo.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to record adjustment: %w", err)
		}

		result = &MutationResult{
			EntryID:       entry.ID,
			AccountID:     account.ID,
			Amount:        delta,
			BalanceBefore: before,
			BalanceAfter:  account.Balance,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return result, nil
}

// CloseAccount closes a zero-balance account. The row and its entries
// stay visible for audit.
func (s *Service) CloseAccount(ctx context.Context, accountID uuid.UUID, actor shared.Actor) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "close_account")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrActor, actor.Name,
	)

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		account, err := s.findActiveForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if err := account.Close(); err != nil {
			return err
		}
		if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		entry, err := ledger.NewLedgerEntry(account, ledger.EntryAccountClosed,
			decimal.Zero, "Account closed", actor)
		if err != nil {
			return err
		}
		if err := s.entryRepo.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to record account closure: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.SetOK(span)
	return nil
}

// GetAccount returns an account by ID
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND", "Account not found")
	}
	return account, nil
}

// ListAccounts returns accounts matching the filter with a total count
func (s *Service) ListAccounts(ctx context.Context, filter ledger.AccountFilter) (shared.Paginated[ledger.Account], error) {
	accounts, err := s.accountRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ledger.Account]{}, fmt.Errorf("failed to list accounts: %w", err)
	}
	total, err := s.accountRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[ledger.Account]{}, fmt.Errorf("failed to count accounts: %w", err)
	}
	return shared.NewPaginated(accounts, total, filter.Page, filter.PageSize), nil
}

// ListEntries returns the audit trail for an account, newest first
func (s *Service) ListEntries(ctx context.Context, accountID uuid.UUID, filter ledger.EntryFilter) (shared.Paginated[ledger.LedgerEntry], error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return shared.Paginated[ledger.LedgerEntry]{}, err
	}
	entries, err := s.entryRepo.FindByAccount(ctx, accountID, filter)
	if err != nil {
		return shared.Paginated[ledger.LedgerEntry]{}, fmt.Errorf("failed to list entries: %w", err)
	}
	total, err := s.entryRepo.CountByAccount(ctx, accountID, filter)
	if err != nil {
		return shared.Paginated[ledger.LedgerEntry]{}, fmt.Errorf("failed to count entries: %w", err)
	}
	return shared.NewPaginated(entries, total, filter.Page, filter.PageSize), nil
}

// TotalBalance sums the balances of all active accounts
func (s *Service) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.accountRepo.TotalActiveBalance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute total balance: %w", err)
	}
	return total, nil
}

// findActiveForUpdate loads an account under a row lock; missing and
// closed accounts both surface as ACCOUNT_NOT_FOUND.
func (s *Service) findActiveForUpdate(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	account, err := s.accountRepo.FindByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil || !account.IsActive() {
		return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND", "Account not found")
	}
	return account, nil
}
