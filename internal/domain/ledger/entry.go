package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/domain/shared/valueobject"
)

// EntryCategory classifies a ledger entry
type EntryCategory string

const (
	EntryDeposit        EntryCategory = "DEPOSIT"
	EntryWithdrawal     EntryCategory = "WITHDRAWAL"
	EntryTransferIn     EntryCategory = "TRANSFER_IN"
	EntryTransferOut    EntryCategory = "TRANSFER_OUT"
	EntryOpeningBalance EntryCategory = "OPENING_BALANCE"
	EntryAdjustment     EntryCategory = "ADJUSTMENT"
	EntryLoanFunding    EntryCategory = "LOAN_FUNDING"
	EntryLoanRepayment  EntryCategory = "LOAN_REPAYMENT"
	EntryAccountClosed  EntryCategory = "ACCOUNT_CLOSED"
)

// IsValid checks if the category is a known value
func (c EntryCategory) IsValid() bool {
	switch c {
	case EntryDeposit, EntryWithdrawal, EntryTransferIn, EntryTransferOut,
		EntryOpeningBalance, EntryAdjustment, EntryLoanFunding,
		EntryLoanRepayment, EntryAccountClosed:
		return true
	}
	return false
}

// LedgerEntry is an immutable audit row recording a single balance
// movement. Entries are only ever inserted; corrections are new
// ADJUSTMENT entries, never updates.
type LedgerEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`
	// AccountID references the account the movement applies to
	AccountID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Category  EntryCategory `gorm:"type:varchar(30);not null;index"`
	// Amount is signed: positive credits the account, negative debits it
	Amount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	// ResultingBalance is the account balance immediately after this entry
	ResultingBalance decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Note             string          `gorm:"type:varchar(500)"`
	// Reference carries an external document reference (e.g. loan number)
	Reference string     `gorm:"type:varchar(50);index"`
	ActorID   *uuid.UUID `gorm:"type:uuid"`
	ActorName string     `gorm:"type:varchar(100)"`
	CreatedAt time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry creates an audit entry for a balance movement that has
// already been applied to the account.
func NewLedgerEntry(
	account *Account,
	category EntryCategory,
	signedAmount decimal.Decimal,
	note string,
	actor shared.Actor,
) (*LedgerEntry, error) {
	if account == nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account is required")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Entry category is not valid")
	}
	if len(note) > 500 {
		return nil, shared.NewDomainError("INVALID_NOTE", "Note cannot exceed 500 characters")
	}

	e := &LedgerEntry{
		ID:               uuid.New(),
		AccountID:        account.ID,
		Category:         category,
		Amount:           signedAmount,
		ResultingBalance: account.Balance,
		Note:             note,
		ActorName:        actor.Name,
		CreatedAt:        time.Now(),
	}
	if actor.ID != uuid.Nil {
		id := actor.ID
		e.ActorID = &id
	}

	return e, nil
}

// WithReference sets an external document reference on the entry
func (e *LedgerEntry) WithReference(reference string) *LedgerEntry {
	e.Reference = reference
	return e
}

// GetAmountMoney returns the signed amount as Money
func (e *LedgerEntry) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(e.Amount)
}

// GetResultingBalanceMoney returns the post-entry balance as Money
func (e *LedgerEntry) GetResultingBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(e.ResultingBalance)
}

// IsCredit returns true if the entry increased the balance
func (e *LedgerEntry) IsCredit() bool {
	return e.Amount.IsPositive()
}

// IsDebit returns true if the entry decreased the balance
func (e *LedgerEntry) IsDebit() bool {
	return e.Amount.IsNegative()
}
