// Package ledger contains the cash account and audit trail aggregates.
package ledger

import (
	"fmt"

	"time"

	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/domain/shared/valueobject"
)

// AccountStatus represents the lifecycle status of a cash account
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusClosed AccountStatus = "CLOSED"
)

// IsValid checks if the status is a known value
func (s AccountStatus) IsValid() bool {
	return s == AccountStatusActive || s == AccountStatusClosed
}

// Account represents a named cash account aggregate root.
// Its balance is only ever mutated through the ledger operations,
// each of which records a LedgerEntry in the same transaction.
type Account struct {
	shared.BaseAggregateRoot
	Name        string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string          `gorm:"type:varchar(500)"`
	Balance     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status      AccountStatus   `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new active account with an optional opening balance
func NewAccount(name, description string, openingBalance valueobject.Money) (*Account, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot exceed 100 characters")
	}
	if openingBalance.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Opening balance cannot be negative")
	}

	a := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Description:       description,
		Balance:           openingBalance.Amount(),
		Status:            AccountStatusActive,
	}

	a.AddDomainEvent(NewAccountCreatedEvent(a))

	return a, nil
}

// Credit increases the balance by the given amount
func (a *Account) Credit(amount valueobject.Money) error {
	if !a.IsActive() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot credit account in %s status", a.Status))
	}
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount.Amount())
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// Debit decreases the balance by the given amount.
// The balance is never allowed to go negative.
func (a *Account) Debit(amount valueobject.Money) error {
	if !a.IsActive() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot debit account in %s status", a.Status))
	}
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	if amount.Amount().GreaterThan(a.Balance) {
		return shared.NewDomainError("INSUFFICIENT_BALANCE",
			fmt.Sprintf("Insufficient balance: available %.2f, required %.2f",
				a.Balance.InexactFloat64(), amount.Amount().InexactFloat64()))
	}

	a.Balance = a.Balance.Sub(amount.Amount())
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// AdjustTo sets the balance to a new non-negative value and returns the
// signed delta applied. Used for manual corrections; the caller records
// the matching adjustment entry.
func (a *Account) AdjustTo(newBalance valueobject.Money) (decimal.Decimal, error) {
	if !a.IsActive() {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot adjust account in %s status", a.Status))
	}
	if newBalance.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Adjusted balance cannot be negative")
	}

	delta := newBalance.Amount().Sub(a.Balance)
	a.Balance = newBalance.Amount()
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return delta, nil
}

// Close marks the account as closed. Only zero-balance accounts can be
// closed; the row is kept for audit.
func (a *Account) Close() error {
	if !a.IsActive() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close account in %s status", a.Status))
	}
	if !a.Balance.IsZero() {
		return shared.ErrNonZeroBalance
	}

	a.Status = AccountStatusClosed
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountClosedEvent(a))

	return nil
}

// GetBalanceMoney returns the balance as Money
func (a *Account) GetBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(a.Balance)
}

// IsActive returns true if the account is active
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// IsClosed returns true if the account is closed
func (a *Account) IsClosed() bool {
	return a.Status == AccountStatusClosed
}
