package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/shared"
)

// AccountCreatedEvent is raised when a new account is created
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID      uuid.UUID       `json:"account_id"`
	AccountName    string          `json:"account_name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// EventType returns the event type name
func (e *AccountCreatedEvent) EventType() string {
	return "AccountCreated"
}

// NewAccountCreatedEvent creates a new AccountCreatedEvent
func NewAccountCreatedEvent(a *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountCreated", "Account", a.ID),
		AccountID:       a.ID,
		AccountName:     a.Name,
		OpeningBalance:  a.Balance,
	}
}

// AccountClosedEvent is raised when an account is closed
type AccountClosedEvent struct {
	shared.BaseDomainEvent
	AccountID   uuid.UUID `json:"account_id"`
	AccountName string    `json:"account_name"`
}

// EventType returns the event type name
func (e *AccountClosedEvent) EventType() string {
	return "AccountClosed"
}

// NewAccountClosedEvent creates a new AccountClosedEvent
func NewAccountClosedEvent(a *Account) *AccountClosedEvent {
	return &AccountClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountClosed", "Account", a.ID),
		AccountID:       a.ID,
		AccountName:     a.Name,
	}
}
