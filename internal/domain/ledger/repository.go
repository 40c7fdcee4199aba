package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountFilter represents filter options for account queries
type AccountFilter struct {
	Status   *AccountStatus
	Search   string
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultAccountFilter returns a filter with default values
func DefaultAccountFilter() AccountFilter {
	return AccountFilter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// EntryFilter represents filter options for ledger entry queries
type EntryFilter struct {
	Category  *EntryCategory
	Reference string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// DefaultEntryFilter returns a filter with default values
func DefaultEntryFilter() EntryFilter {
	return EntryFilter{
		Page:     1,
		PageSize: 50,
	}
}

// AccountRepository defines persistence operations for accounts
type AccountRepository interface {
	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByIDForUpdate finds an account by ID taking a row lock.
	// Must be called inside a transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByName finds an account by its unique name
	FindByName(ctx context.Context, name string) (*Account, error)

	// FindAll finds accounts matching the filter
	FindAll(ctx context.Context, filter AccountFilter) ([]Account, error)

	// Count counts accounts matching the filter
	Count(ctx context.Context, filter AccountFilter) (int64, error)

	// Save persists an account (create or update)
	Save(ctx context.Context, account *Account) error

	// SaveWithLock persists an account with optimistic version checking
	SaveWithLock(ctx context.Context, account *Account) error

	// TotalActiveBalance sums the balances of all active accounts
	TotalActiveBalance(ctx context.Context) (decimal.Decimal, error)
}

// LedgerEntryRepository defines persistence operations for audit entries
type LedgerEntryRepository interface {
	// Create inserts a new entry. Entries are never updated or deleted.
	Create(ctx context.Context, entry *LedgerEntry) error

	// FindByAccount finds entries for an account, newest first
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter EntryFilter) ([]LedgerEntry, error)

	// CountByAccount counts entries for an account matching the filter
	CountByAccount(ctx context.Context, accountID uuid.UUID, filter EntryFilter) (int64, error)

	// SumByAccount sums the signed amounts of all entries for an account
	SumByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}
