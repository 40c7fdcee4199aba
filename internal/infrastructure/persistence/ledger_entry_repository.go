package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// Ensure GormLedgerEntryRepository implements ledger.LedgerEntryRepository
var _ ledger.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)

// GormLedgerEntryRepository implements ledger.LedgerEntryRepository
// using GORM. Entries are append-only; there are no update or delete
// methods on purpose.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Create inserts a new audit entry
func (r *GormLedgerEntryRepository) Create(ctx context.Context, entry *ledger.LedgerEntry) error {
	return conn(ctx, r.db).Create(entry).Error
}

// FindByAccount finds entries for an account, newest first
func (r *GormLedgerEntryRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter ledger.EntryFilter) ([]ledger.LedgerEntry, error) {
	var entries []ledger.LedgerEntry
	query := r.applyFilter(conn(ctx, r.db).Model(&ledger.LedgerEntry{}), accountID, filter).
		Order("created_at DESC")

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByAccount counts entries for an account matching the filter
func (r *GormLedgerEntryRepository) CountByAccount(ctx context.Context, accountID uuid.UUID, filter ledger.EntryFilter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&ledger.LedgerEntry{}), accountID, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumByAccount sums the signed amounts of all entries for an account.
// Replaying the sum against a zero start reproduces the balance.
func (r *GormLedgerEntryRepository) SumByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := conn(ctx, r.db).
		Model(&ledger.LedgerEntry{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *GormLedgerEntryRepository) applyFilter(query *gorm.DB, accountID uuid.UUID, filter ledger.EntryFilter) *gorm.DB {
	query = query.Where("account_id = ?", accountID)
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Reference != "" {
		query = query.Where("reference = ?", filter.Reference)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}
