package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/ledger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ensure GormAccountRepository implements ledger.AccountRepository
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var account ledger.Account
	if err := conn(ctx, r.db).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByIDForUpdate finds an account by ID taking a FOR UPDATE row
// lock. Only meaningful inside a transaction.
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var account ledger.Account
	if err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByName finds an account by its unique name
func (r *GormAccountRepository) FindByName(ctx context.Context, name string) (*ledger.Account, error) {
	var account ledger.Account
	if err := conn(ctx, r.db).First(&account, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindAll finds accounts matching the filter
func (r *GormAccountRepository) FindAll(ctx context.Context, filter ledger.AccountFilter) ([]ledger.Account, error) {
	var accounts []ledger.Account
	query := r.applyFilter(conn(ctx, r.db).Model(&ledger.Account{}), filter)

	orderBy := ValidateSortField(filter.OrderBy, AccountSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Count counts accounts matching the filter
func (r *GormAccountRepository) Count(ctx context.Context, filter ledger.AccountFilter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&ledger.Account{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists an account (create or update)
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return conn(ctx, r.db).Save(account).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormAccountRepository) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	result := conn(ctx, r.db).
		Model(account).
		Where("id = ? AND version = ?", account.ID, account.Version-1).
		Updates(account)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("optimistic lock error: version mismatch")
	}
	return nil
}

// TotalActiveBalance sums the balances of all active accounts
func (r *GormAccountRepository) TotalActiveBalance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := conn(ctx, r.db).
		Model(&ledger.Account{}).
		Where("status = ?", ledger.AccountStatusActive).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *GormAccountRepository) applyFilter(query *gorm.DB, filter ledger.AccountFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	return query
}
