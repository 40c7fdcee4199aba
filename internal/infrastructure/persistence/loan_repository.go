package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/terraloan/backend/internal/domain/lending"
	"gorm.io/gorm"
)

// Ensure GormLoanRepository implements lending.LoanRepository
var _ lending.LoanRepository = (*GormLoanRepository)(nil)

// GormLoanRepository implements lending.LoanRepository using GORM
type GormLoanRepository struct {
	db *gorm.DB
}

// NewGormLoanRepository creates a new GormLoanRepository
func NewGormLoanRepository(db *gorm.DB) *GormLoanRepository {
	return &GormLoanRepository{db: db}
}

// FindByID finds a loan by ID
func (r *GormLoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*lending.Loan, error) {
	var loan lending.Loan
	if err := conn(ctx, r.db).First(&loan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loan, nil
}

// FindByNumber finds a loan by its loan number
func (r *GormLoanRepository) FindByNumber(ctx context.Context, number string) (*lending.Loan, error) {
	var loan lending.Loan
	if err := conn(ctx, r.db).First(&loan, "loan_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loan, nil
}

// FindByApplicationID finds the loan created from an application
func (r *GormLoanRepository) FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*lending.Loan, error) {
	var loan lending.Loan
	if err := conn(ctx, r.db).First(&loan, "application_id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loan, nil
}

// FindAll finds loans matching the filter
func (r *GormLoanRepository) FindAll(ctx context.Context, filter lending.LoanFilter) ([]lending.Loan, error) {
	var loans []lending.Loan
	query := r.applyFilter(conn(ctx, r.db).Model(&lending.Loan{}), filter)

	orderBy := ValidateSortField(filter.OrderBy, LoanSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// Count counts loans matching the filter
func (r *GormLoanRepository) Count(ctx context.Context, filter lending.LoanFilter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&lending.Loan{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists a loan (create or update)
func (r *GormLoanRepository) Save(ctx context.Context, loan *lending.Loan) error {
	return conn(ctx, r.db).Save(loan).Error
}

// Delete hard-removes a loan
func (r *GormLoanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Delete(&lending.Loan{}, "id = ?", id).Error
}

func (r *GormLoanRepository) applyFilter(query *gorm.DB, filter lending.LoanFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("borrower_name ILIKE ? OR loan_number ILIKE ?", search, search)
	}
	return query
}
