package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/terraloan/backend/internal/domain/lending"
	"gorm.io/gorm"
)

// Ensure GormApplicationRepository implements lending.ApplicationRepository
var _ lending.ApplicationRepository = (*GormApplicationRepository)(nil)

// GormApplicationRepository implements lending.ApplicationRepository using GORM
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewGormApplicationRepository creates a new GormApplicationRepository
func NewGormApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// FindByID finds an application by ID
func (r *GormApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*lending.LoanApplication, error) {
	var app lending.LoanApplication
	if err := conn(ctx, r.db).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

// FindByNumber finds an application by its application number
func (r *GormApplicationRepository) FindByNumber(ctx context.Context, number string) (*lending.LoanApplication, error) {
	var app lending.LoanApplication
	if err := conn(ctx, r.db).First(&app, "application_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

// FindAll finds applications matching the filter
func (r *GormApplicationRepository) FindAll(ctx context.Context, filter lending.ApplicationFilter) ([]lending.LoanApplication, error) {
	var apps []lending.LoanApplication
	query := r.applyFilter(conn(ctx, r.db).Model(&lending.LoanApplication{}), filter)

	orderBy := ValidateSortField(filter.OrderBy, ApplicationSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// Count counts applications matching the filter
func (r *GormApplicationRepository) Count(ctx context.Context, filter lending.ApplicationFilter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&lending.LoanApplication{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists an application (create or update)
func (r *GormApplicationRepository) Save(ctx context.Context, app *lending.LoanApplication) error {
	return conn(ctx, r.db).Save(app).Error
}

// Delete hard-removes an application
func (r *GormApplicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Delete(&lending.LoanApplication{}, "id = ?", id).Error
}

func (r *GormApplicationRepository) applyFilter(query *gorm.DB, filter lending.ApplicationFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("borrower_name ILIKE ? OR application_number ILIKE ?", search, search)
	}
	return query
}
