package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/terraloan/backend/internal/domain/lending"
	"gorm.io/gorm"
)

// Ensure GormInstallmentRepository implements lending.InstallmentRepository
var _ lending.InstallmentRepository = (*GormInstallmentRepository)(nil)

// GormInstallmentRepository implements lending.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByLoan returns a loan's schedule ordered by sequence
func (r *GormInstallmentRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]lending.Installment, error) {
	var installments []lending.Installment
	err := conn(ctx, r.db).
		Where("loan_id = ?", loanID).
		Order("sequence ASC").
		Find(&installments).Error
	if err != nil {
		return nil, err
	}
	return installments, nil
}

// ReplaceForLoan swaps a loan's schedule: all existing rows are deleted
// and the given rows inserted. Must run inside the transaction that
// changes the loan's terms.
func (r *GormInstallmentRepository) ReplaceForLoan(ctx context.Context, loanID uuid.UUID, installments []lending.Installment) error {
	db := conn(ctx, r.db)
	if err := db.Delete(&lending.Installment{}, "loan_id = ?", loanID).Error; err != nil {
		return err
	}
	if len(installments) == 0 {
		return nil
	}
	return db.CreateInBatches(installments, 100).Error
}

// DeleteByLoan removes all schedule rows for a loan
func (r *GormInstallmentRepository) DeleteByLoan(ctx context.Context, loanID uuid.UUID) error {
	return conn(ctx, r.db).Delete(&lending.Installment{}, "loan_id = ?", loanID).Error
}

// Save persists a single installment (payment or late-fee updates)
func (r *GormInstallmentRepository) Save(ctx context.Context, installment *lending.Installment) error {
	return conn(ctx, r.db).Save(installment).Error
}
