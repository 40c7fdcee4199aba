package lending

import (
	"context"

	"github.com/google/uuid"
)

// ApplicationFilter represents filter options for application queries
type ApplicationFilter struct {
	Status   *ApplicationStatus
	Search   string
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultApplicationFilter returns a filter with default values
func DefaultApplicationFilter() ApplicationFilter {
	return ApplicationFilter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// LoanFilter represents filter options for loan queries
type LoanFilter struct {
	Status   *LoanStatus
	Search   string
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultLoanFilter returns a filter with default values
func DefaultLoanFilter() LoanFilter {
	return LoanFilter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// ApplicationRepository defines persistence operations for loan applications
type ApplicationRepository interface {
	// FindByID finds an application by ID
	FindByID(ctx context.Context, id uuid.UUID) (*LoanApplication, error)

	// FindByNumber finds an application by its application number
	FindByNumber(ctx context.Context, number string) (*LoanApplication, error)

	// FindAll finds applications matching the filter
	FindAll(ctx context.Context, filter ApplicationFilter) ([]LoanApplication, error)

	// Count counts applications matching the filter
	Count(ctx context.Context, filter ApplicationFilter) (int64, error)

	// Save persists an application (create or update)
	Save(ctx context.Context, app *LoanApplication) error

	// Delete hard-removes an application
	Delete(ctx context.Context, id uuid.UUID) error
}

// LoanRepository defines persistence operations for loans
type LoanRepository interface {
	// FindByID finds a loan by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Loan, error)

	// FindByNumber finds a loan by its loan number
	FindByNumber(ctx context.Context, number string) (*Loan, error)

	// FindByApplicationID finds the loan created from an application
	FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*Loan, error)

	// FindAll finds loans matching the filter
	FindAll(ctx context.Context, filter LoanFilter) ([]Loan, error)

	// Count counts loans matching the filter
	Count(ctx context.Context, filter LoanFilter) (int64, error)

	// Save persists a loan (create or update)
	Save(ctx context.Context, loan *Loan) error

	// Delete hard-removes a loan
	Delete(ctx context.Context, id uuid.UUID) error
}

// InstallmentRepository defines persistence operations for schedules
type InstallmentRepository interface {
	// FindByLoan returns all installments for a loan ordered by sequence
	FindByLoan(ctx context.Context, loanID uuid.UUID) ([]Installment, error)

	// ReplaceForLoan atomically replaces a loan's schedule: all existing
	// rows are deleted and the given rows inserted. Must run inside the
	// transaction that changes the loan's terms.
	ReplaceForLoan(ctx context.Context, loanID uuid.UUID, installments []Installment) error

	// DeleteByLoan removes all installments for a loan
	DeleteByLoan(ctx context.Context, loanID uuid.UUID) error

	// Save persists a single installment (payment updates)
	Save(ctx context.Context, installment *Installment) error
}
