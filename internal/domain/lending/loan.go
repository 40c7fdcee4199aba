package lending

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/domain/shared/valueobject"
)

// LoanStatus represents the lifecycle status of a loan
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusCompleted LoanStatus = "COMPLETED"
	LoanStatusCancelled LoanStatus = "CANCELLED"
)

// IsValid checks if the status is a known value
func (s LoanStatus) IsValid() bool {
	return s == LoanStatusActive || s == LoanStatusCompleted || s == LoanStatusCancelled
}

// IsTerminal returns true for final statuses
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusCompleted || s == LoanStatusCancelled
}

// Loan represents a funded loan created from an approved application.
// Exactly one loan exists per application; re-approval updates terms in
// place rather than creating a second loan.
type Loan struct {
	shared.BaseAggregateRoot
	LoanNumber       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	ApplicationID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	BorrowerName     string          `gorm:"type:varchar(200);not null"`
	Status           LoanStatus      `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	Principal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InterestRate     decimal.Decimal `gorm:"type:decimal(8,4);not null"`
	TermMonths       int             `gorm:"not null"`
	MonthlyPayment   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaidInstallments int             `gorm:"not null;default:0"`
	ContractDate     time.Time       `gorm:"not null"`
	NextPaymentDate  *time.Time
	ExpiryDate       time.Time `gorm:"not null"`
	CancelReason     string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Loan) TableName() string {
	return "loans"
}

// NewLoan creates a new active loan from an approved application
func NewLoan(
	loanNumber string,
	applicationID uuid.UUID,
	borrowerName string,
	terms Terms,
	monthlyPayment decimal.Decimal,
	contractDate time.Time,
) (*Loan, error) {
	if loanNumber == "" {
		return nil, shared.NewDomainError("INVALID_LOAN_NUMBER", "Loan number cannot be empty")
	}
	if applicationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_APPLICATION", "Application ID cannot be empty")
	}
	if borrowerName == "" {
		return nil, shared.NewDomainError("INVALID_BORROWER", "Borrower name cannot be empty")
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if contractDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_CONTRACT_DATE", "Contract date is required")
	}

	firstDue := contractDate.AddDate(0, 1, 0)
	l := &Loan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		LoanNumber:        loanNumber,
		ApplicationID:     applicationID,
		BorrowerName:      borrowerName,
		Status:            LoanStatusActive,
		Principal:         terms.Amount,
		InterestRate:      terms.InterestRate,
		TermMonths:        terms.TermMonths,
		MonthlyPayment:    monthlyPayment,
		RemainingBalance:  monthlyPayment.Mul(decimal.NewFromInt(int64(terms.TermMonths))),
		ContractDate:      contractDate,
		NextPaymentDate:   &firstDue,
		ExpiryDate:        contractDate.AddDate(0, terms.TermMonths, 0),
	}

	return l, nil
}

// UpdateTerms replaces the loan's financial terms. The schedule must be
// regenerated by the caller in the same transaction.
func (l *Loan) UpdateTerms(terms Terms, monthlyPayment decimal.Decimal) error {
	if l.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot update loan in %s status", l.Status))
	}
	if err := terms.Validate(); err != nil {
		return err
	}

	l.Principal = terms.Amount
	l.InterestRate = terms.InterestRate
	l.TermMonths = terms.TermMonths
	l.MonthlyPayment = monthlyPayment
	l.RemainingBalance = monthlyPayment.Mul(decimal.NewFromInt(int64(terms.TermMonths))).
		Sub(monthlyPayment.Mul(decimal.NewFromInt(int64(l.PaidInstallments))))
	l.ExpiryDate = l.ContractDate.AddDate(0, terms.TermMonths, 0)
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// RecordPayment marks one installment paid and advances the next
// payment date. The loan completes when all installments are paid.
func (l *Loan) RecordPayment(amount valueobject.Money, nextDue *time.Time) error {
	if l.Status != LoanStatusActive {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot record payment on loan in %s status", l.Status))
	}
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}

	l.RemainingBalance = l.RemainingBalance.Sub(amount.Amount())
	if l.RemainingBalance.IsNegative() {
		l.RemainingBalance = decimal.Zero
	}
	l.PaidInstallments++
	l.NextPaymentDate = nextDue

	if l.PaidInstallments >= l.TermMonths {
		l.Status = LoanStatusCompleted
		l.NextPaymentDate = nil
	}

	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// Cancel marks the loan cancelled, used when its application is
// rejected on re-review or the record was created in error
func (l *Loan) Cancel(reason string) error {
	if l.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel loan in %s status", l.Status))
	}

	l.Status = LoanStatusCancelled
	l.CancelReason = reason
	l.NextPaymentDate = nil
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// GetPrincipalMoney returns the principal as Money
func (l *Loan) GetPrincipalMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(l.Principal)
}

// GetMonthlyPaymentMoney returns the monthly payment as Money
func (l *Loan) GetMonthlyPaymentMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(l.MonthlyPayment)
}

// GetRemainingBalanceMoney returns the remaining balance as Money
func (l *Loan) GetRemainingBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(l.RemainingBalance)
}

// IsActive returns true if the loan is active
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// IsCancelled returns true if the loan is cancelled
func (l *Loan) IsCancelled() bool {
	return l.Status == LoanStatusCancelled
}
