package lending

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/domain/shared/valueobject"
)

// Installment is one row of a loan's payment schedule. The full set for
// a loan is regenerated (delete all, insert all) whenever the loan's
// terms change, so rows are always consistent with the current terms.
type Installment struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	LoanID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_installment_loan_seq,priority:1"`
	Sequence int       `gorm:"not null;uniqueIndex:idx_installment_loan_seq,priority:2"`
	DueDate  time.Time `gorm:"not null;index"`

	PrincipalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InterestAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`

	Paid       bool `gorm:"not null;default:false"`
	PaidAmount decimal.Decimal `gorm:"type:decimal(18,4)"`
	PaidAt     *time.Time

	Late     bool            `gorm:"not null;default:false"`
	LateFee  decimal.Decimal `gorm:"type:decimal(18,4)"`
	LateDays int             `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Installment) TableName() string {
	return "installments"
}

// NewInstallment creates an unpaid installment from a schedule line
func NewInstallment(loanID uuid.UUID, line ScheduleLine) (*Installment, error) {
	if loanID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOAN", "Loan ID cannot be empty")
	}
	if line.Sequence <= 0 {
		return nil, shared.NewDomainError("INVALID_SEQUENCE", "Installment sequence must be positive")
	}

	return &Installment{
		ID:              uuid.New(),
		LoanID:          loanID,
		Sequence:        line.Sequence,
		DueDate:         line.DueDate,
		PrincipalAmount: line.Principal,
		InterestAmount:  line.Interest,
		TotalAmount:     line.Total,
		PaidAmount:      decimal.Zero,
		LateFee:         decimal.Zero,
		CreatedAt:       time.Now(),
	}, nil
}

// MarkPaid records a payment against the installment
func (i *Installment) MarkPaid(amount valueobject.Money, paidAt time.Time) error {
	if i.Paid {
		return shared.NewDomainError("ALREADY_PAID", "Installment is already paid")
	}
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount
	}

	i.Paid = true
	i.PaidAmount = amount.Amount()
	i.PaidAt = &paidAt

	if paidAt.After(i.DueDate) {
		i.Late = true
		i.LateDays = int(paidAt.Sub(i.DueDate).Hours() / 24)
	}

	return nil
}

// ApplyLateFee records a late fee on an overdue installment
func (i *Installment) ApplyLateFee(fee valueobject.Money, asOf time.Time) error {
	if i.Paid {
		return shared.NewDomainError("ALREADY_PAID", "Cannot apply late fee to a paid installment")
	}
	if fee.IsNegative() {
		return shared.NewDomainError("INVALID_FEE", "Late fee cannot be negative")
	}
	if !asOf.After(i.DueDate) {
		return shared.NewDomainError("NOT_OVERDUE", "Installment is not overdue")
	}

	i.Late = true
	i.LateFee = fee.Amount()
	i.LateDays = int(asOf.Sub(i.DueDate).Hours() / 24)

	return nil
}

// IsOverdue returns true if the installment is unpaid and past due
func (i *Installment) IsOverdue(asOf time.Time) bool {
	return !i.Paid && asOf.After(i.DueDate)
}

// GetTotalAmountMoney returns the installment total as Money
func (i *Installment) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(i.TotalAmount)
}
