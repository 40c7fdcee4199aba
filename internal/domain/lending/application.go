// Package lending contains the loan application, loan, and installment
// schedule aggregates together with the amortization calculator.
package lending

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/domain/shared/valueobject"
)

// ApplicationStatus represents the review status of a loan application
type ApplicationStatus string

const (
	ApplicationStatusDraft       ApplicationStatus = "DRAFT"
	ApplicationStatusSubmitted   ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusApproved    ApplicationStatus = "APPROVED"
	ApplicationStatusRejected    ApplicationStatus = "REJECTED"
)

// IsValid checks if the status is a known value
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusDraft, ApplicationStatusSubmitted,
		ApplicationStatusUnderReview, ApplicationStatusApproved,
		ApplicationStatusRejected:
		return true
	}
	return false
}

// CanReview returns true if the application can move to review
func (s ApplicationStatus) CanReview() bool {
	switch s {
	case ApplicationStatusDraft, ApplicationStatusSubmitted, ApplicationStatusUnderReview:
		return true
	}
	return false
}

// CanApprove returns true if the application can be approved
func (s ApplicationStatus) CanApprove() bool {
	return s.CanReview()
}

// CanReject returns true if the application can be rejected
func (s ApplicationStatus) CanReject() bool {
	return s.CanReview()
}

// IsTerminal returns true for final statuses
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

// Terms bundles the financial terms of an application or loan
type Terms struct {
	Amount        decimal.Decimal
	InterestRate  decimal.Decimal
	TermMonths    int
	ProcessingFee decimal.Decimal
	ServiceFee    decimal.Decimal
}

// Validate checks the terms for internal consistency
func (t Terms) Validate() error {
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Loan amount must be positive")
	}
	if t.InterestRate.IsNegative() {
		return shared.NewDomainError("INVALID_RATE", "Interest rate cannot be negative")
	}
	if t.TermMonths <= 0 {
		return shared.NewDomainError("INVALID_TERM", "Term must be at least one month")
	}
	if t.ProcessingFee.IsNegative() || t.ServiceFee.IsNegative() {
		return shared.NewDomainError("INVALID_FEE", "Fees cannot be negative")
	}
	return nil
}

// TermsOverride is a patch applied to an application's stored terms at
// approval time. Nil fields keep the stored value.
type TermsOverride struct {
	Amount        *decimal.Decimal
	InterestRate  *decimal.Decimal
	TermMonths    *int
	ProcessingFee *decimal.Decimal
	ServiceFee    *decimal.Decimal
}

// ApplyTo merges the override onto the given terms
func (o TermsOverride) ApplyTo(t Terms) Terms {
	if o.Amount != nil {
		t.Amount = *o.Amount
	}
	if o.InterestRate != nil {
		t.InterestRate = *o.InterestRate
	}
	if o.TermMonths != nil {
		t.TermMonths = *o.TermMonths
	}
	if o.ProcessingFee != nil {
		t.ProcessingFee = *o.ProcessingFee
	}
	if o.ServiceFee != nil {
		t.ServiceFee = *o.ServiceFee
	}
	return t
}

// Collateral describes the property backing an application
type Collateral struct {
	PropertyType   string          `gorm:"type:varchar(50)"`
	TitleNumber    string          `gorm:"type:varchar(100)"`
	Location       string          `gorm:"type:varchar(300)"`
	AreaSqm        decimal.Decimal `gorm:"type:decimal(12,2)"`
	AppraisedValue decimal.Decimal `gorm:"type:decimal(18,4)"`
	ImageURL       string          `gorm:"type:varchar(500)"`
}

// LoanApplication represents a borrower's request for a loan.
// It moves DRAFT -> SUBMITTED -> UNDER_REVIEW -> APPROVED | REJECTED;
// approval produces (or updates) exactly one Loan.
type LoanApplication struct {
	shared.BaseAggregateRoot
	ApplicationNumber string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	Status            ApplicationStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	BorrowerName      string            `gorm:"type:varchar(200);not null"`
	BorrowerContact   string            `gorm:"type:varchar(100)"`
	AgentName         string            `gorm:"type:varchar(200)"`
	RequestedAmount   decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	ApprovedAmount    decimal.Decimal   `gorm:"type:decimal(18,4)"`
	InterestRate      decimal.Decimal   `gorm:"type:decimal(8,4);not null"`
	TermMonths        int               `gorm:"not null"`
	ProcessingFee     decimal.Decimal   `gorm:"type:decimal(18,4)"`
	ServiceFee        decimal.Decimal   `gorm:"type:decimal(18,4)"`
	Collateral        Collateral        `gorm:"embedded;embeddedPrefix:collateral_"`
	ReviewedAt        *time.Time
	ReviewNotes       string     `gorm:"type:varchar(1000)"`
	LoanID            *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (LoanApplication) TableName() string {
	return "loan_applications"
}

// NewLoanApplication creates a new draft application
func NewLoanApplication(
	applicationNumber string,
	borrowerName, borrowerContact, agentName string,
	terms Terms,
	collateral Collateral,
) (*LoanApplication, error) {
	if applicationNumber == "" {
		return nil, shared.NewDomainError("INVALID_APPLICATION_NUMBER", "Application number cannot be empty")
	}
	if borrowerName == "" {
		return nil, shared.NewDomainError("INVALID_BORROWER", "Borrower name cannot be empty")
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	app := &LoanApplication{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ApplicationNumber: applicationNumber,
		Status:            ApplicationStatusDraft,
		BorrowerName:      borrowerName,
		BorrowerContact:   borrowerContact,
		AgentName:         agentName,
		RequestedAmount:   terms.Amount,
		InterestRate:      terms.InterestRate,
		TermMonths:        terms.TermMonths,
		ProcessingFee:     terms.ProcessingFee,
		ServiceFee:        terms.ServiceFee,
		Collateral:        collateral,
	}

	return app, nil
}

// Submit moves a draft application to SUBMITTED
func (app *LoanApplication) Submit() error {
	if app.Status != ApplicationStatusDraft {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot submit application in %s status", app.Status))
	}
	app.Status = ApplicationStatusSubmitted
	app.UpdatedAt = time.Now()
	app.IncrementVersion()
	return nil
}

// StartReview moves the application to UNDER_REVIEW. Calling it on an
// application already under review is a no-op.
func (app *LoanApplication) StartReview() error {
	if app.Status == ApplicationStatusUnderReview {
		return nil
	}
	if !app.Status.CanReview() {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot review application in %s status", app.Status))
	}
	app.Status = ApplicationStatusUnderReview
	app.UpdatedAt = time.Now()
	app.IncrementVersion()
	return nil
}

// Approve marks the application approved with the effective terms.
// Re-approving an already approved application is allowed when it owns
// a loan (the edit path); the terms are restamped.
func (app *LoanApplication) Approve(effective Terms, reviewNotes string) error {
	if err := effective.Validate(); err != nil {
		return err
	}
	if !app.Status.CanApprove() {
		if !(app.Status == ApplicationStatusApproved && app.LoanID != nil) {
			return shared.NewDomainError("INVALID_TRANSITION",
				fmt.Sprintf("Cannot approve application in %s status", app.Status))
		}
	}

	now := time.Now()
	app.Status = ApplicationStatusApproved
	app.ApprovedAmount = effective.Amount
	app.InterestRate = effective.InterestRate
	app.TermMonths = effective.TermMonths
	app.ProcessingFee = effective.ProcessingFee
	app.ServiceFee = effective.ServiceFee
	app.ReviewedAt = &now
	app.ReviewNotes = reviewNotes
	app.UpdatedAt = now
	app.IncrementVersion()

	return nil
}

// Reject marks the application rejected
func (app *LoanApplication) Reject(reviewNotes string) error {
	if !app.Status.CanReject() {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot reject application in %s status", app.Status))
	}

	now := time.Now()
	app.Status = ApplicationStatusRejected
	app.ReviewedAt = &now
	app.ReviewNotes = reviewNotes
	app.UpdatedAt = now
	app.IncrementVersion()

	return nil
}

// AttachLoan links the loan created from this application
func (app *LoanApplication) AttachLoan(loanID uuid.UUID) {
	id := loanID
	app.LoanID = &id
	app.UpdatedAt = time.Now()
}

// SetCollateralImage records the uploaded collateral image URL
func (app *LoanApplication) SetCollateralImage(url string) error {
	if len(url) > 500 {
		return shared.NewDomainError("INVALID_IMAGE_URL", "Image URL cannot exceed 500 characters")
	}
	app.Collateral.ImageURL = url
	app.UpdatedAt = time.Now()
	app.IncrementVersion()
	return nil
}

// CurrentTerms returns the stored terms, preferring the approved amount
// once one has been set
func (app *LoanApplication) CurrentTerms() Terms {
	amount := app.RequestedAmount
	if app.ApprovedAmount.IsPositive() {
		amount = app.ApprovedAmount
	}
	return Terms{
		Amount:        amount,
		InterestRate:  app.InterestRate,
		TermMonths:    app.TermMonths,
		ProcessingFee: app.ProcessingFee,
		ServiceFee:    app.ServiceFee,
	}
}

// GetRequestedAmountMoney returns the requested amount as Money
func (app *LoanApplication) GetRequestedAmountMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(app.RequestedAmount)
}

// IsApproved returns true if the application is approved
func (app *LoanApplication) IsApproved() bool {
	return app.Status == ApplicationStatusApproved
}

// IsRejected returns true if the application is rejected
func (app *LoanApplication) IsRejected() bool {
	return app.Status == ApplicationStatusRejected
}

// HasLoan returns true if a loan was created from this application
func (app *LoanApplication) HasLoan() bool {
	return app.LoanID != nil
}
