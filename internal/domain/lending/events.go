package lending

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/shared"
)

// LoanApprovedEvent is raised after an application approval commits.
// Handlers run outside the approval transaction; their failures must
// never affect the committed state.
type LoanApprovedEvent struct {
	shared.BaseDomainEvent
	ApplicationID  uuid.UUID       `json:"application_id"`
	LoanID         uuid.UUID       `json:"loan_id"`
	LoanNumber     string          `json:"loan_number"`
	BorrowerName   string          `json:"borrower_name"`
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TermMonths     int             `json:"term_months"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	ContractDate   time.Time       `json:"contract_date"`
}

// EventType returns the event type name
func (e *LoanApprovedEvent) EventType() string {
	return "lending.loan.approved"
}

// NewLoanApprovedEvent creates a new LoanApprovedEvent
func NewLoanApprovedEvent(app *LoanApplication, loan *Loan) *LoanApprovedEvent {
	return &LoanApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("lending.loan.approved", "LoanApplication", app.ID),
		ApplicationID:   app.ID,
		LoanID:          loan.ID,
		LoanNumber:      loan.LoanNumber,
		BorrowerName:    loan.BorrowerName,
		Principal:       loan.Principal,
		InterestRate:    loan.InterestRate,
		TermMonths:      loan.TermMonths,
		MonthlyPayment:  loan.MonthlyPayment,
		ContractDate:    loan.ContractDate,
	}
}

// ApplicationRejectedEvent is raised after an application rejection
type ApplicationRejectedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
	BorrowerName  string    `json:"borrower_name"`
	ReviewNotes   string    `json:"review_notes"`
}

// EventType returns the event type name
func (e *ApplicationRejectedEvent) EventType() string {
	return "lending.application.rejected"
}

// NewApplicationRejectedEvent creates a new ApplicationRejectedEvent
func NewApplicationRejectedEvent(app *LoanApplication) *ApplicationRejectedEvent {
	return &ApplicationRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("lending.application.rejected", "LoanApplication", app.ID),
		ApplicationID:   app.ID,
		BorrowerName:    app.BorrowerName,
		ReviewNotes:     app.ReviewNotes,
	}
}
