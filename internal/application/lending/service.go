// Package lending implements the loan lifecycle use cases: application
// review, atomic approval with funding, schedule regeneration, and the
// post-commit approval notification.
package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	ledgerapp "github.com/terraloan/backend/internal/application/ledger"
	"github.com/terraloan/backend/internal/domain/lending"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Funder debits the funding account for a disbursement inside the
// caller's transaction context. Implemented by the ledger service.
type Funder interface {
	FundLoan(ctx context.Context, accountID uuid.UUID, principal decimal.Decimal, loanNumber string, actor shared.Actor) (*ledgerapp.MutationResult, error)
}

// LifecycleService orchestrates the loan application state machine and
// the loans and schedules it produces.
type LifecycleService struct {
	appRepo         lending.ApplicationRepository
	loanRepo        lending.LoanRepository
	installmentRepo lending.InstallmentRepository
	funder          Funder
	txManager       shared.TransactionManager
	eventBus        shared.EventPublisher
	storage         FileStorage
	logger          *zap.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	appRepo lending.ApplicationRepository,
	loanRepo lending.LoanRepository,
	installmentRepo lending.InstallmentRepository,
	funder Funder,
	txManager shared.TransactionManager,
	eventBus shared.EventPublisher,
	storage FileStorage,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		appRepo:         appRepo,
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		funder:          funder,
		txManager:       txManager,
		eventBus:        eventBus,
		storage:         storage,
		logger:          logger,
	}
}

// CreateApplicationRequest carries the inputs for a new application
type CreateApplicationRequest struct {
	BorrowerName    string
	BorrowerContact string
	AgentName       string
	Terms           lending.Terms
	Collateral      lending.Collateral
}

// CreateApplication creates a new draft application with a generated
// application number.
func (s *LifecycleService) CreateApplication(ctx context.Context, req CreateApplicationRequest) (*lending.LoanApplication, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lending", "create_application")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrBorrower, req.BorrowerName)

	app, err := lending.NewLoanApplication(
		lending.GenerateApplicationNumber(time.Now()),
		req.BorrowerName, req.BorrowerContact, req.AgentName,
		req.Terms, req.Collateral,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.appRepo.Save(ctx, app); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	telemetry.SetOK(span)
	return app, nil
}

// SubmitForReview moves an application to UNDER_REVIEW. Repeated calls
// on an application already under review are no-ops.
func (s *LifecycleService) SubmitForReview(ctx context.Context, applicationID uuid.UUID) (*lending.LoanApplication, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lending", "submit_for_review")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrApplicationID, applicationID.String())

	var app *lending.LoanApplication
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.findApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := app.StartReview(); err != nil {
			return err
		}
		return s.appRepo.Save(ctx, app)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return app, nil
}

// ApproveRequest carries the inputs for an approval
type ApproveRequest struct {
	ApplicationID    uuid.UUID
	FundingAccountID uuid.UUID
	Override         lending.TermsOverride
	Mode             lending.AmortizationMode
	ReviewNotes      string
	Actor            shared.Actor
}

// ApproveResult describes a committed approval
type ApproveResult struct {
	Application *lending.LoanApplication
	Loan        *lending.Loan
	Schedule    lending.Schedule
}

// Approve runs the atomic approval flow in one transaction: mark the
// application approved with the effective terms, create or update its
// loan, regenerate the full installment schedule, and debit the
// funding account. Any failure, including insufficient funds, rolls
// everything back. The approval notification is published only after
// the transaction commits.
func (s *LifecycleService) Approve(ctx context.Context, req ApproveRequest) (*ApproveResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lending", "approve")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrApplicationID, req.ApplicationID.String(),
		telemetry.SpanAttrMode, string(req.Mode),
		telemetry.SpanAttrActor, req.Actor.Name,
	)

	if !req.Mode.IsValid() {
		err := shared.NewDomainError("INVALID_MODE", "Amortization mode is not valid")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.FundingAccountID == uuid.Nil {
		err := shared.NewDomainError("INVALID_ACCOUNT", "Funding account is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		app      *lending.LoanApplication
		loan     *lending.Loan
		schedule lending.Schedule
		funded   bool
	)
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.findApplication(ctx, req.ApplicationID)
		if err != nil {
			return err
		}

		effective := req.Override.ApplyTo(app.CurrentTerms())
		if err := app.Approve(effective, req.ReviewNotes); err != nil {
			return err
		}

		if app.HasLoan() {
			// Edit path: restate the existing loan's terms. The
			// principal was already disbursed, so no second debit.
			loan, err = s.loanRepo.FindByID(ctx, *app.LoanID)
			if err != nil {
				return fmt.Errorf("failed to load loan: %w", err)
			}
			if loan == nil {
				return shared.NewDomainError("LOAN_NOT_FOUND", "Loan not found")
			}

			schedule, err = lending.ComputeSchedule(effective.Amount, effective.InterestRate,
				effective.TermMonths, loan.ContractDate, req.Mode)
			if err != nil {
				return err
			}
			if err := loan.UpdateTerms(effective, schedule.MonthlyPayment); err != nil {
				return err
			}
		} else {
			contractDate := time.Now()
			schedule, err = lending.ComputeSchedule(effective.Amount, effective.InterestRate,
				effective.TermMonths, contractDate, req.Mode)
			if err != nil {
				return err
			}

			loan, err = lending.NewLoan(lending.GenerateLoanNumber(contractDate),
				app.ID, app.BorrowerName, effective, schedule.MonthlyPayment, contractDate)
			if err != nil {
				return err
			}
			funded = true
		}

		if err := s.loanRepo.Save(ctx, loan); err != nil {
			return fmt.Errorf("failed to save loan: %w", err)
		}
		app.AttachLoan(loan.ID)

		installments := make([]lending.Installment, 0, len(schedule.Lines))
		for _, line := range schedule.Lines {
			inst, err := lending.NewInstallment(loan.ID, line)
			if err != nil {
				return err
			}
			installments = append(installments, *inst)
		}
		if err := s.installmentRepo.ReplaceForLoan(ctx, loan.ID, installments); err != nil {
			return fmt.Errorf("failed to regenerate schedule: %w", err)
		}

		if funded {
			if _, err := s.funder.FundLoan(ctx, req.FundingAccountID,
				effective.Amount, loan.LoanNumber, req.Actor); err != nil {
				return err
			}
		}

		return s.appRepo.Save(ctx, app)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrLoanNumber, loan.LoanNumber)
	telemetry.SetOK(span)

	// Post-commit side effects only. A publish failure cannot undo the
	// committed approval, so it is logged and swallowed.
	if err := s.eventBus.Publish(ctx, lending.NewLoanApprovedEvent(app, loan)); err != nil {
		s.logger.Warn("failed to publish loan approved event",
			zap.String("loan_number", loan.LoanNumber), zap.Error(err))
	}

	return &ApproveResult{Application: app, Loan: loan, Schedule: schedule}, nil
}

// Reject marks an application rejected. When a loan already exists
// (rejection on re-review) it is cancelled in the same transaction.
// No ledger movement happens on rejection.
func (s *LifecycleService) Reject(ctx context.Context, applicationID uuid.UUID, reviewNotes string, actor shared.Actor) (*lending.LoanApplication, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lending", "reject")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrApplicationID, applicationID.String(),
		telemetry.SpanAttrActor, actor.Name,
	)

	var app *lending.LoanApplication
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.findApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := app.Reject(reviewNotes); err != nil {
			return err
		}

		if app.HasLoan() {
			loan, err := s.loanRepo.FindByID(ctx, *app.LoanID)
			if err != nil {
				return fmt.Errorf("failed to load loan: %w", err)
			}
			if loan != nil && !loan.Status.IsTerminal() {
				if err := loan.Cancel("Application rejected"); err != nil {
					return err
				}
				if err := s.loanRepo.Save(ctx, loan); err != nil {
					return fmt.Errorf("failed to save loan: %w", err)
				}
			}
		}

		return s.appRepo.Save(ctx, app)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)

	if err := s.eventBus.Publish(ctx, lending.NewApplicationRejectedEvent(app)); err != nil {
		s.logger.Warn("failed to publish application rejected event",
			zap.String("application_number", app.ApplicationNumber), zap.Error(err))
	}

	return app, nil
}

// UpdateLoan restates a loan's terms. When principal, rate, or term
// changed, the monthly payment is recomputed and the schedule
// regenerated from the original contract date.
func (s *LifecycleService) UpdateLoan(ctx context.Context, loanID uuid.UUID, terms lending.Terms, actor shared.Actor) (*lending.Loan, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lending", "update_loan")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLoanID, loanID.String(),
		telemetry.SpanAttrActor, actor.Name,
	)

	var loan *lending.Loan
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.findLoan(ctx, loanID)
		if err != nil {
			return err
		}

		termsChanged := !loan.Principal.Equal(terms.Amount) ||
			!loan.InterestRate.Equal(terms.InterestRate) ||
			loan.TermMonths != terms.TermMonths
		if !termsChanged {
			return nil
		}

		schedule, err := lending.ComputeSchedule(terms.Amount, terms.InterestRate,
			terms.TermMonths, loan.ContractDate, lending.ModeAmortizing)
		if err != nil {
			return err
		}
		if err := loan.UpdateTerms(terms, schedule.MonthlyPayment); err != nil {
			return err
		}
		if err := s.loanRepo.Save(ctx, loan); err != nil {
			return fmt.Errorf("failed to save loan: %w", err)
		}

		installments := make([]lending.Installment, 0, len(schedule.Lines))
		for _, line := range schedule.Lines {
			inst, err := lending.NewInstallment(loan.ID, line)
			if err != nil {
				return err
			}
			installments = append(installments, *inst)
		}
		return s.installmentRepo.ReplaceForLoan(ctx, loan.ID, installments)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return loan, nil
}

// DeleteLoan hard-removes a loan, its schedule, and the application
// link, in dependency order. Meant for records created in error.
func (s *LifecycleService) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "lending", "delete_loan")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrLoanID, loanID.String())

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		loan, err := s.findLoan(ctx, loanID)
		if err != nil {
			return err
		}

		if err := s.installmentRepo.DeleteByLoan(ctx, loan.ID); err != nil {
			return fmt.Errorf("failed to delete installments: %w", err)
		}
		if err := s.loanRepo.Delete(ctx, loan.ID); err != nil {
			return fmt.Errorf("failed to delete loan: %w", err)
		}

		app, err := s.appRepo.FindByID(ctx, loan.ApplicationID)
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		if app != nil && app.LoanID != nil {
			app.LoanID = nil
			if err := s.appRepo.Save(ctx, app); err != nil {
				return fmt.Errorf("failed to unlink application: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.SetOK(span)
	return nil
}

// AttachCollateralImage uploads a collateral document and records its
// URL on the application. The upload happens first; a storage failure
// leaves the application untouched.
func (s *LifecycleService) AttachCollateralImage(ctx context.Context, applicationID uuid.UUID, data []byte, contentType string) (*lending.LoanApplication, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lending", "attach_collateral_image")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrApplicationID, applicationID.String())

	if len(data) == 0 {
		err := shared.NewDomainError("INVALID_INPUT", "Image data cannot be empty")
		telemetry.RecordError(span, err)
		return nil, err
	}

	app, err := s.findApplication(ctx, applicationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	key := fmt.Sprintf("collateral/%s/%s", app.ApplicationNumber, uuid.New().String())
	url, err := s.storage.Upload(ctx, key, data, contentType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to upload collateral image: %w", err)
	}

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		app, err = s.findApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := app.SetCollateralImage(url); err != nil {
			return err
		}
		return s.appRepo.Save(ctx, app)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return app, nil
}

// PreviewSchedule computes a schedule without touching any state
func (s *LifecycleService) PreviewSchedule(ctx context.Context, principal, annualRate decimal.Decimal, termMonths int, contractDate time.Time, mode lending.AmortizationMode) (lending.Schedule, error) {
	_, span := telemetry.StartServiceSpan(ctx, "lending", "preview_schedule")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrMode, string(mode))

	schedule, err := lending.ComputeSchedule(principal, annualRate, termMonths, contractDate, mode)
	if err != nil {
		telemetry.RecordError(span, err)
		return lending.Schedule{}, err
	}
	telemetry.SetOK(span)
	return schedule, nil
}

// GetApplication returns an application by ID
func (s *LifecycleService) GetApplication(ctx context.Context, applicationID uuid.UUID) (*lending.LoanApplication, error) {
	return s.findApplication(ctx, applicationID)
}

// ListApplications returns applications matching the filter
func (s *LifecycleService) ListApplications(ctx context.Context, filter lending.ApplicationFilter) (shared.Paginated[lending.LoanApplication], error) {
	apps, err := s.appRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[lending.LoanApplication]{}, fmt.Errorf("failed to list applications: %w", err)
	}
	total, err := s.appRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[lending.LoanApplication]{}, fmt.Errorf("failed to count applications: %w", err)
	}
	return shared.NewPaginated(apps, total, filter.Page, filter.PageSize), nil
}

// GetLoan returns a loan by ID
func (s *LifecycleService) GetLoan(ctx context.Context, loanID uuid.UUID) (*lending.Loan, error) {
	return s.findLoan(ctx, loanID)
}

// GetLoanByNumber returns a loan by its loan number
func (s *LifecycleService) GetLoanByNumber(ctx context.Context, number string) (*lending.Loan, error) {
	loan, err := s.loanRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if loan == nil {
		return nil, shared.NewDomainError("LOAN_NOT_FOUND", "Loan not found")
	}
	return loan, nil
}

// ListLoans returns loans matching the filter
func (s *LifecycleService) ListLoans(ctx context.Context, filter lending.LoanFilter) (shared.Paginated[lending.Loan], error) {
	loans, err := s.loanRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[lending.Loan]{}, fmt.Errorf("failed to list loans: %w", err)
	}
	total, err := s.loanRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[lending.Loan]{}, fmt.Errorf("failed to count loans: %w", err)
	}
	return shared.NewPaginated(loans, total, filter.Page, filter.PageSize), nil
}

// ListInstallments returns a loan's schedule ordered by sequence
func (s *LifecycleService) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]lending.Installment, error) {
	if _, err := s.findLoan(ctx, loanID); err != nil {
		return nil, err
	}
	installments, err := s.installmentRepo.FindByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	return installments, nil
}

func (s *LifecycleService) findApplication(ctx context.Context, id uuid.UUID) (*lending.LoanApplication, error) {
	app, err := s.appRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, shared.NewDomainError("APPLICATION_NOT_FOUND", "Loan application not found")
	}
	return app, nil
}

func (s *LifecycleService) findLoan(ctx context.Context, id uuid.UUID) (*lending.Loan, error) {
	loan, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if loan == nil {
		return nil, shared.NewDomainError("LOAN_NOT_FOUND", "Loan not found")
	}
	return loan, nil
}
