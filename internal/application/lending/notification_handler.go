package lending

import (
	"context"

	"github.com/terraloan/backend/internal/domain/lending"
	"github.com/terraloan/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ApprovalNotificationHandler listens for LoanApproved events and
// sends the borrower notification. It runs outside the approval
// transaction; a delivery failure is logged and never propagated.
type ApprovalNotificationHandler struct {
	appRepo lending.ApplicationRepository
	sender  NotificationSender
	logger  *zap.Logger
}

// NewApprovalNotificationHandler creates a new handler
func NewApprovalNotificationHandler(
	appRepo lending.ApplicationRepository,
	sender NotificationSender,
	logger *zap.Logger,
) *ApprovalNotificationHandler {
	return &ApprovalNotificationHandler{
		appRepo: appRepo,
		sender:  sender,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler subscribes to
func (h *ApprovalNotificationHandler) EventTypes() []string {
	return []string{"lending.loan.approved"}
}

// Handle sends the approval notification for a committed approval
func (h *ApprovalNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	approved, ok := event.(*lending.LoanApprovedEvent)
	if !ok {
		return nil
	}

	contact := ""
	app, err := h.appRepo.FindByID(ctx, approved.ApplicationID)
	if err != nil {
		h.logger.Warn("could not load application for notification",
			zap.String("application_id", approved.ApplicationID.String()), zap.Error(err))
	} else if app != nil {
		contact = app.BorrowerContact
	}

	n := ApprovalNotification{
		LoanNumber:     approved.LoanNumber,
		BorrowerName:   approved.BorrowerName,
		Contact:        contact,
		Principal:      approved.Principal,
		MonthlyPayment: approved.MonthlyPayment,
		TermMonths:     approved.TermMonths,
		ContractDate:   approved.ContractDate,
	}
	if err := h.sender.SendApprovalNotification(ctx, n); err != nil {
		h.logger.Warn("approval notification failed",
			zap.String("loan_number", approved.LoanNumber), zap.Error(err))
	}
	return nil
}
