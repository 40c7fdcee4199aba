package notification

import (
	"context"

	lendingapp "github.com/terraloan/backend/internal/application/lending"
	"go.uber.org/zap"
)

// Ensure LogSender implements NotificationSender
var _ lendingapp.NotificationSender = (*LogSender)(nil)

// LogSender writes approval notifications to the application log.
// It is the default sender in development environments.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a new LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendApprovalNotification logs the notification instead of delivering it
func (s *LogSender) SendApprovalNotification(_ context.Context, n lendingapp.ApprovalNotification) error {
	s.logger.Info("loan approval notification",
		zap.String("loan_number", n.LoanNumber),
		zap.String("borrower_name", n.BorrowerName),
		zap.String("contact", n.Contact),
		zap.String("principal", n.Principal.String()),
		zap.String("monthly_payment", n.MonthlyPayment.String()),
		zap.Int("term_months", n.TermMonths),
	)
	return nil
}
