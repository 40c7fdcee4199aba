package lending

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FileStorage stores collateral documents and returns an accessible
// URL. Uploads happen before any persistence write so a storage
// failure leaves no partial state.
type FileStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ApprovalNotification is the payload sent to the borrower-facing
// notification channel after an approval commits.
type ApprovalNotification struct {
	LoanNumber     string          `json:"loan_number"`
	BorrowerName   string          `json:"borrower_name"`
	Contact        string          `json:"contact"`
	Principal      decimal.Decimal `json:"principal"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TermMonths     int             `json:"term_months"`
	ContractDate   time.Time       `json:"contract_date"`
}

// NotificationSender delivers approval notifications. Delivery is best
// effort: it runs after the approval transaction has committed and its
// errors are logged, never propagated.
type NotificationSender interface {
	SendApprovalNotification(ctx context.Context, n ApprovalNotification) error
}
