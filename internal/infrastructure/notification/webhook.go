// Package notification delivers approval notifications to external
// channels.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	lendingapp "github.com/terraloan/backend/internal/application/lending"
	"go.uber.org/zap"
)

// Ensure WebhookSender implements NotificationSender
var _ lendingapp.NotificationSender = (*WebhookSender)(nil)

// WebhookSender posts approval notifications as JSON to a configured
// webhook endpoint (e.g. an SMS gateway or messaging bridge).
type WebhookSender struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookSender creates a new WebhookSender
func NewWebhookSender(url string, timeout time.Duration, logger *zap.Logger) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// SendApprovalNotification posts the notification payload
func (s *WebhookSender) SendApprovalNotification(ctx context.Context, n lendingapp.ApprovalNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	s.logger.Debug("approval notification delivered",
		zap.String("loan_number", n.LoanNumber),
	)
	return nil
}
