package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/models"
	client "github.com/siea/ricequote/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// OperatorAlerts pushes short notices to the sales operator's WhatsApp.
type OperatorAlerts struct {
	sender     client.Sender
	operatorID string
	logger     *zap.Logger
}

// NewOperatorAlerts wires alerts to operatorID.
func NewOperatorAlerts(sender client.Sender, operatorID string, logger *zap.Logger) *OperatorAlerts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperatorAlerts{sender: sender, operatorID: operatorID, logger: logger}
}

// Name identifies the hook in logs.
func (a *OperatorAlerts) Name() string {
	return "whatsapp_operator"
}

// QuoteSubmitted tells the operator a new quote arrived.
func (a *OperatorAlerts) QuoteSubmitted(ctx context.Context, q models.Quote) error {
	return a.send(ctx, OperatorSummary(q))
}

// AuditFailures warns that history writes keep failing.
func (a *OperatorAlerts) AuditFailures(ctx context.Context, consecutive, total int64) error {
	return a.send(ctx, fmt.Sprintf(
		"Audit history writes are failing: %d in a row, %d since start. Admin changes are applied but not recorded.",
		consecutive, total))
}

func (a *OperatorAlerts) send(ctx context.Context, body string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	id, err := a.sender.SendText(ctx, a.operatorID, body)
	if err != nil {
		return fmt.Errorf("operator alert: %w", err)
	}
	a.logger.Debug("operator alert sent", zap.String("message_id", id))
	return nil
}

// OperatorSummary is the one-paragraph notice sent for each new quote.
func OperatorSummary(q models.Quote) string {
	total := "price on request"
	if !q.PriceOnRequest && q.Breakdown != nil {
		total = symbol(q.Currency) + q.Breakdown.GrandTotal.StringFixed(2)
	}

	what := ""
	switch {
	case q.Cart != nil:
		what = fmt.Sprintf("cart of %d products, %d bags", q.Cart.ProductCount, q.Cart.TotalBags)
	case q.Single != nil:
		what = fmt.Sprintf("%s %s, %s", q.Single.ProductName, q.Single.Grade, q.Single.QuantityUnit)
	}

	return fmt.Sprintf("New %s %s from %s (%s, %s): %s. Total %s.",
		q.Kind, q.QuoteID, q.Customer.FullName, q.Customer.Email, q.Customer.FullPhone(), what, total)
}
