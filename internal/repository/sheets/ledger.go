package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/models"
)

const (
	ledgerTable  = "Quotes!A:L"
	ledgerHeader = "Quotes!A1:L1"
)

var ledgerColumns = []interface{}{
	"Created At", "Quote ID", "Kind", "Status", "Customer", "Email", "Phone",
	"Country", "Items", "Currency", "Grand Total", "Price On Request",
}

// QuoteLedger appends one row per submitted quote so the sales desk can follow
// incoming orders in a spreadsheet.
type QuoteLedger struct {
	rows   RowStore
	logger *zap.Logger

	headerOnce sync.Once
	headerErr  error
}

// NewQuoteLedger wraps rows.
func NewQuoteLedger(rows RowStore, logger *zap.Logger) *QuoteLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteLedger{rows: rows, logger: logger}
}

// Name identifies the ledger in hook error logs.
func (l *QuoteLedger) Name() string {
	return "sheets_ledger"
}

// QuoteSubmitted records the quote.
func (l *QuoteLedger) QuoteSubmitted(ctx context.Context, quote models.Quote) error {
	l.headerOnce.Do(func() { l.headerErr = l.ensureHeader(ctx) })
	if l.headerErr != nil {
		l.logger.Warn("ledger header check failed", zap.Error(l.headerErr))
	}

	if err := l.rows.AppendRow(ctx, ledgerTable, LedgerRow(quote)); err != nil {
		return fmt.Errorf("record quote %s in ledger: %w", quote.QuoteID, err)
	}
	l.logger.Info("quote recorded in ledger", zap.String("quote_id", quote.QuoteID))
	return nil
}

func (l *QuoteLedger) ensureHeader(ctx context.Context) error {
	rows, err := l.rows.Rows(ctx, ledgerHeader)
	if err != nil {
		return err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		return nil
	}
	return l.rows.AppendRow(ctx, ledgerTable, ledgerColumns)
}

// LedgerRow renders the spreadsheet row for quote.
func LedgerRow(quote models.Quote) []interface{} {
	total := ""
	if quote.Breakdown != nil {
		total = quote.Breakdown.GrandTotal.StringFixed(2)
	}

	return []interface{}{
		quote.CreatedAt.UTC().Format(time.RFC3339),
		quote.QuoteID,
		string(quote.Kind),
		string(quote.Status),
		quote.Customer.FullName,
		quote.Customer.Email,
		quote.Customer.FullPhone(),
		quote.Customer.Country,
		itemsSummary(quote),
		quote.Currency,
		total,
		quote.PriceOnRequest,
	}
}

func itemsSummary(quote models.Quote) string {
	if quote.Single != nil {
		return fmt.Sprintf("%s / %s / %s", quote.Single.ProductName, quote.Single.Grade, quote.Single.QuantityUnit)
	}
	if quote.Cart == nil {
		return ""
	}
	parts := make([]string, 0, len(quote.Cart.Lines))
	for _, line := range quote.Cart.Lines {
		parts = append(parts, fmt.Sprintf("%s %s x%d", line.ProductName, line.Grade, line.NumberOfBags))
	}
	return strings.Join(parts, "; ")
}
