package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/siea/ricequote/internal/config"
)

// RowStore is the slice of the Sheets API the ledger writes through.
type RowStore interface {
	AppendRow(ctx context.Context, a1Range string, row []interface{}) error
	Rows(ctx context.Context, a1Range string) ([][]interface{}, error)
}

// Client talks to one spreadsheet.
type Client struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	logger        *zap.Logger
}

// NewClient authenticates with the service-account credentials in cfg.
func NewClient(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &Client{values: svc.Spreadsheets.Values, spreadsheetID: cfg.SpreadsheetID, logger: logger}, nil
}

// AppendRow inserts row below the table found in a1Range. Values are stored as typed,
// so customer input is never evaluated as a formula.
func (c *Client) AppendRow(ctx context.Context, a1Range string, row []interface{}) error {
	body := &sheetsapi.ValueRange{MajorDimension: "ROWS", Values: [][]interface{}{row}}
	_, err := c.values.Append(c.spreadsheetID, a1Range, body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", a1Range, err)
	}
	c.logger.Debug("sheet row appended", zap.String("range", a1Range), zap.Int("cells", len(row)))
	return nil
}

// Rows reads a1Range.
func (c *Client) Rows(ctx context.Context, a1Range string) ([][]interface{}, error) {
	resp, err := c.values.Get(c.spreadsheetID, a1Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a1Range, err)
	}
	return resp.Values, nil
}
