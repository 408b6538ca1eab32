package sheetsclient

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client wraps the Google Sheets API client
type Client struct {
	service *sheets.Service
}

// NewClient creates a new Sheets client. Callers supply the authenticated HTTP client
// (service account) through option.WithHTTPClient.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{service: service}, nil
}

// AppendRows appends rows after the last row of the named sheet.
// Values are parsed as if typed by a user so dates and numbers keep their sheet formatting.
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, sheetName string, values [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := c.service.Spreadsheets.Values.Append(spreadsheetID, SheetRange(sheetName, "A1"), valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append rows: %w", err)
	}

	return nil
}

// SheetRange builds an A1 range on a named tab, quoting the tab name
func SheetRange(sheetName, cells string) string {
	quoted := strings.ReplaceAll(sheetName, "'", "''")
	return fmt.Sprintf("'%s'!%s", quoted, cells)
}
