// Package google mirrors payment rows into a Google Sheets ledger.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"hostel/internal/log"
	"hostel/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// indexTTL bounds how long the ID column is trusted before it is re-read.
const indexTTL = 10 * time.Minute

const lastColumn = "H"

// Config locates the ledger sheet and its credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON []byte
}

// Client upserts ledger rows keyed by the ID in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
	now           func() time.Time

	mu       sync.Mutex
	rows     map[string]int
	nextRow  int
	loadedAt time.Time
}

var _ sheets.LedgerWriter = (*Client)(nil)

// New creates a ledger client. Credentials are taken from cfg when present;
// extra options are appended after them.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Payments"
	}
	if logger == nil {
		logger = log.Discard()
	}

	var all []goption.ClientOption
	if len(cfg.CredentialsJSON) > 0 {
		all = append(all,
			goption.WithCredentialsJSON(cfg.CredentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	all = append(all, opts...)

	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         cfg.SheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
		now:           time.Now,
	}, nil
}

// UpsertRow rewrites the row with row.ID or appends it.
func (c *Client) UpsertRow(ctx context.Context, row sheets.LedgerRow) error {
	if row.ID == "" {
		return errors.New("ledger row without ID")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureIndex(ctx); err != nil {
		return err
	}

	n, exists := c.rows[row.ID]
	if !exists {
		n = c.nextRow
	}

	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(n), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		// the row position may be stale; re-read on the next write
		c.loadedAt = time.Time{}
		return fmt.Errorf("write ledger row %s: %w", row.ID, err)
	}

	if !exists {
		c.rows[row.ID] = n
		c.nextRow++
	}
	c.logger.DebugContext(ctx, "Ledger row written",
		"payment_id", row.ID,
		"row", n,
		"created", !exists)
	return nil
}

// DeleteRow clears the row with id.
func (c *Client) DeleteRow(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureIndex(ctx); err != nil {
		return err
	}
	n, ok := c.rows[id]
	if !ok {
		return nil
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rowRange(n), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		c.loadedAt = time.Time{}
		return fmt.Errorf("clear ledger row %s: %w", id, err)
	}
	delete(c.rows, id)
	c.logger.DebugContext(ctx, "Ledger row cleared", "payment_id", id, "row", n)
	return nil
}

// ensureIndex reads the ID column, writing the header into an empty sheet.
// Callers hold c.mu.
func (c *Client) ensureIndex(ctx context.Context) error {
	if c.rows != nil && c.now().Sub(c.loadedAt) < indexTTL {
		return nil
	}

	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ledger index: %w", err)
	}

	rows := make(map[string]int, len(resp.Values))
	for i, cells := range resp.Values {
		if i == 0 || len(cells) == 0 {
			continue
		}
		if id := strings.TrimSpace(fmt.Sprint(cells[0])); id != "" {
			rows[id] = i + 1
		}
	}

	if len(resp.Values) == 0 {
		header := make([]any, len(sheets.LedgerHeader))
		for i, h := range sheets.LedgerHeader {
			header[i] = h
		}
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(1), &gsheet.ValueRange{Values: [][]any{header}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
		c.logger.InfoContext(ctx, "Ledger header written", "sheet", c.sheet)
		c.nextRow = 2
	} else {
		c.nextRow = len(resp.Values) + 1
	}

	c.rows = rows
	c.loadedAt = c.now()
	return nil
}

func (c *Client) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, n, lastColumn, n)
}
