package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"billed/internal/cache"
	"billed/internal/core"
	applog "billed/internal/log"
	ports "billed/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSheetName = "Bills"
	// lastColumn is the rightmost column written for a bill.
	lastColumn = "M"

	rowCacheSize = 1000
	rowCacheTTL  = 10 * time.Minute
)

// header is written to row 1 of an empty sheet.
var header = []any{"ID", "Type", "Name", "Amount", "Date", "VAT", "Pct", "Commentary", "File URL", "File name", "Status", "Statut", "Email"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	// rows maps a bill ID to its 1-based row number.
	rows *cache.LRUCache[int]
}

var (
	_ ports.BillWriter = (*Client)(nil)
	_ ports.BillReader = (*Client)(nil)
)

// Config selects the spreadsheet and its service account credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// NewFromEnv creates a Sheets client from the environment.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Bills"),
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, ConfigFromEnv())
}

// ConfigFromEnv reads the variables listed on NewFromEnv.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = defaultSheetName
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

func newClient(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rows:          cache.NewLRUCache[int](rowCacheSize, rowCacheTTL),
	}
}

// newSheetsService initializes a Sheets service from service account
// credentials, inline or read from a file.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		logger().InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		logger().InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Upsert writes b to its row, found by ID in column A, or appends it after
// the last used row.
func (c *Client) Upsert(ctx context.Context, b core.BillRecord) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(b.ID) == "" {
		return "", errors.New("bill without id cannot be mirrored")
	}

	row, err := c.rowFor(ctx, b.ID)
	if err != nil {
		return "", err
	}
	if row == 1 {
		if err := c.writeRow(ctx, 1, header); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		row = 2
	}

	if err := c.writeRow(ctx, row, billRow(b)); err != nil {
		return "", err
	}
	c.rows.Set(b.ID, row)

	ref := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	logger().DebugContext(ctx, "Bill mirrored", applog.FieldBillID, b.ID, applog.FieldSheetsRef, ref)
	return ref, nil
}

// rowFor returns the row holding id, or the next free row when absent.
// A cached row is checked against the sheet before being trusted.
func (c *Client) rowFor(ctx context.Context, id string) (int, error) {
	if row, ok := c.rows.Get(id); ok {
		rng := fmt.Sprintf("%s!A%d", c.sheetName, row)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err == nil && len(resp.Values) > 0 && len(resp.Values[0]) > 0 &&
			strings.TrimSpace(fmt.Sprint(resp.Values[0][0])) == id {
			return row, nil
		}
		c.rows.Delete(id)
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return findRow(resp.Values, id), nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return nil
}

// List reads every mirrored bill.
func (c *Client) List(ctx context.Context) ([]core.BillRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	parsed := parseBills(resp.Values)
	bills := make([]core.BillRecord, len(parsed))
	for i, sb := range parsed {
		bills[i] = sb.bill
		c.rows.Set(sb.bill.ID, sb.row)
	}
	return bills, nil
}

// RowCache exposes the bill row cache for periodic cleanup.
func (c *Client) RowCache() cache.Cleaner {
	return c.rows
}

func logger() *slog.Logger {
	return applog.For(slog.Default(), applog.ComponentSheets)
}
