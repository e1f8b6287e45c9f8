// Package sqlite is the persistent bill store behind the store API.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"billed/internal/core"
	applog "billed/internal/log"
	"billed/internal/store"
)

var _ store.Store = (*Store)(nil)

// Sync states of a bill mirrored to the spreadsheet.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type Store struct {
	db        *sql.DB
	uploadDir string
	baseURL   string
}

// Options configure where receipts are written and how they are addressed.
type Options struct {
	UploadDir     string
	PublicBaseURL string
}

// New opens the database at dbPath, runs migrations and prepares the upload
// directory.
func New(dbPath string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if opts.UploadDir == "" {
		opts.UploadDir = filepath.Join(filepath.Dir(dbPath), "uploads")
	}
	if err := os.MkdirAll(opts.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:        db,
		uploadDir: opts.UploadDir,
		baseURL:   opts.PublicBaseURL,
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const billColumns = `id, type, name, amount, date, vat, pct, commentary, file_url, file_name, status, email`

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner) (core.BillRecord, error) {
	var (
		b        core.BillRecord
		typ      string
		status   string
		amount   sql.NullInt64
		fileURL  sql.NullString
		fileName sql.NullString
	)
	if err := row.Scan(&b.ID, &typ, &b.Name, &amount, &b.Date, &b.VAT, &b.Pct, &b.Commentary, &fileURL, &fileName, &status, &b.Email); err != nil {
		return core.BillRecord{}, err
	}
	b.Type = core.ExpenseType(typ)
	b.Status = core.BillStatus(status)
	if amount.Valid {
		b.Amount = core.IntPtr(int(amount.Int64))
	}
	if fileURL.Valid {
		b.FileURL = core.StringPtr(fileURL.String)
	}
	if fileName.Valid {
		b.FileName = core.StringPtr(fileName.String)
	}
	return b, nil
}

// List returns every bill in creation order.
func (s *Store) List(ctx context.Context) ([]core.BillRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bills ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.BillRecord
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return bills, nil
}

// GetBill returns one bill by id.
func (s *Store) GetBill(ctx context.Context, id string) (core.BillRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BillRecord{}, fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.BillRecord{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return b, nil
}

// Create writes the receipt under the upload directory and opens a pending
// bill keyed by the receipt key.
func (s *Store) Create(ctx context.Context, req store.UploadRequest) (store.UploadResult, error) {
	file := store.ReceiptFromUpload(req)
	if err := file.Validate(); err != nil {
		return store.UploadResult{}, err
	}

	key := uuid.NewString()
	path, err := s.writeReceipt(key, file)
	if err != nil {
		return store.UploadResult{}, err
	}
	fileURL := store.ReceiptURL(s.baseURL, key)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		_ = os.RemoveAll(filepath.Dir(path))
		return store.UploadResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO receipts (key, file_name, content_type, path, size, email) VALUES (?, ?, ?, ?, ?, ?)`,
		key, file.Name, file.MIMEType(), path, len(file.Content), req.Email); err != nil {
		_ = os.RemoveAll(filepath.Dir(path))
		return store.UploadResult{}, fmt.Errorf("insert receipt: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bills (id, file_url, file_name, pct, status, email, seq) VALUES (?, ?, ?, ?, ?, ?, `+nextSeq+`)`,
		key, fileURL, file.Name, core.DefaultPct, string(core.StatusPending), req.Email); err != nil {
		_ = os.RemoveAll(filepath.Dir(path))
		return store.UploadResult{}, fmt.Errorf("insert bill: %w", err)
	}
	if err := tx.Commit(); err != nil {
		_ = os.RemoveAll(filepath.Dir(path))
		return store.UploadResult{}, fmt.Errorf("commit receipt: %w", err)
	}

	logger().InfoContext(ctx, "Receipt saved to SQLite",
		"key", key,
		applog.FieldFileName, file.Name,
		"size", len(file.Content))

	return store.UploadResult{FileURL: fileURL, Key: key}, nil
}

const nextSeq = `(SELECT COALESCE(MAX(seq), 0) + 1 FROM bills)`

func (s *Store) writeReceipt(key string, file core.ReceiptFile) (string, error) {
	dir := filepath.Join(s.uploadDir, key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create receipt directory: %w", err)
	}
	path := filepath.Join(dir, safeFileName(file.Name))
	if err := os.WriteFile(path, file.Content, 0644); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("save receipt: %w", err)
	}
	return path, nil
}

// safeFileName keeps the base name of an uploaded file.
func safeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "receipt"
	}
	return base
}

// Update implements store.BillUpdater.
func (s *Store) Update(ctx context.Context, req store.UpdateRequest) error {
	_, err := s.Save(ctx, req)
	return err
}

// Save patches the selected bill, or inserts a new one when the request has
// no selector, and returns the stored bill. Every save bumps the bill version
// and marks it for spreadsheet sync.
func (s *Store) Save(ctx context.Context, req store.UpdateRequest) (core.BillRecord, error) {
	d, err := store.DecodeUpdate(req)
	if err != nil {
		return core.BillRecord{}, err
	}

	if req.Selector == nil {
		b := d.Record(uuid.NewString(), "")
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO bills (`+billColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, `+nextSeq+`)`,
			billArgs(b)...); err != nil {
			return core.BillRecord{}, fmt.Errorf("insert bill: %w", err)
		}
		logger().InfoContext(ctx, "Bill created", applog.FieldBillID, b.ID, applog.FieldBillType, b.Type)
		return b, nil
	}

	id := *req.Selector
	res, err := s.db.ExecContext(ctx, `
		UPDATE bills SET
			type = ?, name = ?, amount = ?, date = ?, vat = ?, pct = ?, commentary = ?,
			file_url = ?, file_name = ?, status = ?,
			version = version + 1, sync_status = ?, updated_at = ?
		WHERE id = ?`,
		string(d.Type), d.Name, nullInt(d.Amount), d.Date, d.VAT, d.Pct, d.Commentary,
		nullString(d.FileURL), nullString(d.FileName), string(d.Status),
		SyncPending, time.Now().UTC(), id)
	if err != nil {
		return core.BillRecord{}, fmt.Errorf("update bill %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.BillRecord{}, fmt.Errorf("update bill %s: %w", id, err)
	}
	if n == 0 {
		return core.BillRecord{}, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
	}

	logger().InfoContext(ctx, "Bill updated", applog.FieldBillID, id, applog.FieldBillStatus, d.Status)
	return s.GetBill(ctx, id)
}

func billArgs(b core.BillRecord) []any {
	return []any{
		b.ID, string(b.Type), b.Name, nullInt(b.Amount), b.Date, b.VAT, b.Pct, b.Commentary,
		nullString(b.FileURL), nullString(b.FileName), string(b.Status), b.Email,
	}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// Receipt loads an uploaded receipt by key.
func (s *Store) Receipt(ctx context.Context, key string) (core.ReceiptFile, error) {
	var name, contentType, path string
	err := s.db.QueryRowContext(ctx,
		`SELECT file_name, content_type, path FROM receipts WHERE key = ?`, key).
		Scan(&name, &contentType, &path)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ReceiptFile{}, fmt.Errorf("receipt %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return core.ReceiptFile{}, fmt.Errorf("get receipt %s: %w", key, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return core.ReceiptFile{}, fmt.Errorf("read receipt %s: %w", key, err)
	}
	return core.ReceiptFile{Name: name, ContentType: contentType, Content: content}, nil
}

// PendingSyncBill is the minimal data needed to queue a sync message.
type PendingSyncBill struct {
	ID      string
	Version int64
}

// GetPendingSync returns up to limit bills not yet mirrored.
func (s *Store) GetPendingSync(ctx context.Context, limit int) ([]PendingSyncBill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version FROM bills WHERE sync_status = ? ORDER BY seq LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync bills: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncBill
	for rows.Next() {
		var p PendingSyncBill
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending sync bill: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Version returns the current version of a bill.
func (s *Store) Version(ctx context.Context, id string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM bills WHERE id = ?`, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	return v, err
}

// MarkSynced records a successful mirror of the given version. A newer
// version saved meanwhile stays pending.
func (s *Store) MarkSynced(ctx context.Context, id string, version int64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE bills SET sync_status = ? WHERE id = ? AND version = ?`, SyncSynced, id, version); err != nil {
		return fmt.Errorf("mark bill synced: %w", err)
	}
	logger().InfoContext(ctx, "Bill marked as synced", applog.FieldBillID, id, applog.FieldVersion, version)
	return nil
}

// MarkSyncError flags a bill whose mirror failed.
func (s *Store) MarkSyncError(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE bills SET sync_status = ? WHERE id = ?`, SyncError, id); err != nil {
		return fmt.Errorf("mark bill sync error: %w", err)
	}
	logger().WarnContext(ctx, "Bill marked with sync error", applog.FieldBillID, id)
	return nil
}

func logger() *slog.Logger {
	return applog.For(slog.Default(), applog.ComponentStorage)
}
