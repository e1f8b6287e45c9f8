package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"billed/internal/core"
	"billed/internal/store"
	"billed/internal/store/sqlite"
)

type fakeWriter struct {
	upserts []core.BillRecord
	err     error
}

func (w *fakeWriter) Upsert(_ context.Context, b core.BillRecord) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.upserts = append(w.upserts, b)
	return "Bills!A2:M2", nil
}

func newSQLite(t *testing.T) *sqlite.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := sqlite.New(filepath.Join(dir, "billed.db"), sqlite.Options{UploadDir: filepath.Join(dir, "uploads")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSyncProcessor(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())

	if processor == nil {
		t.Fatal("NewSyncProcessor should return non-nil processor")
	}
	if processor.storage != nil || processor.sheets != nil {
		t.Error("dependencies should be nil when passed nil")
	}
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
}

func TestSyncProcessor_ProcessPending(t *testing.T) {
	ctx := context.Background()
	db := newSQLite(t)
	writer := &fakeWriter{}
	processor := NewSyncProcessor(db, writer, DefaultSyncProcessorConfig())

	res, err := db.Create(ctx, store.UploadRequest{Email: "a@a", FileName: "a.jpg"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	synced, err := processor.ProcessPending(ctx, 0)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if synced != 1 || len(writer.upserts) != 1 || writer.upserts[0].ID != res.Key {
		t.Fatalf("unexpected sync: synced=%d upserts=%+v", synced, writer.upserts)
	}

	pending, err := db.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("bill should be synced, pending=%+v", pending)
	}
}

func TestSyncProcessor_MarksErrorAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	db := newSQLite(t)
	config := DefaultSyncProcessorConfig()
	config.MaxRetries = 2
	processor := NewSyncProcessor(db, &fakeWriter{err: errors.New("quota exceeded")}, config)

	if _, err := db.Create(ctx, store.UploadRequest{FileName: "a.jpg"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		pending, err := db.GetPendingSync(ctx, 10)
		if err != nil || len(pending) != 1 {
			t.Fatalf("attempt %d: expected one pending bill, got %v (%v)", i, pending, err)
		}
		if synced, err := processor.ProcessPending(ctx, 0); err != nil || synced != 0 {
			t.Fatalf("attempt %d: synced=%d err=%v", i, synced, err)
		}
	}

	pending, err := db.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("bill should be flagged after max retries, pending=%+v", pending)
	}
}

func TestSyncProcessor_SyncBillUnknown(t *testing.T) {
	processor := NewSyncProcessor(newSQLite(t), &fakeWriter{}, DefaultSyncProcessorConfig())
	err := processor.SyncBill(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())
	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StartStop(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	config.PollInterval = 20 * time.Millisecond
	processor := NewSyncProcessor(newSQLite(t), &fakeWriter{}, config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}
	if !processor.IsRunning() {
		t.Error("processor should be running")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should be stopped")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())
	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
