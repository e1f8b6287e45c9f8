package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"billed/internal/amqp"
	applog "billed/internal/log"
	"billed/internal/store"
)

// BillSyncer mirrors bills to the spreadsheet.
type BillSyncer interface {
	SyncBill(ctx context.Context, id string) error
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// SyncWorker turns AMQP sync messages into spreadsheet updates.
type SyncWorker struct {
	syncer    BillSyncer
	batchSize int
}

func NewSyncWorker(syncer BillSyncer, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{syncer: syncer, batchSize: batchSize}
}

// HandleSyncMessage mirrors the bill named by msg. A bill deleted since the
// message was published is acknowledged and skipped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.BillSyncMessage) error {
	logger().InfoContext(ctx, "Processing sync message",
		applog.FieldOperation, applog.OpSync,
		applog.FieldBillID, msg.BillID,
		applog.FieldVersion, msg.Version)

	err := w.syncer.SyncBill(ctx, msg.BillID)
	if errors.Is(err, store.ErrNotFound) {
		logger().WarnContext(ctx, "Bill no longer exists, dropping sync message", applog.FieldBillID, msg.BillID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync bill %s: %w", msg.BillID, err)
	}
	return nil
}

// StartupSyncCheck mirrors bills left pending while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.syncer.ProcessPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced == 0 {
		logger().InfoContext(ctx, "No pending bills found on startup", applog.FieldOperation, applog.OpStartup)
		return nil
	}
	logger().InfoContext(ctx, "Startup sync completed", applog.FieldOperation, applog.OpStartup, "synced", synced)
	return nil
}

func logger() *slog.Logger {
	return applog.For(slog.Default(), applog.ComponentWorker)
}
