package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billed/internal/core"
	applog "billed/internal/log"
	"billed/internal/sheets"
	"billed/internal/store/sqlite"
)

// SyncRepository is what the processor needs from the bill database.
type SyncRepository interface {
	GetBill(ctx context.Context, id string) (core.BillRecord, error)
	GetPendingSync(ctx context.Context, limit int) ([]sqlite.PendingSyncBill, error)
	Version(ctx context.Context, id string) (int64, error)
	MarkSynced(ctx context.Context, id string, version int64) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending bills (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of bills mirrored per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of failed attempts before a bill is flagged (default: 3)
	MaxRetries int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor mirrors bills from SQLite to the spreadsheet. It serves the
// AMQP worker one bill at a time and also polls for bills whose message was
// lost.
type SyncProcessor struct {
	storage SyncRepository
	sheets  sheets.BillWriter
	config  SyncProcessorConfig

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	attempts map[string]int
}

func NewSyncProcessor(storage SyncRepository, writer sheets.BillWriter, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		storage:  storage,
		sheets:   writer,
		config:   config,
		attempts: make(map[string]int),
	}
}

// SyncBill mirrors the current state of a bill and marks that version as
// synced.
func (p *SyncProcessor) SyncBill(ctx context.Context, id string) error {
	version, err := p.storage.Version(ctx, id)
	if err != nil {
		return fmt.Errorf("get bill version %s: %w", id, err)
	}
	bill, err := p.storage.GetBill(ctx, id)
	if err != nil {
		return fmt.Errorf("get bill %s: %w", id, err)
	}

	ref, err := p.sheets.Upsert(ctx, bill)
	if err != nil {
		return fmt.Errorf("upsert to sheets: %w", err)
	}

	if err := p.storage.MarkSynced(ctx, id, version); err != nil {
		logger().WarnContext(ctx, "Failed to mark bill as synced", applog.FieldBillID, id, applog.FieldError, err)
	}

	p.mu.Lock()
	delete(p.attempts, id)
	p.mu.Unlock()

	logger().InfoContext(ctx, "Synced bill to Google Sheets",
		applog.FieldOperation, applog.OpSync,
		applog.FieldBillID, id,
		applog.FieldVersion, version,
		applog.FieldSheetsRef, ref)
	return nil
}

// ProcessPending mirrors up to limit pending bills and returns how many
// succeeded. A limit of zero uses the configured batch size.
func (p *SyncProcessor) ProcessPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = p.config.BatchSize
	}
	pending, err := p.storage.GetPendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending bills: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	logger().DebugContext(ctx, "Processing pending bills", "count", len(pending))

	synced := 0
	for _, item := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := p.SyncBill(ctx, item.ID); err != nil {
			p.handleFailure(ctx, item.ID, err)
			continue
		}
		synced++
	}
	return synced, nil
}

// handleFailure flags a bill once it has failed MaxRetries times.
func (p *SyncProcessor) handleFailure(ctx context.Context, id string, syncErr error) {
	p.mu.Lock()
	p.attempts[id]++
	attempts := p.attempts[id]
	if attempts >= p.config.MaxRetries {
		delete(p.attempts, id)
	}
	p.mu.Unlock()

	logger().WarnContext(ctx, "Bill sync failed",
		applog.FieldBillID, id,
		"attempt", attempts,
		applog.FieldError, syncErr)

	if attempts < p.config.MaxRetries {
		return
	}
	if err := p.storage.MarkSyncError(ctx, id); err != nil {
		logger().ErrorContext(ctx, "Failed to mark bill sync error", applog.FieldBillID, id, applog.FieldError, err)
	}
	logger().ErrorContext(ctx, "Bill sync failed permanently after max retries",
		applog.FieldBillID, id,
		"attempts", attempts)
}

// Start begins the polling loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	logger().InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		logger().InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		logger().WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *SyncProcessor) poll(ctx context.Context) {
	if _, err := p.ProcessPending(ctx, 0); err != nil && ctx.Err() == nil {
		logger().ErrorContext(ctx, "Failed to process pending bills", applog.FieldError, err)
	}
}
