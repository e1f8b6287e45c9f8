package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"billed/internal/amqp"
	"billed/internal/core"
	applog "billed/internal/log"
	"billed/internal/store"
)

// BillRepository is the persistent side of the bill service.
type BillRepository interface {
	store.BillLister
	store.ReceiptUploader
	store.ReceiptReader
	Save(ctx context.Context, req store.UpdateRequest) (core.BillRecord, error)
	Version(ctx context.Context, id string) (int64, error)
}

// BillService stores bills and announces every change on AMQP so the worker
// can mirror it.
type BillService struct {
	repo      BillRepository
	publisher amqp.Publisher
}

var _ store.Store = (*BillService)(nil)

// NewBillService builds the service. A nil publisher disables sync
// messages; pending bills are then picked up by the sync processor.
func NewBillService(repo BillRepository, publisher amqp.Publisher) *BillService {
	return &BillService{repo: repo, publisher: publisher}
}

func (s *BillService) List(ctx context.Context) ([]core.BillRecord, error) {
	return s.repo.List(ctx)
}

// Create stores the receipt and announces the placeholder bill.
func (s *BillService) Create(ctx context.Context, req store.UploadRequest) (store.UploadResult, error) {
	res, err := s.repo.Create(ctx, req)
	if err != nil {
		return store.UploadResult{}, fmt.Errorf("save receipt: %w", err)
	}
	s.publish(ctx, res.Key, 1)
	return res, nil
}

// Update saves the bill first, then publishes its new version. A publish
// failure is logged and does not fail the update.
func (s *BillService) Update(ctx context.Context, req store.UpdateRequest) error {
	_, err := s.Save(ctx, req)
	return err
}

// Save is Update returning the stored bill.
func (s *BillService) Save(ctx context.Context, req store.UpdateRequest) (core.BillRecord, error) {
	b, err := s.repo.Save(ctx, req)
	if err != nil {
		return core.BillRecord{}, err
	}

	version, err := s.repo.Version(ctx, b.ID)
	if err != nil {
		logger().ErrorContext(ctx, "Failed to read bill version", applog.FieldBillID, b.ID, applog.FieldError, err)
		return b, nil
	}
	s.publish(ctx, b.ID, version)
	return b, nil
}

func (s *BillService) Receipt(ctx context.Context, key string) (core.ReceiptFile, error) {
	return s.repo.Receipt(ctx, key)
}

// Ping reports whether the repository is reachable.
func (s *BillService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *BillService) publish(ctx context.Context, id string, version int64) {
	if s.publisher == nil {
		logger().DebugContext(ctx, "AMQP publisher not configured, skipping sync message", applog.FieldBillID, id)
		return
	}
	if err := s.publisher.PublishBillSync(ctx, id, version); err != nil {
		logger().ErrorContext(ctx, "Failed to publish sync message",
			applog.FieldBillID, id, applog.FieldVersion, version, applog.FieldError, err)
	}
}

// Close closes the repository and the publisher when they support it.
func (s *BillService) Close() error {
	var errs []error
	if c, ok := s.repo.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close bill service: %w", errors.Join(errs...))
	}
	return nil
}

func logger() *slog.Logger {
	return applog.For(slog.Default(), applog.ComponentSync)
}
