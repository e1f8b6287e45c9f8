package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"billed/internal/core"
	"billed/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	baseURL  string
	bills    []core.BillRecord
	receipts map[string]core.ReceiptFile
}

func New(baseURL string, seed []core.BillRecord) *Store {
	bills := make([]core.BillRecord, 0, len(seed))
	for _, b := range seed {
		bills = append(bills, b.Clone())
	}
	return &Store{
		baseURL:  baseURL,
		bills:    bills,
		receipts: map[string]core.ReceiptFile{},
	}
}

// NewFromFiles seeds the store from base/bills.json when it exists.
func NewFromFiles(base, baseURL string) *Store {
	return New(baseURL, readBills(filepath.Join(base, "bills.json")))
}

// List returns copies of the stored bills in insertion order.
func (s *Store) List(_ context.Context) ([]core.BillRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BillRecord, len(s.bills))
	for i, b := range s.bills {
		out[i] = b.Clone()
	}
	return out, nil
}

// Create keeps the receipt and opens a pending bill keyed by the receipt key.
func (s *Store) Create(_ context.Context, req store.UploadRequest) (store.UploadResult, error) {
	file := store.ReceiptFromUpload(req)
	if err := file.Validate(); err != nil {
		return store.UploadResult{}, err
	}
	key := uuid.NewString()
	fileURL := store.ReceiptURL(s.baseURL, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[key] = file
	s.bills = append(s.bills, core.BillRecord{
		ID:       key,
		FileURL:  core.StringPtr(fileURL),
		FileName: core.StringPtr(req.FileName),
		Pct:      core.DefaultPct,
		Status:   core.StatusPending,
		Email:    req.Email,
	})
	return store.UploadResult{FileURL: fileURL, Key: key}, nil
}

// Update patches the selected bill, or appends a new one without selector.
func (s *Store) Update(_ context.Context, req store.UpdateRequest) error {
	d, err := store.DecodeUpdate(req)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Selector == nil {
		s.bills = append(s.bills, d.Record(uuid.NewString(), "").Clone())
		return nil
	}
	for i, b := range s.bills {
		if b.ID == *req.Selector {
			s.bills[i] = b.Apply(d)
			return nil
		}
	}
	return fmt.Errorf("update %s: %w", *req.Selector, store.ErrNotFound)
}

// Receipt returns an uploaded receipt by key.
func (s *Store) Receipt(_ context.Context, key string) (core.ReceiptFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.receipts[key]
	if !ok {
		return core.ReceiptFile{}, fmt.Errorf("receipt %s: %w", key, store.ErrNotFound)
	}
	return f, nil
}

func readBills(path string) []core.BillRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []core.BillRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
