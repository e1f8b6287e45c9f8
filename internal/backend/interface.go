package backend

import (
	"context"

	"billed/internal/store"
)

// Backend is everything the store API serves from.
type Backend interface {
	store.Store
	store.ReceiptReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Public address receipts are served from.
	PublicBaseURL string

	// SQLite specific
	SQLiteDBPath string
	UploadDir    string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend: directory holding an optional bills.json seed.
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
