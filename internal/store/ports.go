package store

import (
	"context"
	"errors"

	"billed/internal/core"
)

var ErrNotFound = errors.New("bill not found")

// Ports consumed by the bills and new bill components.
type (
	BillLister interface {
		List(ctx context.Context) ([]core.BillRecord, error)
	}

	// ReceiptUploader stores a receipt file and returns where it lives.
	ReceiptUploader interface {
		Create(ctx context.Context, req UploadRequest) (UploadResult, error)
	}

	// BillUpdater persists a serialized bill. A nil selector creates a record.
	BillUpdater interface {
		Update(ctx context.Context, req UpdateRequest) error
	}

	// ReceiptReader serves a previously uploaded receipt.
	ReceiptReader interface {
		Receipt(ctx context.Context, key string) (core.ReceiptFile, error)
	}

	// Store bundles the bill capabilities of a remote store.
	Store interface {
		BillLister
		ReceiptUploader
		BillUpdater
	}

	// Navigator switches the displayed view.
	Navigator interface {
		Navigate(route string)
	}

	// SessionProvider returns the connected user. Implementations are read on
	// every call and must not cache.
	SessionProvider interface {
		Session() (core.Session, error)
	}
)

// UploadRequest is the multipart payload of a receipt upload.
type UploadRequest struct {
	Email       string
	FileName    string
	ContentType string
	Content     []byte
	// NoContentType leaves the Content-Type header to the multipart encoder.
	NoContentType bool
}

// UploadResult identifies an uploaded receipt.
type UploadResult struct {
	FileURL string `json:"fileUrl"`
	Key     string `json:"key"`
}

// UpdateRequest carries a bill serialized with core.Draft.MarshalWire.
type UpdateRequest struct {
	Data     string  `json:"data"`
	Selector *string `json:"selector"`
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) {
	f(route)
}

// SessionFunc adapts a function to SessionProvider.
type SessionFunc func() (core.Session, error)

func (f SessionFunc) Session() (core.Session, error) {
	return f()
}
