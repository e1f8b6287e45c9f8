package store

import (
	"fmt"
	"strings"

	"billed/internal/core"
)

// DecodeUpdate parses and validates the bill carried by an update request.
func DecodeUpdate(req UpdateRequest) (core.Draft, error) {
	d, err := core.DecodeDraft(req.Data)
	if err != nil {
		return core.Draft{}, err
	}
	if d.Status == "" {
		d.Status = core.StatusPending
	}
	if err := d.Record("", "").Validate(); err != nil {
		return core.Draft{}, fmt.Errorf("invalid bill: %w", err)
	}
	return d, nil
}

// ReceiptFromUpload converts an upload request into a receipt file.
func ReceiptFromUpload(req UploadRequest) core.ReceiptFile {
	return core.ReceiptFile{
		Name:        req.FileName,
		ContentType: req.ContentType,
		Content:     req.Content,
	}
}

// ReceiptURL joins a public base URL and a receipt key.
func ReceiptURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + "/receipts/" + key
}
