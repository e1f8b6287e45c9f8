package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// allowedReceiptTypes maps accepted file extensions to their MIME type.
var allowedReceiptTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// ReceiptFile is a receipt picked by the user.
type ReceiptFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// Extension returns the lower-cased extension without the dot.
func (f ReceiptFile) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}

// Validate accepts jpg, jpeg and png receipts by extension.
func (f ReceiptFile) Validate() error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return fmt.Errorf("%w: empty file name", ErrInvalidFileType)
	}
	if _, ok := allowedReceiptTypes[f.Extension()]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidFileType, name)
	}
	return nil
}

// ValidateContent runs Validate and then sniffs the bytes, which must be a
// JPEG or PNG image.
func (f ReceiptFile) ValidateContent() error {
	if err := f.Validate(); err != nil {
		return err
	}
	detected := mimetype.Detect(f.Content)
	if !detected.Is("image/jpeg") && !detected.Is("image/png") {
		return fmt.Errorf("%w: %q has content type %s", ErrInvalidFileType, f.Name, detected.String())
	}
	return nil
}

// MIMEType returns the declared content type, falling back to the type
// implied by the extension.
func (f ReceiptFile) MIMEType() string {
	if ct := strings.TrimSpace(f.ContentType); ct != "" {
		return ct
	}
	if ct, ok := allowedReceiptTypes[f.Extension()]; ok {
		return ct
	}
	return "application/octet-stream"
}
