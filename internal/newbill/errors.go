package newbill

import "fmt"

// ValidationError reports a receipt refused before any upload.
type ValidationError struct {
	File string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("receipt %q rejected: %v", e.File, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UploadError reports a receipt the store failed to accept.
type UploadError struct {
	File string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload receipt %q: %v", e.File, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a bill the store failed to save.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save bill: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
