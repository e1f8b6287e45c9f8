// Package newbill drives the new bill form: receipt validation, immediate
// receipt upload and submission of the completed bill.
package newbill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"billed/internal/core"
	applog "billed/internal/log"
	"billed/internal/store"
)

// State of the form session.
type State int

const (
	StateIdle State = iota
	StateFileSelected
	StateUploading
	StateUploaded
	StateSubmitting
	StateSubmitted
	StateFileRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileSelected:
		return "file_selected"
	case StateUploading:
		return "uploading"
	case StateUploaded:
		return "uploaded"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFileRejected:
		return "file_rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrSuperseded is returned by an upload whose file was replaced by a
	// newer selection before it completed. Its result is discarded.
	ErrSuperseded = errors.New("receipt selection superseded")

	// ErrSubmitInProgress is returned by Submit while another Submit on
	// the same form is persisting.
	ErrSubmitInProgress = errors.New("bill submission already in progress")

	// ErrAlreadySubmitted is returned by Submit once the bill has been
	// persisted. The draft was consumed; a new receipt selection starts
	// the next one.
	ErrAlreadySubmitted = errors.New("bill already submitted")
)

// Store is the part of the remote store the form needs.
type Store interface {
	store.ReceiptUploader
	store.BillUpdater
}

// Submitter owns the draft of one new bill form session.
type Submitter struct {
	store   Store
	nav     store.Navigator
	session store.SessionProvider
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	fileURL  *string
	fileName *string
	billID   *string
	// gen increases on every file selection; an upload only applies its
	// result while its generation is current.
	gen uint64
	// pending is closed when the current upload settles.
	pending chan struct{}
}

func New(st Store, nav store.Navigator, session store.SessionProvider, logger *slog.Logger) *Submitter {
	return &Submitter{
		store:   st,
		nav:     nav,
		session: session,
		logger:  applog.For(logger, applog.ComponentNewBill),
	}
}

// State returns the current state of the form session.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Receipt returns the uploaded receipt references, if any.
func (s *Submitter) Receipt() (fileURL, fileName string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fileURL == nil {
		return "", "", false
	}
	if s.fileName != nil {
		fileName = *s.fileName
	}
	return *s.fileURL, fileName, true
}

// ChangeFile validates the selected receipt and uploads it right away,
// tagged with the email of the current session.
//
// An invalid file leaves the form in StateFileRejected with no receipt and
// returns a *ValidationError. A failed upload leaves it in StateIdle with no
// receipt and returns an *UploadError; the user has to select the file
// again.
func (s *Submitter) ChangeFile(ctx context.Context, file core.ReceiptFile) error {
	if err := file.Validate(); err != nil {
		s.mu.Lock()
		s.gen++
		s.clearReceipt()
		s.pending = nil
		s.state = StateFileRejected
		s.mu.Unlock()

		s.logger.WarnContext(ctx, "Receipt rejected",
			applog.FieldOperation, applog.OpValidate,
			applog.FieldFileName, file.Name,
			applog.FieldError, err)
		return &ValidationError{File: file.Name, Err: err}
	}

	done := make(chan struct{})
	defer close(done)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.clearReceipt()
	s.pending = done
	s.state = StateFileSelected
	s.mu.Unlock()

	res, err := s.upload(ctx, gen, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.DebugContext(ctx, "Discarding superseded receipt upload", applog.FieldFileName, file.Name)
		return ErrSuperseded
	}
	s.pending = nil
	if err != nil {
		s.state = StateIdle
		s.logger.ErrorContext(ctx, "Receipt upload failed",
			applog.FieldOperation, applog.OpUpload,
			applog.FieldFileName, file.Name,
			applog.FieldError, err)
		return &UploadError{File: file.Name, Err: err}
	}

	s.fileURL = core.StringPtr(res.FileURL)
	s.fileName = core.StringPtr(file.Name)
	if res.Key != "" {
		s.billID = core.StringPtr(res.Key)
	}
	s.state = StateUploaded
	s.logger.InfoContext(ctx, "Receipt uploaded",
		applog.FieldOperation, applog.OpUpload,
		applog.FieldFileName, file.Name,
		applog.FieldSelector, res.Key)
	return nil
}

func (s *Submitter) upload(ctx context.Context, gen uint64, file core.ReceiptFile) (store.UploadResult, error) {
	sess, err := s.session.Session()
	if err != nil {
		return store.UploadResult{}, fmt.Errorf("read session: %w", err)
	}

	s.mu.Lock()
	if gen == s.gen {
		s.state = StateUploading
	}
	s.mu.Unlock()

	return s.store.Create(ctx, store.UploadRequest{
		Email:         sess.Email,
		FileName:      file.Name,
		ContentType:   file.MIMEType(),
		Content:       file.Content,
		NoContentType: true,
	})
}

// Submit persists the bill described by form together with the uploaded
// receipt, then navigates back to the bills list.
//
// When a receipt upload is still running, Submit waits for it to settle so
// the persisted bill carries its outcome. A store failure returns a
// *PersistenceError and leaves the form as it was, ready to resubmit.
// Success discards the draft's receipt references; calling Submit again
// returns ErrAlreadySubmitted without reaching the store.
func (s *Submitter) Submit(ctx context.Context, form core.BillForm) error {
	if err := s.waitUpload(ctx); err != nil {
		return fmt.Errorf("wait for receipt upload: %w", err)
	}

	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return ErrSubmitInProgress
	case StateSubmitted:
		s.mu.Unlock()
		return ErrAlreadySubmitted
	}
	prev := s.state
	draft := core.NewDraft(form, copyString(s.fileURL), copyString(s.fileName))
	selector := copyString(s.billID)
	s.state = StateSubmitting
	s.mu.Unlock()

	if err := s.persist(ctx, draft, selector); err != nil {
		s.mu.Lock()
		s.state = prev
		s.mu.Unlock()

		s.logger.ErrorContext(ctx, "Bill submission failed",
			applog.FieldOperation, applog.OpSubmit,
			applog.FieldError, err)
		return &PersistenceError{Err: err}
	}

	s.mu.Lock()
	s.clearReceipt()
	s.billID = nil
	s.state = StateSubmitted
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Bill submitted",
		applog.FieldOperation, applog.OpSubmit,
		applog.FieldBillType, draft.Type,
		applog.FieldSelector, deref(selector))
	s.nav.Navigate(core.RouteBills)
	return nil
}

func (s *Submitter) persist(ctx context.Context, draft core.Draft, selector *string) error {
	data, err := draft.MarshalWire()
	if err != nil {
		return err
	}
	return s.store.Update(ctx, store.UpdateRequest{Data: data, Selector: selector})
}

func (s *Submitter) waitUpload(ctx context.Context) error {
	for {
		s.mu.Lock()
		ch := s.pending
		s.mu.Unlock()
		if ch == nil {
			return nil
		}
		select {
		case <-ch:
			s.mu.Lock()
			if s.pending == ch {
				s.pending = nil
			}
			s.mu.Unlock()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// clearReceipt must be called with mu held.
func (s *Submitter) clearReceipt() {
	s.fileURL = nil
	s.fileName = nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	return core.StringPtr(*p)
}
