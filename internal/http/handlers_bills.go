package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"billed/internal/core"
	applog "billed/internal/log"
	"billed/internal/store"
)

// billSaver is implemented by backends that return the stored bill.
type billSaver interface {
	Save(ctx context.Context, req store.UpdateRequest) (core.BillRecord, error)
}

// handleListBills handles GET /bills.
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.backend.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "List bills failed", err)
		return
	}
	if bills == nil {
		bills = []core.BillRecord{}
	}
	writeJSON(w, http.StatusOK, bills)
}

// handleCreateBill handles POST /bills: a multipart body uploads a receipt,
// a JSON body creates a bill record.
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Missing or invalid Content-Type")
		return
	}
	switch mediaType {
	case "multipart/form-data":
		s.handleUpload(w, r)
	case "application/json":
		s.saveBill(w, r, nil)
	default:
		writeJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Expected multipart/form-data or application/json")
	}
}

// handleUpdateBill handles PATCH /bills/{id}.
func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing bill id")
		return
	}
	s.saveBill(w, r, &id)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseUploadRequest(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	file := store.ReceiptFromUpload(req)
	if err := file.ValidateContent(); err != nil {
		writeJSONError(w, http.StatusUnsupportedMediaType, "invalid_file_type", err.Error())
		return
	}

	res, err := s.backend.Create(r.Context(), req)
	if err != nil {
		s.writeStoreError(w, r, "Receipt upload failed", err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogReceiptUploaded(r.Context(), req.FileName, res.Key, req.Email)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) saveBill(w http.ResponseWriter, r *http.Request, selector *string) {
	req, payload, err := s.parseBillRequest(w, r, selector)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	status := http.StatusOK
	if selector == nil {
		status = http.StatusCreated
	}
	sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))

	if saver, ok := s.backend.(billSaver); ok {
		b, err := saver.Save(r.Context(), req)
		if err != nil {
			s.writeStoreError(w, r, "Save bill failed", err)
			return
		}
		sl.LogBillSaved(r.Context(), b.ID, string(b.Type), string(b.Status), selector)
		writeJSON(w, status, b)
		return
	}

	if err := s.backend.Update(r.Context(), req); err != nil {
		s.writeStoreError(w, r, "Save bill failed", err)
		return
	}
	id := ""
	if selector != nil {
		id = *selector
	}
	sl.LogBillSaved(r.Context(), id, payload.Type, payload.Status, selector)
	w.WriteHeader(status)
}

// handleReceipt handles GET /receipts/{key}.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	f, err := s.backend.Receipt(r.Context(), key)
	if err != nil {
		s.writeStoreError(w, r, "Receipt lookup failed", err)
		return
	}

	w.Header().Set("Content-Type", f.MIMEType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.Name}))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Content)
}

// writeStoreError maps backend errors to API errors and logs server faults.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), msg, err, applog.ComponentHTTP, r.Method, applog.NewFields())
		writeJSONError(w, status, code, "Internal server error")
		return
	}
	writeJSONError(w, status, code, err.Error())
}

func writeRequestError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	var reqErr *requestError
	switch {
	case errors.As(err, &tooLarge):
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request_too_large", err.Error())
	case errors.As(err, &reqErr):
		writeJSONError(w, reqErr.status, reqErr.code, reqErr.msg)
	case errors.Is(err, io.ErrUnexpectedEOF):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Truncated request body")
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	}
}
