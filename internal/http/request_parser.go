package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"billed/internal/core"
	"billed/internal/store"
)

const maxBillBodyBytes = 64 << 10

// requestError is a client error with its API error code.
type requestError struct {
	status int
	code   string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(code, format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, code: code, msg: fmt.Sprintf(format, args...)}
}

// uploadForm holds the non-file fields of a receipt upload.
type uploadForm struct {
	Email    string `validate:"required,email"`
	FileName string `validate:"required,max=255"`
}

// billPayload mirrors the serialized draft for validation only; the raw
// body is what gets stored.
type billPayload struct {
	Type       string  `json:"type" validate:"max=100"`
	Name       string  `json:"name" validate:"max=200"`
	Amount     *int    `json:"amount"`
	Date       string  `json:"date" validate:"omitempty,billdate"`
	VAT        string  `json:"vat" validate:"max=50"`
	Pct        int     `json:"pct" validate:"min=0,max=100"`
	Commentary string  `json:"commentary" validate:"max=1000"`
	FileURL    *string `json:"fileUrl" validate:"omitempty,url"`
	FileName   *string `json:"fileName" validate:"omitempty,max=255"`
	Status     string  `json:"status" validate:"omitempty,oneof=pending accepted refused"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("billdate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// parseUploadRequest reads the multipart fields file and email.
func (s *Server) parseUploadRequest(w http.ResponseWriter, r *http.Request) (store.UploadRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return store.UploadRequest{}, err
		}
		return store.UploadRequest{}, badRequest("invalid_request", "Failed to parse multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return store.UploadRequest{}, badRequest("invalid_parameter", "Missing receipt file")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return store.UploadRequest{}, fmt.Errorf("read receipt: %w", err)
	}

	form := uploadForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		FileName: sanitizeInput(header.Filename),
	}
	if err := s.validate.Struct(form); err != nil {
		return store.UploadRequest{}, validationError(err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(content).String()
	}

	return store.UploadRequest{
		Email:       form.Email,
		FileName:    form.FileName,
		ContentType: contentType,
		Content:     content,
	}, nil
}

// parseBillRequest validates a serialized bill and wraps it for the store.
func (s *Server) parseBillRequest(w http.ResponseWriter, r *http.Request, selector *string) (store.UpdateRequest, billPayload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBillBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return store.UpdateRequest{}, billPayload{}, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return store.UpdateRequest{}, billPayload{}, badRequest("invalid_request", "Empty request body")
	}

	var p billPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return store.UpdateRequest{}, billPayload{}, badRequest("invalid_request", "Invalid JSON body: %v", err)
	}
	if err := s.validate.Struct(p); err != nil {
		return store.UpdateRequest{}, billPayload{}, validationError(err)
	}

	return store.UpdateRequest{Data: string(data), Selector: selector}, p, nil
}

// validationError lists the failing fields in one message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &requestError{status: http.StatusUnprocessableEntity, code: "invalid_bill", msg: err.Error()}
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return &requestError{
		status: http.StatusUnprocessableEntity,
		code:   "invalid_bill",
		msg:    strings.Join(parts, "; "),
	}
}
