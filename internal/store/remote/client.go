// Package remote talks to the billed store API over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"billed/internal/core"
	"billed/internal/store"
)

var _ store.Store = (*Client)(nil)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Status)
}

// Client is a Store backed by the HTTP API served by cmd/billed-store.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for apiURL. An empty token sends no
// Authorization header.
func NewClient(apiURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// List fetches every bill.
func (c *Client) List(ctx context.Context) ([]core.BillRecord, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/bills", nil)
	if err != nil {
		return nil, err
	}
	var bills []core.BillRecord
	if err := c.do(req, &bills); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// Create uploads a receipt as multipart/form-data with the fields file and
// email.
func (c *Client) Create(ctx context.Context, up store.UploadRequest) (store.UploadResult, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("email", up.Email); err != nil {
		return store.UploadResult{}, err
	}
	part, err := createFilePart(w, up)
	if err != nil {
		return store.UploadResult{}, err
	}
	if _, err := part.Write(up.Content); err != nil {
		return store.UploadResult{}, err
	}
	if err := w.Close(); err != nil {
		return store.UploadResult{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/bills", body)
	if err != nil {
		return store.UploadResult{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var res store.UploadResult
	if err := c.do(req, &res); err != nil {
		return store.UploadResult{}, fmt.Errorf("upload receipt %s: %w", up.FileName, err)
	}
	return res, nil
}

// createFilePart adds the file part. With NoContentType the part carries no
// explicit type and the server sniffs it.
func createFilePart(w *multipart.Writer, up store.UploadRequest) (io.Writer, error) {
	if up.NoContentType || up.ContentType == "" {
		return w.CreateFormFile("file", up.FileName)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(up.FileName)))
	h.Set("Content-Type", up.ContentType)
	return w.CreatePart(h)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// Update sends the serialized bill as is. Without a selector the bill is
// created with POST /bills, otherwise PATCH /bills/{selector} updates it.
func (c *Client) Update(ctx context.Context, up store.UpdateRequest) error {
	method, path := http.MethodPost, "/bills"
	if up.Selector != nil {
		method, path = http.MethodPatch, "/bills/"+url.PathEscape(*up.Selector)
	}

	req, err := c.newRequest(ctx, method, path, strings.NewReader(up.Data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and decodes a JSON answer into out when out is not nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	serr := &StatusError{Code: resp.StatusCode, Status: resp.Status}
	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if json.Unmarshal(data, &body) == nil {
		serr.Message = body.ErrorDescription
		if serr.Message == "" {
			serr.Message = body.Error
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", store.ErrNotFound, serr)
	}
	return serr
}
