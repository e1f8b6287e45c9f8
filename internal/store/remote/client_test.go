package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billed/internal/core"
	"billed/internal/store"
)

func TestClient_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/bills", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":"47qAXb6fIm2zOKkLzMro","type":"Hôtel et logement","name":"encore","amount":400,"date":"2004-04-04","vat":"80","pct":20,"commentary":"séminaire billed","fileUrl":"https://test.storage.tld/x.jpg","fileName":"preview.jpg","status":"pending","email":"a@a"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	bills, err := c.List(context.Background())

	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "encore", bills[0].Name)
	assert.Equal(t, 400, *bills[0].Amount)
	assert.Equal(t, core.StatusPending, bills[0].Status)
}

func TestClient_ListErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"server_error","error_description":"Erreur 500"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", 0).List(context.Background())

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.Code)
	assert.Equal(t, "Erreur 500", serr.Message)
}

func TestClient_CreateSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "a@a", r.FormValue("email"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "filename.jpg", hdr.Filename)
		assert.Equal(t, "application/octet-stream", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "file content", string(data))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(store.UploadResult{FileURL: "https://localhost:3456/images/test.jpg", Key: "1234"})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "", time.Second).Create(context.Background(), store.UploadRequest{
		Email:         "a@a",
		FileName:      "filename.jpg",
		ContentType:   "image/jpeg",
		Content:       []byte("file content"),
		NoContentType: true,
	})

	require.NoError(t, err)
	assert.Equal(t, store.UploadResult{FileURL: "https://localhost:3456/images/test.jpg", Key: "1234"}, res)
}

func TestClient_CreateWithContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"fileUrl":"u","key":"k"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Create(context.Background(), store.UploadRequest{
		FileName:    "scan.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)
}

func TestClient_UpdateRoutes(t *testing.T) {
	const data = `{"type":"Transports","name":"","amount":null,"date":"","vat":"","pct":20,"commentary":"","fileUrl":null,"fileName":null,"status":"pending"}`

	tests := []struct {
		name       string
		selector   *string
		wantMethod string
		wantPath   string
	}{
		{"create", nil, http.MethodPost, "/bills"},
		{"update", core.StringPtr("1234"), http.MethodPatch, "/bills/1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, data, string(body))
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			err := NewClient(srv.URL, "", time.Second).Update(context.Background(), store.UpdateRequest{Data: data, Selector: tt.selector})
			require.NoError(t, err)
		})
	}
}

func TestClient_UpdateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "", time.Second).Update(context.Background(), store.UpdateRequest{Data: "{}", Selector: core.StringPtr("nope")})

	assert.ErrorIs(t, err, store.ErrNotFound)
	var serr *StatusError
	assert.ErrorAs(t, err, &serr)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, "", time.Second).List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
