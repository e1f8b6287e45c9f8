package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"billed/internal/config"
	"billed/internal/store"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets is not a bill store backend")
	}
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "sqlite,memory" {
		t.Errorf("GetBackendTypeStrings() = %s", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:   "sqlite",
		SQLiteDBPath:  "x.db",
		UploadDir:     "receipts",
		PublicBaseURL: "http://localhost:8081",
		AMQPURL:       "amqp://localhost/",
	})
	if err != nil {
		t.Fatalf("FromAppConfig() = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.UploadDir != "receipts" || cfg.AMQPURL != "amqp://localhost/" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, PublicBaseURL: "http://x"}, false},
		{"sqlite", Config{Type: SQLiteBackend, PublicBaseURL: "http://x", SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, PublicBaseURL: "http://x"}, true},
		{"missing base url", Config{Type: MemoryBackend}, true},
		{"unknown type", Config{Type: "sheets", PublicBaseURL: "http://x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_MemoryBackend(t *testing.T) {
	dir := t.TempDir()
	seed := `[{"id":"b1","type":"Restaurants et bars","name":"Lunch","amount":12,"date":"2024-03-01","vat":"2","pct":20,"commentary":"","fileUrl":null,"fileName":null,"status":"pending","email":"a@b.c"}]`
	if err := os.WriteFile(filepath.Join(dir, "bills.json"), []byte(seed), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		PublicBaseURL: "http://localhost:8081",
		DataDirectory: dir,
	})
	if err != nil {
		t.Fatalf("CreateBackend() = %v", err)
	}
	if res.Cleanup != nil {
		t.Error("memory backend needs no cleanup")
	}

	bills, err := res.Backend.List(context.Background())
	if err != nil || len(bills) != 1 || bills[0].ID != "b1" {
		t.Fatalf("List() = %+v, %v", bills, err)
	}
}

func TestFactory_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:          SQLiteBackend,
		PublicBaseURL: "http://localhost:8081",
		SQLiteDBPath:  filepath.Join(dir, "billed.db"),
		UploadDir:     filepath.Join(dir, "receipts"),
	})
	if err != nil {
		t.Fatalf("CreateBackend() = %v", err)
	}
	t.Cleanup(func() {
		if err := res.Cleanup(); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	})

	ctx := context.Background()
	up, err := res.Backend.Create(ctx, store.UploadRequest{
		Email:       "a@b.c",
		FileName:    "receipt.png",
		ContentType: "image/png",
		Content:     []byte("\x89PNG\r\n\x1a\n"),
	})
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if !strings.HasPrefix(up.FileURL, "http://localhost:8081/receipts/") {
		t.Errorf("file url: %s", up.FileURL)
	}

	f, err := res.Backend.Receipt(ctx, up.Key)
	if err != nil || f.Name != "receipt.png" {
		t.Errorf("Receipt() = %+v, %v", f, err)
	}
}
