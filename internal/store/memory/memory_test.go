package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"billed/internal/core"
	"billed/internal/store"
)

func TestMemoryStoreCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := New("http://localhost:5678", nil)

	res, err := s.Create(ctx, store.UploadRequest{Email: "a@b.c", FileName: "r.jpg", Content: []byte("x")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Key == "" || res.FileURL != "http://localhost:5678/receipts/"+res.Key {
		t.Fatalf("unexpected upload result %+v", res)
	}

	d := core.NewDraft(core.BillForm{Type: "Transports", Amount: "12"}, core.StringPtr(res.FileURL), core.StringPtr("r.jpg"))
	wire, _ := d.MarshalWire()
	if err := s.Update(ctx, store.UpdateRequest{Data: wire, Selector: &res.Key}); err != nil {
		t.Fatalf("update: %v", err)
	}

	bills, _ := s.List(ctx)
	if len(bills) != 1 {
		t.Fatalf("expected 1 bill, got %d", len(bills))
	}
	b := bills[0]
	if b.ID != res.Key || b.Email != "a@b.c" || b.Type != "Transports" || *b.Amount != 12 {
		t.Fatalf("unexpected bill %+v", b)
	}

	f, err := s.Receipt(ctx, res.Key)
	if err != nil || f.Name != "r.jpg" {
		t.Fatalf("receipt lookup: %+v err=%v", f, err)
	}
}

func TestMemoryStoreUpdateWithoutSelectorAppends(t *testing.T) {
	ctx := context.Background()
	s := New("", nil)
	wire, _ := core.NewDraft(core.BillForm{Type: "Transports"}, nil, nil).MarshalWire()
	if err := s.Update(ctx, store.UpdateRequest{Data: wire}); err != nil {
		t.Fatalf("update: %v", err)
	}
	bills, _ := s.List(ctx)
	if len(bills) != 1 || bills[0].ID == "" || bills[0].FileURL != nil {
		t.Fatalf("unexpected bills %+v", bills)
	}
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := New("", nil)
	if _, err := s.Create(ctx, store.UploadRequest{FileName: "r.pdf"}); !errors.Is(err, core.ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
	wire, _ := core.NewDraft(core.BillForm{}, nil, nil).MarshalWire()
	missing := "nope"
	if err := s.Update(ctx, store.UpdateRequest{Data: wire, Selector: &missing}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Update(ctx, store.UpdateRequest{Data: "not json"}); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := s.Receipt(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New("", []core.BillRecord{{ID: "1", Amount: core.IntPtr(5), Status: core.StatusPending}})
	first, _ := s.List(ctx)
	*first[0].Amount = 99
	first[0].Name = "changed"
	second, _ := s.List(ctx)
	if *second[0].Amount != 5 || second[0].Name != "" {
		t.Fatalf("store data mutated through List result: %+v", second[0])
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir, "")
	bills, _ := s.List(context.Background())
	if len(bills) != 0 {
		t.Fatalf("expected empty store when fixture missing")
	}

	content := `[{"id":"47qAXb6fIm2zOKkLzMro","type":"Hôtel et logement","name":"encore","amount":400,"date":"2004-04-04","vat":"80","pct":20,"commentary":"séminaire billed","fileUrl":null,"fileName":null,"status":"pending","email":"a@a"}]`
	if err := os.WriteFile(filepath.Join(dir, "bills.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s = NewFromFiles(dir, "")
	bills, _ = s.List(context.Background())
	if len(bills) != 1 || bills[0].Name != "encore" || *bills[0].Amount != 400 {
		t.Fatalf("unexpected seeded bills %+v", bills)
	}
}
