package core

import (
	"net/url"
	"testing"
)

func TestDraftMarshalWireExactBody(t *testing.T) {
	d := NewDraft(BillForm{Type: "Hôtel et logement"}, StringPtr("test-file-url"), StringPtr("test-file-name"))
	got, err := d.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"Hôtel et logement","name":"","amount":null,"date":"","vat":"","pct":20,"commentary":"","fileUrl":"test-file-url","fileName":"test-file-name","status":"pending"}`
	if got != want {
		t.Fatalf("unexpected wire body\n got: %s\nwant: %s", got, want)
	}
}

func TestDraftMarshalWireNoFile(t *testing.T) {
	d := NewDraft(BillForm{Type: "Transports", Name: "R&D <trip>", Amount: "100", Date: "2024-05-10", VAT: "VAT123", Pct: "10", Commentary: "ok"}, nil, nil)
	got, err := d.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"Transports","name":"R&D <trip>","amount":100,"date":"2024-05-10","vat":"VAT123","pct":10,"commentary":"ok","fileUrl":null,"fileName":null,"status":"pending"}`
	if got != want {
		t.Fatalf("unexpected wire body\n got: %s\nwant: %s", got, want)
	}
}

func TestFormFromValuesMissingFields(t *testing.T) {
	f := FormFromValues(url.Values{FieldExpenseType: {"Transports"}, FieldAmount: {" 12 "}})
	if f.Type != "Transports" || f.Amount != "12" {
		t.Fatalf("unexpected form %+v", f)
	}
	if f.Name != "" || f.Date != "" || f.VAT != "" || f.Pct != "" || f.Commentary != "" {
		t.Fatalf("missing fields should be empty: %+v", f)
	}
}

func TestDecodeDraftRecord(t *testing.T) {
	d := NewDraft(BillForm{Type: "Transports", Amount: "42"}, StringPtr("u"), StringPtr("n"))
	wire, err := d.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := DecodeDraft(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec := back.Record("id-1", "a@b.c")
	if rec.ID != "id-1" || rec.Email != "a@b.c" || *rec.Amount != 42 || *rec.FileURL != "u" || rec.Status != StatusPending {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := DecodeDraft("{"); err == nil {
		t.Fatalf("expected decode error")
	}
}
