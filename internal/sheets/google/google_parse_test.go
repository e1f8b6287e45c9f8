package google

import (
	"testing"

	"billed/internal/core"
)

func TestParseBills(t *testing.T) {
	values := [][]interface{}{
		{"ID", "Type", "Name", "Amount", "Date", "VAT", "Pct", "Commentary", "File URL", "File name", "Status", "Statut", "Email"},
		{"47qAXb6fIm2zOKkLzMro", "Hôtel et logement", "encore", 400.0, "2004-04-04", "80", 20.0, "séminaire billed", "https://test.storage.tld/x.jpg", "preview.jpg", "pending", "En attente", "a@a"},
		{},
		{"BeKy5Mo4jkmdfPGYpTxZ", "Transports", "test1", "", "2001-01-01", "70", "30", "", "", "", "", "Refused", "b@b"},
		{"UIUZtnPQvnbFnB0ozvJh", "Services en ligne", "test3", "300", "2003-03-03", "60", "", "", "", "", "accepted", "Accepté", "c@c"},
	}

	got := parseBills(values)
	if len(got) != 3 {
		t.Fatalf("expected 3 bills, got %d", len(got))
	}

	first := got[0]
	if first.row != 2 {
		t.Errorf("first bill row: got %d, want 2", first.row)
	}
	if first.bill.Amount == nil || *first.bill.Amount != 400 {
		t.Errorf("amount: got %v", first.bill.Amount)
	}
	if first.bill.FileURL == nil || *first.bill.FileURL != "https://test.storage.tld/x.jpg" {
		t.Errorf("file url: got %v", first.bill.FileURL)
	}
	if first.bill.Status != core.StatusPending {
		t.Errorf("status: got %q", first.bill.Status)
	}

	second := got[1]
	if second.row != 4 {
		t.Errorf("second bill row: got %d, want 4", second.row)
	}
	if second.bill.Amount != nil || second.bill.FileURL != nil || second.bill.FileName != nil {
		t.Errorf("empty cells must parse as null: %+v", second.bill)
	}
	if second.bill.Pct != 30 {
		t.Errorf("pct: got %d", second.bill.Pct)
	}
	// "Refused" has no inverse label, so the bill falls back to pending.
	if second.bill.Status != core.StatusPending {
		t.Errorf("status from Refused label: got %q", second.bill.Status)
	}

	third := got[2].bill
	if third.Status != core.StatusAccepted {
		t.Errorf("status: got %q", third.Status)
	}
	if third.Pct != core.DefaultPct {
		t.Errorf("blank pct: got %d", third.Pct)
	}
}

func TestBillRowRoundTrip(t *testing.T) {
	b := core.BillRecord{
		ID:       "1234",
		Type:     core.ExpenseType("Transports"),
		Name:     "Vol",
		Amount:   core.IntPtr(348),
		Date:     "2023-04-04",
		Pct:      20,
		FileURL:  core.StringPtr("http://localhost/receipts/1234"),
		FileName: core.StringPtr("vol.jpg"),
		Status:   core.StatusRefused,
		Email:    "a@a",
	}

	row := billRow(b)
	if len(row) != len(header) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(header))
	}
	if row[colLabel] != "Refused" {
		t.Errorf("label: got %v", row[colLabel])
	}

	got := parseBills([][]interface{}{row})
	if len(got) != 1 {
		t.Fatalf("expected 1 bill, got %d", len(got))
	}
	if got[0].bill.Status != core.StatusRefused {
		t.Errorf("raw status must win over the label: got %q", got[0].bill.Status)
	}
	if *got[0].bill.Amount != 348 || *got[0].bill.FileName != "vol.jpg" {
		t.Errorf("unexpected bill: %+v", got[0].bill)
	}
}

func TestFindRow(t *testing.T) {
	values := [][]interface{}{{"ID"}, {"a"}, {}, {"b"}}
	tests := []struct {
		id   string
		want int
	}{
		{"a", 2},
		{"b", 4},
		{"missing", 5},
	}
	for _, tt := range tests {
		if got := findRow(values, tt.id); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
	if got := findRow(nil, "a"); got != 1 {
		t.Errorf("empty sheet: got %d, want 1", got)
	}
}
