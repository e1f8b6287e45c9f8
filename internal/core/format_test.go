package core

import (
	"errors"
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"2023-04-26T00:00:00", "26 Avr. 23"},
		{"2023-04-27", "27 Avr. 23"},
		{"2023-04-28T10:30:00Z", "28 Avr. 23"},
		{"2004-01-01", "1 Jan. 04"},
		{"2022-02-14", "14 Fév. 22"},
		{"2021-03-05", "5 Mar. 21"},
		{"2021-05-09", "9 Mai. 21"},
		{"2021-06-30", "30 Jui. 21"},
		{"2021-07-14", "14 Jui. 21"},
		{"2021-08-15", "15 Aoû. 21"},
		{"2021-09-01", "1 Sep. 21"},
		{"2021-10-31", "31 Oct. 21"},
		{"2021-11-11", "11 Nov. 21"},
		{"2021-12-25", "25 Déc. 21"},
	}
	for _, tc := range cases {
		got, err := FormatDate(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.out {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

func TestFormatDateMalformedKeepsRaw(t *testing.T) {
	for _, raw := range []string{"", "not a date", "2023-13-01", "26/04/2023"} {
		got, err := FormatDate(raw)
		if !errors.Is(err, ErrMalformedDate) {
			t.Fatalf("%q: expected ErrMalformedDate, got %v", raw, err)
		}
		if got != raw {
			t.Fatalf("%q: expected raw value back, got %q", raw, got)
		}
	}
}

func TestFormatDateEveryDayOfYear(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		got, err := FormatDate(d.Format("2006-01-02"))
		if err != nil || got == "" {
			t.Fatalf("%s: got %q, err=%v", d.Format("2006-01-02"), got, err)
		}
	}
}

func TestFormatStatusLabels(t *testing.T) {
	cases := map[BillStatus]string{
		StatusPending:  "En attente",
		StatusAccepted: "Accepté",
		StatusRefused:  "Refused",
		"archived":     "archived",
	}
	for in, want := range cases {
		if got := FormatStatus(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestStatusFromLabelRoundTrip(t *testing.T) {
	for _, s := range []BillStatus{StatusPending, StatusAccepted} {
		back, ok := StatusFromLabel(FormatStatus(s))
		if !ok || back != s {
			t.Fatalf("%q: round trip gave (%q, %v)", s, back, ok)
		}
	}
	if _, ok := StatusFromLabel(FormatStatus(StatusRefused)); ok {
		t.Fatalf("the refused label is not expected to map back")
	}
}

func TestDisplay(t *testing.T) {
	rec := BillRecord{
		ID:       "b1",
		Type:     ExpenseTransport,
		Name:     "train",
		Amount:   IntPtr(120),
		Date:     "2023-04-26",
		Pct:      20,
		FileURL:  StringPtr("https://files/r.jpg"),
		FileName: StringPtr("r.jpg"),
		Status:   StatusAccepted,
		Email:    "a@b.c",
	}
	got, err := Display(rec)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.Date != "26 Avr. 23" || got.Status != "Accepté" {
		t.Fatalf("unexpected projection %+v", got)
	}
	if got.ID != "b1" || got.Name != "train" || *got.Amount != 120 || *got.FileName != "r.jpg" {
		t.Fatalf("passthrough fields lost: %+v", got)
	}

	rec.Date = "garbage"
	got, err = Display(rec)
	if err == nil || got.Date != "garbage" || got.Status != "Accepté" {
		t.Fatalf("expected soft failure, got %+v err=%v", got, err)
	}
}
