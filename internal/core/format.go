package core

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// frenchShortMonths are the abbreviated month names used by French locales.
var frenchShortMonths = [12]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// Accepted layouts for stored bill dates, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var statusLabels = map[BillStatus]string{
	StatusPending:  "En attente",
	StatusAccepted: "Accepté",
	StatusRefused:  "Refused",
}

// labelStatuses is the reverse table used when a label comes back from the
// view. "Refused" is not French and has no entry.
var labelStatuses = map[string]BillStatus{
	"En attente": StatusPending,
	"Accepté":    StatusAccepted,
	"Refusé":     StatusRefused,
}

// ParseDate parses an ISO date as stored by the store.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
}

// FormatDate turns an ISO date into the short display form, e.g.
// "2023-04-26" -> "26 Avr. 23".
//
// On a parse failure the raw value is returned together with an error
// wrapping ErrMalformedDate, so callers can display it unchanged.
func FormatDate(raw string) (string, error) {
	t, err := ParseDate(raw)
	if err != nil {
		return raw, err
	}
	return FormatTime(t), nil
}

// FormatTime formats t using the wall-clock date it carries.
func FormatTime(t time.Time) string {
	month := cases.Title(language.French).String(frenchShortMonths[t.Month()-1])
	month = firstRunes(strings.TrimSuffix(month, "."), 3)
	return fmt.Sprintf("%d %s. %02d", t.Day(), month, t.Year()%100)
}

// FormatStatus returns the display label for a status. Unknown values are
// returned as-is.
func FormatStatus(s BillStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// StatusFromLabel maps a display label back to its canonical status.
func StatusFromLabel(label string) (BillStatus, bool) {
	s, ok := labelStatuses[strings.TrimSpace(label)]
	return s, ok
}

// Display projects a record for the bills view. A malformed date is kept
// raw and reported through the returned error; the projection is still
// usable.
func Display(b BillRecord) (DisplayBill, error) {
	date, err := FormatDate(b.Date)
	return DisplayBill{
		ID:         b.ID,
		Type:       b.Type,
		Name:       b.Name,
		Amount:     b.Amount,
		Date:       date,
		VAT:        b.VAT,
		Pct:        b.Pct,
		Commentary: b.Commentary,
		FileURL:    b.FileURL,
		FileName:   b.FileName,
		Status:     FormatStatus(b.Status),
		Email:      b.Email,
	}, err
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
