package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Identifiers of the new bill form fields.
const (
	FieldExpenseType = "expense-type"
	FieldExpenseName = "expense-name"
	FieldDate        = "datepicker"
	FieldAmount      = "amount"
	FieldVAT         = "vat"
	FieldPct         = "pct"
	FieldCommentary  = "commentary"
	FieldFile        = "file"
)

// BillForm holds the raw values typed into the new bill form.
type BillForm struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

// FormFromValues resolves the form fields by identifier. Missing fields are
// left empty.
func FormFromValues(v url.Values) BillForm {
	get := func(key string) string {
		return strings.TrimSpace(v.Get(key))
	}
	return BillForm{
		Type:       get(FieldExpenseType),
		Name:       get(FieldExpenseName),
		Date:       get(FieldDate),
		Amount:     get(FieldAmount),
		VAT:        get(FieldVAT),
		Pct:        get(FieldPct),
		Commentary: get(FieldCommentary),
	}
}

// Draft is the bill being composed. Its field order is the wire order the
// stores expect.
type Draft struct {
	Type       ExpenseType `json:"type"`
	Name       string      `json:"name"`
	Amount     *int        `json:"amount"`
	Date       string      `json:"date"`
	VAT        string      `json:"vat"`
	Pct        int         `json:"pct"`
	Commentary string      `json:"commentary"`
	FileURL    *string     `json:"fileUrl"`
	FileName   *string     `json:"fileName"`
	Status     BillStatus  `json:"status"`
}

// NewDraft builds a pending draft from the form values and the receipt
// references, which stay nil when no receipt was uploaded.
func NewDraft(f BillForm, fileURL, fileName *string) Draft {
	return Draft{
		Type:       ExpenseType(f.Type),
		Name:       f.Name,
		Amount:     ParseAmount(f.Amount),
		Date:       f.Date,
		VAT:        f.VAT,
		Pct:        ParsePct(f.Pct),
		Commentary: f.Commentary,
		FileURL:    fileURL,
		FileName:   fileName,
		Status:     StatusPending,
	}
}

// MarshalWire encodes the draft as compact JSON without HTML escaping.
func (d Draft) MarshalWire() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Record converts the draft to a store record.
func (d Draft) Record(id, email string) BillRecord {
	return BillRecord{
		ID:         id,
		Type:       d.Type,
		Name:       d.Name,
		Amount:     d.Amount,
		Date:       d.Date,
		VAT:        d.VAT,
		Pct:        d.Pct,
		Commentary: d.Commentary,
		FileURL:    d.FileURL,
		FileName:   d.FileName,
		Status:     d.Status,
		Email:      email,
	}
}

// DecodeDraft parses a wire payload produced by MarshalWire.
func DecodeDraft(data string) (Draft, error) {
	var d Draft
	dec := json.NewDecoder(strings.NewReader(data))
	if err := dec.Decode(&d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}
