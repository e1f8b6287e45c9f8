package google

import (
	"fmt"
	"strconv"
	"strings"

	"billed/internal/core"
)

// Column indexes of a bill row.
const (
	colID = iota
	colType
	colName
	colAmount
	colDate
	colVAT
	colPct
	colCommentary
	colFileURL
	colFileName
	colStatus
	colLabel
	colEmail
)

type sheetBill struct {
	row  int
	bill core.BillRecord
}

// billRow converts a bill into sheet cells. Null amounts and receipts are
// written as empty cells; the status is written both raw and as its label.
func billRow(b core.BillRecord) []any {
	amount := any("")
	if b.Amount != nil {
		amount = *b.Amount
	}
	return []any{
		b.ID,
		string(b.Type),
		b.Name,
		amount,
		b.Date,
		b.VAT,
		b.Pct,
		b.Commentary,
		deref(b.FileURL),
		deref(b.FileName),
		string(b.Status),
		core.FormatStatus(b.Status),
		b.Email,
	}
}

// parseBills reads bill rows, skipping the header and rows without an ID.
func parseBills(values [][]any) []sheetBill {
	var out []sheetBill
	for i, raw := range values {
		row := toStrings(raw)
		id := safeGet(row, colID)
		if id == "" || (i == 0 && strings.EqualFold(id, "ID")) {
			continue
		}
		b := core.BillRecord{
			ID:         id,
			Type:       core.ExpenseType(safeGet(row, colType)),
			Name:       safeGet(row, colName),
			Amount:     parseAmountCell(safeGet(row, colAmount)),
			Date:       safeGet(row, colDate),
			VAT:        safeGet(row, colVAT),
			Pct:        core.ParsePct(safeGet(row, colPct)),
			Commentary: safeGet(row, colCommentary),
			FileURL:    optional(safeGet(row, colFileURL)),
			FileName:   optional(safeGet(row, colFileName)),
			Status:     parseStatus(safeGet(row, colStatus), safeGet(row, colLabel)),
			Email:      safeGet(row, colEmail),
		}
		out = append(out, sheetBill{row: i + 1, bill: b})
	}
	return out
}

// findRow returns the 1-based row whose first cell is id, or the row after
// the last one when id is absent.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return len(values) + 1
}

// parseStatus prefers the raw status and falls back to the label, which
// only resolves pending and accepted bills.
func parseStatus(raw, label string) core.BillStatus {
	if s := core.BillStatus(raw); s.IsValid() {
		return s
	}
	if s, ok := core.StatusFromLabel(label); ok {
		return s
	}
	return core.StatusPending
}

// parseAmountCell accepts integers and whole floats as the API may return
// either.
func parseAmountCell(s string) *int {
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return core.IntPtr(n)
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return core.IntPtr(int(f))
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return core.StringPtr(s)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
