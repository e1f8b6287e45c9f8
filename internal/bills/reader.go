// Package bills lists the connected user's bills for display.
package bills

import (
	"context"
	"log/slog"
	"sort"

	"billed/internal/core"
	applog "billed/internal/log"
	"billed/internal/store"
)

// Reader fetches bills from the store and projects them for the bills view.
type Reader struct {
	store  store.BillLister
	nav    store.Navigator
	logger *slog.Logger
}

func NewReader(lister store.BillLister, nav store.Navigator, logger *slog.Logger) *Reader {
	return &Reader{
		store:  lister,
		nav:    nav,
		logger: applog.For(logger, applog.ComponentBills),
	}
}

// Bills returns every bill with its date and status formatted for display,
// in the order the store yields them. Store errors are returned as-is. A
// bill whose date cannot be parsed keeps the raw date.
func (r *Reader) Bills(ctx context.Context) ([]core.DisplayBill, error) {
	records, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.DisplayBill, 0, len(records))
	for _, rec := range records {
		b, err := core.Display(rec)
		if err != nil {
			r.logger.WarnContext(ctx, "Keeping raw bill date",
				applog.FieldOperation, applog.OpList,
				applog.FieldBillID, rec.ID,
				"date", rec.Date,
				applog.FieldError, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// NewBill opens the new bill page.
func (r *Reader) NewBill() {
	r.nav.Navigate(core.RouteNewBill)
}

// Receipt returns the URL of the receipt attached to b.
func (r *Reader) Receipt(b core.DisplayBill) (string, error) {
	if b.FileURL == nil || *b.FileURL == "" {
		return "", core.ErrNoReceipt
	}
	return *b.FileURL, nil
}

// NewestFirst wraps a lister so records come back sorted by date, newest
// first. Records with unparseable dates go last, in store order.
func NewestFirst(lister store.BillLister) store.BillLister {
	return sortedLister{lister}
}

type sortedLister struct {
	store.BillLister
}

func (l sortedLister) List(ctx context.Context) ([]core.BillRecord, error) {
	records, err := l.BillLister.List(ctx)
	if err != nil {
		return nil, err
	}
	sorted := append([]core.BillRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, erri := core.ParseDate(sorted[i].Date)
		tj, errj := core.ParseDate(sorted[j].Date)
		switch {
		case erri != nil:
			return false
		case errj != nil:
			return true
		default:
			return ti.After(tj)
		}
	})
	return sorted, nil
}
