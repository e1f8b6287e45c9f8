package bills

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billed/internal/core"
	"billed/internal/store"
)

type fakeLister struct {
	bills []core.BillRecord
	err   error
	calls int
}

func (f *fakeLister) List(_ context.Context) ([]core.BillRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bills, nil
}

type recordingNav struct {
	routes []string
}

func (n *recordingNav) Navigate(route string) {
	n.routes = append(n.routes, route)
}

func aprilBills() []core.BillRecord {
	return []core.BillRecord{
		{Date: "2023-04-26T00:00:00", Status: core.StatusPending},
		{Date: "2023-04-27T00:00:00", Status: core.StatusAccepted},
		{Date: "2023-04-28T00:00:00", Status: core.StatusRefused},
	}
}

func TestReader_Bills_FormatsDateAndStatus(t *testing.T) {
	lister := &fakeLister{bills: aprilBills()}
	reader := NewReader(lister, &recordingNav{}, nil)

	got, err := reader.Bills(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []core.DisplayBill{
		{Date: "26 Avr. 23", Status: "En attente"},
		{Date: "27 Avr. 23", Status: "Accepté"},
		{Date: "28 Avr. 23", Status: "Refused"},
	}, got)
	assert.Equal(t, 1, lister.calls)
}

func TestReader_Bills_PassesThroughOtherFields(t *testing.T) {
	lister := &fakeLister{bills: []core.BillRecord{{
		ID:         "47qAXb6fIm2zOKkLzMro",
		Type:       core.ExpenseHotel,
		Name:       "encore",
		Amount:     core.IntPtr(400),
		Date:       "2004-04-04",
		VAT:        "80",
		Pct:        20,
		Commentary: "séminaire billed",
		FileURL:    core.StringPtr("https://test.storage.tld/preview-facture-free-201801-pdf-1.jpg"),
		FileName:   core.StringPtr("preview-facture-free-201801-pdf-1.jpg"),
		Status:     core.StatusPending,
		Email:      "a@a",
	}}}
	reader := NewReader(lister, &recordingNav{}, nil)

	got, err := reader.Bills(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "4 Avr. 04", got[0].Date)
	assert.Equal(t, "En attente", got[0].Status)
	assert.Equal(t, "encore", got[0].Name)
	assert.Equal(t, 400, *got[0].Amount)
	assert.Equal(t, "séminaire billed", got[0].Commentary)
	assert.Equal(t, "a@a", got[0].Email)
}

func TestReader_Bills_MalformedDateKeepsRawValue(t *testing.T) {
	lister := &fakeLister{bills: []core.BillRecord{
		{ID: "1", Date: "2023-04-26", Status: core.StatusPending},
		{ID: "2", Date: "yesterday", Status: core.StatusAccepted},
		{ID: "3", Date: "2023-04-28", Status: core.StatusRefused},
	}}
	reader := NewReader(lister, &recordingNav{}, nil)

	got, err := reader.Bills(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "26 Avr. 23", got[0].Date)
	assert.Equal(t, "yesterday", got[1].Date)
	assert.Equal(t, "Accepté", got[1].Status)
	assert.Equal(t, "28 Avr. 23", got[2].Date)
}

func TestReader_Bills_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("Erreur 404")
	reader := NewReader(&fakeLister{err: storeErr}, &recordingNav{}, nil)

	got, err := reader.Bills(context.Background())

	assert.Nil(t, got)
	assert.Same(t, storeErr, err)
}

func TestReader_Bills_Idempotent(t *testing.T) {
	records := aprilBills()
	lister := &fakeLister{bills: records}
	reader := NewReader(lister, &recordingNav{}, nil)

	first, err := reader.Bills(context.Background())
	require.NoError(t, err)
	second, err := reader.Bills(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, aprilBills(), records)
	assert.Equal(t, 2, lister.calls)
}

func TestReader_Bills_Empty(t *testing.T) {
	reader := NewReader(&fakeLister{}, &recordingNav{}, nil)

	got, err := reader.Bills(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReader_NewBill_Navigates(t *testing.T) {
	nav := &recordingNav{}
	reader := NewReader(&fakeLister{}, nav, nil)

	reader.NewBill()

	assert.Equal(t, []string{core.RouteNewBill}, nav.routes)
}

func TestReader_Receipt(t *testing.T) {
	reader := NewReader(&fakeLister{}, &recordingNav{}, nil)

	url, err := reader.Receipt(core.DisplayBill{FileURL: core.StringPtr("https://files/r.jpg")})
	require.NoError(t, err)
	assert.Equal(t, "https://files/r.jpg", url)

	_, err = reader.Receipt(core.DisplayBill{})
	assert.ErrorIs(t, err, core.ErrNoReceipt)
}

func TestNewestFirst(t *testing.T) {
	lister := &fakeLister{bills: []core.BillRecord{
		{ID: "old", Date: "2001-01-01"},
		{ID: "bad", Date: "??"},
		{ID: "new", Date: "2023-04-28"},
		{ID: "mid", Date: "2012-06-15T10:00:00"},
	}}

	got, err := NewestFirst(lister).List(context.Background())

	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, b := range got {
		ids[i] = b.ID
	}
	assert.Equal(t, []string{"new", "mid", "old", "bad"}, ids)
	assert.Equal(t, "old", lister.bills[0].ID, "source slice must not be reordered")
}

func TestNewestFirst_Error(t *testing.T) {
	_, err := NewestFirst(&fakeLister{err: store.ErrNotFound}).List(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
