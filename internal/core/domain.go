package core

import (
	"errors"
	"strings"
)

const (
	StatusPending  BillStatus = "pending"
	StatusAccepted BillStatus = "accepted"
	StatusRefused  BillStatus = "refused"
)

// Expense types offered by the new bill form.
const (
	ExpenseTransport    ExpenseType = "Transports"
	ExpenseRestaurant   ExpenseType = "Restaurants et bars"
	ExpenseHotel        ExpenseType = "Hôtel et logement"
	ExpenseService      ExpenseType = "Services en ligne"
	ExpenseIT           ExpenseType = "IT et électronique"
	ExpenseEquipment    ExpenseType = "Equipement et matériel"
	ExpenseOfficeSupply ExpenseType = "Fournitures de bureau"
)

// DefaultPct is the VAT percentage applied when the form leaves it blank.
const DefaultPct = 20

type (
	BillStatus string

	ExpenseType string

	// BillRecord is the canonical bill as the store persists it.
	BillRecord struct {
		ID         string      `json:"id,omitempty"`
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
		Email      string      `json:"email,omitempty"`
	}

	// DisplayBill is a read-only projection of a BillRecord for the bills view.
	// Date and Status hold display strings, everything else passes through.
	DisplayBill struct {
		ID         string
		Type       ExpenseType
		Name       string
		Amount     *int
		Date       string
		VAT        string
		Pct        int
		Commentary string
		FileURL    *string
		FileName   *string
		Status     string
		Email      string
	}

	// Session identifies the connected user.
	Session struct {
		Email string `json:"email" toml:"email"`
		Type  string `json:"type" toml:"type"`
	}
)

var (
	ErrInvalidStatus   = errors.New("invalid bill status")
	ErrInvalidFileType = errors.New("invalid receipt file type")
	ErrMalformedDate   = errors.New("malformed bill date")
	ErrNoReceipt       = errors.New("bill has no receipt")
	ErrNoSession       = errors.New("no session")
)

// IsValid reports whether s is one of the canonical statuses.
func (s BillStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	default:
		return false
	}
}

func (s BillStatus) String() string {
	return string(s)
}

// Validate checks the invariants a stored record must satisfy.
func (b BillRecord) Validate() error {
	if !b.Status.IsValid() {
		return ErrInvalidStatus
	}
	if b.Pct < 0 || b.Pct > 100 {
		return errors.New("pct must be between 0 and 100")
	}
	if len(b.Commentary) > 1000 {
		return errors.New("commentary too long (max 1000 characters)")
	}
	return nil
}

// HasReceipt reports whether a receipt file is attached.
func (b BillRecord) HasReceipt() bool {
	return b.FileURL != nil && strings.TrimSpace(*b.FileURL) != ""
}

// Validate checks that the session can tag uploads.
func (s Session) Validate() error {
	if strings.TrimSpace(s.Email) == "" {
		return ErrNoSession
	}
	return nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}

// Clone returns a copy that shares no pointers with b.
func (b BillRecord) Clone() BillRecord {
	c := b
	if b.Amount != nil {
		c.Amount = IntPtr(*b.Amount)
	}
	if b.FileURL != nil {
		c.FileURL = StringPtr(*b.FileURL)
	}
	if b.FileName != nil {
		c.FileName = StringPtr(*b.FileName)
	}
	return c
}

// Apply overwrites the editable fields of b with the draft's values. ID and
// Email are kept.
func (b BillRecord) Apply(d Draft) BillRecord {
	out := d.Record(b.ID, b.Email)
	return out.Clone()
}
