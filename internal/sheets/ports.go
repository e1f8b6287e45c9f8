package sheets

import (
	"context"

	"billed/internal/core"
)

// Ports for the spreadsheet mirror.
type (
	// BillWriter writes a bill to its row, appending one when the bill is new.
	BillWriter interface {
		Upsert(ctx context.Context, b core.BillRecord) (rowRef string, err error)
	}

	// BillReader lists the mirrored bills in sheet order.
	BillReader interface {
		List(ctx context.Context) ([]core.BillRecord, error)
	}
)
