package etl

import (
	"context"

	"countryreport/internal/domain"
)

// ── Destination ────────────────────────────────────────────
// A Destination receives the complete normalized snapshot.
// Every write is a full replace; there is no append or merge mode.

// Destination writes a snapshot to a target system.
type Destination interface {
	Write(ctx context.Context, countries []domain.Country) (int, error)
}

// StoreWriter implements Destination for the relational countries table.
type StoreWriter struct {
	Store domain.CountryStore
}

func (w *StoreWriter) Write(ctx context.Context, countries []domain.Country) (int, error) {
	return w.Store.ReplaceAll(ctx, countries)
}
