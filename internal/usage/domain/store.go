package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Totals is the summed consumption over a range of daily aggregates.
type Totals struct {
	Pages int64
	Rows  int64
}

// Store exposes the aggregate reads and administrative deletes other features
// need without going through the ingestion service.
type Store interface {
	// SumSince sums daily aggregates with day >= since.
	SumSince(ctx context.Context, tenantID snowflake.ID, since time.Time) (Totals, error)

	// DeleteAllForTenant removes the tenant's events and aggregates.
	DeleteAllForTenant(ctx context.Context, tenantID snowflake.ID) error
}
