package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusCreated   = "created"
	StatusDuplicate = "duplicate"
)

type CreateIngestRequest struct {
	TenantID       string         `json:"tenant_id"`
	PagesSpent     int64          `json:"pages_spent"`
	RowsUsed       int64          `json:"rows_used"`
	IdempotencyKey string         `json:"idempotency_key"`
	JobID          string         `json:"job_id"`
	ScenarioID     string         `json:"scenario_id"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Metadata       map[string]any `json:"metadata"`
}

type IngestResult struct {
	Status  string       `json:"status"`
	EventID snowflake.ID `json:"event_id,omitempty"`
}

type SummaryRequest struct {
	TenantID string
	From     time.Time
	To       time.Time
}

type SummaryResponse struct {
	Days       []DailyUsage `json:"days"`
	PagesSpent int64        `json:"pages_spent"`
	RowsUsed   int64        `json:"rows_used"`
}

type Service interface {
	// Ingest records a usage event exactly once per (tenant, idempotency
	// key) and increments the daily aggregate for accepted events only.
	Ingest(context.Context, CreateIngestRequest) (*IngestResult, error)

	Summary(context.Context, SummaryRequest) (SummaryResponse, error)
}

var (
	ErrInvalidTenant  = errors.New("invalid_tenant")
	ErrTenantNotFound = errors.New("tenant_not_found")
	ErrInvalidPages   = errors.New("invalid_pages_spent")
	ErrInvalidRows    = errors.New("invalid_rows_used")
)
