// Package domain contains persistence models for raw usage ingestion and
// the per-day aggregates derived from it.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// UsageEvent stores a single unit of metered document-processing activity.
// Events are append-only; only an administrative reset removes them.
type UsageEvent struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID      `gorm:"not null;uniqueIndex:ux_usage_events_idem,priority:1" json:"tenant_id"`
	IdempotencyKey string            `gorm:"type:text;not null;uniqueIndex:ux_usage_events_idem,priority:2" json:"idempotency_key"`
	PagesSpent     int64             `gorm:"not null" json:"pages_spent"`
	RowsUsed       int64             `gorm:"not null" json:"rows_used"`
	JobID          string            `gorm:"type:text" json:"job_id,omitempty"`
	ScenarioID     string            `gorm:"type:text" json:"scenario_id,omitempty"`
	RecordedAt     time.Time         `gorm:"not null" json:"recorded_at"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (UsageEvent) TableName() string { return "usage_events" }

// DailyUsage is one row per tenant per calendar day. At any time it equals
// the elementwise sum of all accepted events for that tenant and day.
type DailyUsage struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"-"`
	TenantID   snowflake.ID `gorm:"not null;uniqueIndex:ux_daily_usage_day,priority:1" json:"tenant_id"`
	Day        time.Time    `gorm:"not null;uniqueIndex:ux_daily_usage_day,priority:2" json:"day"`
	PagesSpent int64        `gorm:"not null;default:0" json:"pages_spent"`
	RowsUsed   int64        `gorm:"not null;default:0" json:"rows_used"`
	EventCount int64        `gorm:"not null;default:0" json:"event_count"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (DailyUsage) TableName() string { return "daily_usage" }
