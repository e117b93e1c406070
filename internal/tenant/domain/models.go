// Package domain contains persistence models for billed tenants.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is the aggregate root for billing and quota state. Limits and the
// paused flag are mutated through single-row conditional updates only; the
// database row is the authoritative copy, never an in-process cache.
type Tenant struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"type:text;not null" json:"name"`

	BasePageLimit  int64 `gorm:"not null;default:0" json:"base_page_limit"`
	BaseRowLimit   int64 `gorm:"not null;default:0" json:"base_row_limit"`
	AddonPageLimit int64 `gorm:"not null;default:0" json:"addon_page_limit"`
	AddonRowLimit  int64 `gorm:"not null;default:0" json:"addon_row_limit"`

	ScenariosPaused    bool       `gorm:"not null;default:false" json:"scenarios_paused"`
	SubscriptionActive bool       `gorm:"not null;default:false" json:"subscription_active"`
	LastResetAt        *time.Time `json:"last_reset_at"`

	// Workflow-platform credentials, stored opaque and never parsed here.
	MakeAPIKey         string `gorm:"type:text" json:"-"`
	MakeOrganizationID string `gorm:"type:text" json:"make_organization_id"`
	MakeFolderID       string `gorm:"type:text" json:"make_folder_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// TotalPageLimit is the base allowance plus purchased add-on capacity.
func (t Tenant) TotalPageLimit() int64 { return t.BasePageLimit + t.AddonPageLimit }

// TotalRowLimit is the base allowance plus purchased add-on capacity.
func (t Tenant) TotalRowLimit() int64 { return t.BaseRowLimit + t.AddonRowLimit }

// AddonType identifies which purchased capacity bucket a purchase applies to.
type AddonType string

const (
	AddonTypePages AddonType = "pages"
	AddonTypeRows  AddonType = "rows"
)

func (a AddonType) Valid() bool {
	return a == AddonTypePages || a == AddonTypeRows
}
