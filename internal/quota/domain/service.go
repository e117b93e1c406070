// Package domain defines the quota engine contract: period evaluation,
// monthly reset, and pause/resume of the tenant's external scenarios.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/docupulse/docupulse/internal/workflow"
)

// Status is the tenant-facing quota snapshot.
type Status struct {
	TenantID snowflake.ID `json:"tenant_id"`

	PagesUsed int64 `json:"pages_used"`
	RowsUsed  int64 `json:"rows_used"`

	BasePageLimit  int64 `json:"base_page_limit"`
	BaseRowLimit   int64 `json:"base_row_limit"`
	AddonPageLimit int64 `json:"addon_page_limit"`
	AddonRowLimit  int64 `json:"addon_row_limit"`

	// Add-ons are consumed only after the base allowance is exhausted.
	AddonPagesUsed int64 `json:"addon_pages_used"`
	AddonRowsUsed  int64 `json:"addon_rows_used"`

	ScenariosPaused bool      `json:"scenarios_paused"`
	PeriodStart     time.Time `json:"period_start"`
	NextReset       time.Time `json:"next_reset"`
}

type Service interface {
	// CheckAndPauseIfNeeded evaluates current-period consumption and pauses
	// the tenant's scenarios when either total limit is reached. Store-level
	// failures are swallowed so a lagging schema never breaks ingestion.
	CheckAndPauseIfNeeded(ctx context.Context, tenantID snowflake.ID) error

	// ApplyMonthlyResetIfNeeded rolls the tenant into the current billing
	// period at most once: add-ons zeroed, last reset stamped, and a paused
	// subscriber resumed. Idempotent within a period.
	ApplyMonthlyResetIfNeeded(ctx context.Context, tenantID snowflake.ID) error

	// CheckAndResumeIfPossible resumes a paused tenant whose usage is now
	// strictly under both total limits, e.g. after an add-on purchase.
	CheckAndResumeIfPossible(ctx context.Context, tenantID snowflake.ID) error

	Status(ctx context.Context, tenantID snowflake.ID) (Status, error)

	// PauseAll and ResumeAll are operator actions; counts expose partial
	// external failures for follow-up.
	PauseAll(ctx context.Context, tenantID snowflake.ID) (workflow.ActionResult, error)
	ResumeAll(ctx context.Context, tenantID snowflake.ID) (workflow.ActionResult, error)

	// AdminReset deletes all usage for the tenant, restarts its period at
	// the current midnight, clears the paused flag, and triggers resume.
	AdminReset(ctx context.Context, tenantID snowflake.ID) error
}

var ErrTenantNotFound = errors.New("tenant_not_found")
