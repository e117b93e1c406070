// Package workflow adapts stored tenant credentials into operations against
// the external workflow platform (Make). The platform is consumed as a black
// box: every call has a bounded timeout and failures degrade to empty results
// on background paths.
package workflow

import (
	"context"
	"errors"

	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
)

// Scenario is a unit of automated workflow that can be paused and resumed.
type Scenario struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ActionResult reports per-scenario outcomes of a batch pause or resume.
// Partial failures are expected; callers decide what to persist based on
// the succeeded count.
type ActionResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// UsagePoint is one day of historical consumption for a scenario.
type UsagePoint struct {
	Date       string `json:"date"`
	Operations int64  `json:"operations"`
	Transfer   int64  `json:"dataTransfer"`
}

type Client interface {
	// ListScenarios returns the tenant's scenarios. Missing credentials or
	// an unresolvable organization yield an empty list, not an error.
	ListScenarios(ctx context.Context, tenant *tenantdomain.Tenant) ([]Scenario, error)

	PauseAll(ctx context.Context, tenant *tenantdomain.Tenant) (ActionResult, error)
	ResumeAll(ctx context.Context, tenant *tenantdomain.Tenant) (ActionResult, error)

	// ResolveOrganizationID is the foreground resolution entry point used by
	// user-initiated sync. Unlike the background paths it surfaces failure.
	ResolveOrganizationID(ctx context.Context, tenant *tenantdomain.Tenant) (string, error)

	ScenarioUsage(ctx context.Context, tenant *tenantdomain.Tenant, scenarioID int64) ([]UsagePoint, error)
}

var (
	ErrNoCredentials          = errors.New("workflow_credentials_missing")
	ErrOrganizationUnresolved = errors.New("workflow_organization_unresolved")
	ErrPlatformUnavailable    = errors.New("workflow_platform_unavailable")
)
