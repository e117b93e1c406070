package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/docupulse/docupulse/internal/config"
	"github.com/docupulse/docupulse/internal/observability/metrics"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type makeClient struct {
	baseURL       string
	defaultFolder string
	client        *http.Client
	log           *zap.Logger
	metrics       *metrics.Metrics
}

type ClientParam struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func NewMakeClient(p ClientParam) Client {
	timeout := time.Duration(p.Cfg.Make.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &makeClient{
		baseURL:       strings.TrimRight(p.Cfg.Make.BaseURL, "/"),
		defaultFolder: p.Cfg.Make.DefaultFolderID,
		client:        &http.Client{Timeout: timeout},
		log:           p.Log.Named("workflow.make"),
		metrics:       p.Metrics,
	}
}

type makeUserResponse struct {
	User struct {
		ID             int64 `json:"id"`
		OrganizationID int64 `json:"organizationId"`
	} `json:"authUser"`
}

type makeOrganizationsResponse struct {
	Organizations []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"organizations"`
}

type makeScenariosResponse struct {
	Scenarios []Scenario `json:"scenarios"`
}

type makeUsageResponse struct {
	Usage []UsagePoint `json:"usage"`
}

func (c *makeClient) ListScenarios(ctx context.Context, tenant *tenantdomain.Tenant) ([]Scenario, error) {
	if tenant == nil || strings.TrimSpace(tenant.MakeAPIKey) == "" {
		return nil, nil
	}

	orgID := c.resolveOrganization(ctx, tenant)
	if orgID == "" {
		// Background callers treat this as "nothing to do".
		return nil, nil
	}

	return c.listScenarios(ctx, tenant, orgID)
}

func (c *makeClient) listScenarios(ctx context.Context, tenant *tenantdomain.Tenant, orgID string) ([]Scenario, error) {
	values := url.Values{}
	values.Set("organizationId", orgID)
	if folder := c.folderFor(tenant); folder != "" {
		values.Set("folderId", folder)
	}

	var resp makeScenariosResponse
	if err := c.doRequest(ctx, tenant, http.MethodGet, "/scenarios?"+values.Encode(), &resp); err != nil {
		c.log.Warn("list scenarios failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
		return nil, nil
	}
	return resp.Scenarios, nil
}

func (c *makeClient) PauseAll(ctx context.Context, tenant *tenantdomain.Tenant) (ActionResult, error) {
	return c.batchAction(ctx, tenant, "stop")
}

func (c *makeClient) ResumeAll(ctx context.Context, tenant *tenantdomain.Tenant) (ActionResult, error) {
	return c.batchAction(ctx, tenant, "start")
}

// batchAction issues one start/stop call per scenario. A single scenario's
// failure never aborts the loop; the counts expose partial outcomes.
func (c *makeClient) batchAction(ctx context.Context, tenant *tenantdomain.Tenant, action string) (ActionResult, error) {
	var result ActionResult

	scenarios, err := c.ListScenarios(ctx, tenant)
	if err != nil {
		return result, err
	}

	for _, scenario := range scenarios {
		path := fmt.Sprintf("/scenarios/%d/%s", scenario.ID, action)
		if err := c.doRequest(ctx, tenant, http.MethodPost, path, nil); err != nil {
			result.Failed++
			c.log.Warn("scenario action failed",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Int64("scenario_id", scenario.ID),
				zap.String("action", action),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (c *makeClient) ResolveOrganizationID(ctx context.Context, tenant *tenantdomain.Tenant) (string, error) {
	if tenant == nil || strings.TrimSpace(tenant.MakeAPIKey) == "" {
		return "", ErrNoCredentials
	}
	if orgID := c.resolveOrganization(ctx, tenant); orgID != "" {
		return orgID, nil
	}
	return "", ErrOrganizationUnresolved
}

func (c *makeClient) ScenarioUsage(ctx context.Context, tenant *tenantdomain.Tenant, scenarioID int64) ([]UsagePoint, error) {
	if tenant == nil || strings.TrimSpace(tenant.MakeAPIKey) == "" {
		return nil, ErrNoCredentials
	}
	var resp makeUsageResponse
	path := fmt.Sprintf("/scenarios/%d/usage", scenarioID)
	if err := c.doRequest(ctx, tenant, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}
	return resp.Usage, nil
}

// resolveOrganization walks the fallback chain: tenant-stored id, then the
// current-user profile, then the first entry of the organization listing.
// Each step catches its own failure and falls through to the next.
func (c *makeClient) resolveOrganization(ctx context.Context, tenant *tenantdomain.Tenant) string {
	if stored := strings.TrimSpace(tenant.MakeOrganizationID); stored != "" {
		return stored
	}

	var user makeUserResponse
	if err := c.doRequest(ctx, tenant, http.MethodGet, "/users/me", &user); err != nil {
		c.log.Debug("current-user lookup failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
	} else if user.User.OrganizationID != 0 {
		return strconv.FormatInt(user.User.OrganizationID, 10)
	}

	var orgs makeOrganizationsResponse
	if err := c.doRequest(ctx, tenant, http.MethodGet, "/organizations", &orgs); err != nil {
		c.log.Debug("organization listing failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
	} else if len(orgs.Organizations) > 0 {
		return strconv.FormatInt(orgs.Organizations[0].ID, 10)
	}

	return ""
}

func (c *makeClient) folderFor(tenant *tenantdomain.Tenant) string {
	if folder := strings.TrimSpace(tenant.MakeFolderID); folder != "" {
		return folder
	}
	return c.defaultFolder
}

func (c *makeClient) doRequest(ctx context.Context, tenant *tenantdomain.Tenant, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+strings.TrimSpace(tenant.MakeAPIKey))
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordError()
		return fmt.Errorf("%w: %v", ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordError()
		return fmt.Errorf("%w: status %d", ErrPlatformUnavailable, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *makeClient) recordError() {
	if c.metrics != nil {
		c.metrics.WorkflowAPIErrors.Inc()
	}
}
