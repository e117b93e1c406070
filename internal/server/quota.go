package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	quotadomain "github.com/docupulse/docupulse/internal/quota/domain"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	"github.com/docupulse/docupulse/internal/workflow"
	"github.com/gin-gonic/gin"
)

type tenantActionRequest struct {
	TenantID string `json:"tenant_id"`
}

func tenantIDFromQuery(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Query("tenant_id")))
	if err != nil || id == 0 {
		AbortWithError(c, quotadomain.ErrTenantNotFound)
		return 0, false
	}
	return id, true
}

func tenantIDFromBody(c *gin.Context) (snowflake.ID, bool) {
	var req tenantActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	id, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || id == 0 {
		AbortWithError(c, quotadomain.ErrTenantNotFound)
		return 0, false
	}
	return id, true
}

func (s *Server) QuotaStatus(c *gin.Context) {
	id, ok := tenantIDFromQuery(c)
	if !ok {
		return
	}

	status, err := s.quotaSvc.Status(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) PauseScenarios(c *gin.Context) {
	id, ok := tenantIDFromBody(c)
	if !ok {
		return
	}

	result, err := s.quotaSvc.PauseAll(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ResumeScenarios(c *gin.Context) {
	id, ok := tenantIDFromBody(c)
	if !ok {
		return
	}

	result, err := s.quotaSvc.ResumeAll(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) AdminResetUsage(c *gin.Context) {
	id, ok := tenantIDFromBody(c)
	if !ok {
		return
	}

	if err := s.quotaSvc.AdminReset(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// SyncScenarios resolves and persists the tenant's workflow organization,
// then returns the current scenario list. Resolution failure is surfaced to
// the caller, unlike the background pause and resume paths.
func (s *Server) SyncScenarios(c *gin.Context) {
	id, ok := tenantIDFromBody(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	tenant, err := s.tenantSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	orgID, err := s.workflowSvc.ResolveOrganizationID(ctx, tenant)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if orgID != tenant.MakeOrganizationID {
		update := tenantdomain.UpdateCredentialsRequest{OrganizationID: &orgID}
		if err := s.tenantSvc.UpdateCredentials(ctx, id, update); err != nil {
			AbortWithError(c, err)
			return
		}
		tenant.MakeOrganizationID = orgID
	}

	scenarios, err := s.workflowSvc.ListScenarios(ctx, tenant)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]syncedScenario, 0, len(scenarios))
	for _, scenario := range scenarios {
		item := syncedScenario{Scenario: scenario}
		// Per-scenario history is best effort; a failed lookup leaves it empty.
		if usage, err := s.workflowSvc.ScenarioUsage(ctx, tenant, scenario.ID); err == nil {
			item.Usage = usage
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"organization_id": orgID,
		"scenarios":       items,
	})
}

type syncedScenario struct {
	workflow.Scenario
	Usage []workflow.UsagePoint `json:"usage,omitempty"`
}
