package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateTenant(c *gin.Context) {
	var req tenantdomain.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenant, err := s.tenantSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tenant)
}

func (s *Server) UpdateTenantCredentials(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id == 0 {
		AbortWithError(c, tenantdomain.ErrTenantNotFound)
		return
	}

	var req tenantdomain.UpdateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.tenantSvc.UpdateCredentials(c.Request.Context(), id, req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
