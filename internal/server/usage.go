package server

import (
	"net/http"
	"strings"
	"time"

	usagedomain "github.com/docupulse/docupulse/internal/usage/domain"
	pkglog "github.com/docupulse/docupulse/pkg/log"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) IngestUsage(c *gin.Context) {
	var req usagedomain.CreateIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if s.usageLimiter.Enabled() {
		ctx := c.Request.Context()

		allowed, err := s.usageLimiter.AllowEndpoint(ctx)
		if err != nil {
			// Limiter backend failures never block ingestion.
			pkglog.L(ctx).Warn("usage ingest rate check failed", zap.Error(err))
		} else if !allowed {
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		allowed, err = s.usageLimiter.AllowTenant(ctx, req.TenantID)
		if err != nil {
			pkglog.L(ctx).Warn("usage ingest rate check failed", zap.Error(err))
		} else if !allowed {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
	}

	result, err := s.usageSvc.Ingest(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Status == usagedomain.StatusDuplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (s *Server) UsageSummary(c *gin.Context) {
	req := usagedomain.SummaryRequest{
		TenantID: strings.TrimSpace(c.Query("tenant_id")),
	}
	if req.TenantID == "" {
		AbortWithError(c, usagedomain.ErrInvalidTenant)
		return
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.To = to
	}

	summary, err := s.usageSvc.Summary(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
