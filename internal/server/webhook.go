package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/docupulse/docupulse/internal/billingwebhook"
	pkglog "github.com/docupulse/docupulse/pkg/log"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type billingWebhookPayload struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
	Type     string `json:"type"`

	Data struct {
		Metadata struct {
			TenantID      string `json:"tenant_id"`
			AddonType     string `json:"addon_type"`
			AddonQuantity int64  `json:"addon_quantity"`
		} `json:"metadata"`
	} `json:"data"`
}

// BillingWebhook always acknowledges with 200; the provider retries anything
// else and redeliveries are already deduplicated downstream.
func (s *Server) BillingWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var payload billingWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		pkglog.L(c.Request.Context()).Warn("billing webhook body unreadable", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if payload.Type != "purchase.completed" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	s.webhookSvc.HandlePurchaseCompleted(c.Request.Context(), billingwebhook.PurchaseEvent{
		Provider:        payload.Provider,
		ProviderEventID: payload.EventID,
		TenantID:        payload.Data.Metadata.TenantID,
		AddonType:       payload.Data.Metadata.AddonType,
		AddonQuantity:   payload.Data.Metadata.AddonQuantity,
		RawPayload:      body,
	})

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
