// Package billingwebhook applies verified purchase-completed events to a
// tenant's add-on limits and asks the quota engine to re-evaluate. Webhooks
// are always acknowledged; malformed metadata is logged, never retried.
package billingwebhook

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/docupulse/docupulse/internal/observability/metrics"
	quotadomain "github.com/docupulse/docupulse/internal/quota/domain"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseEvent is the metadata carried by a verified payment-completion
// webhook. ProviderEventID deduplicates provider redeliveries.
type PurchaseEvent struct {
	Provider        string `json:"provider"`
	ProviderEventID string `json:"provider_event_id"`
	TenantID        string `json:"tenant_id"`
	AddonType       string `json:"addon_type"`
	AddonQuantity   int64  `json:"addon_quantity"`
	RawPayload      []byte `json:"-"`
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	TenantSvc tenantdomain.Service
	QuotaSvc  quotadomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	tenantSvc tenantdomain.Service
	quotaSvc  quotadomain.Service
	metrics   *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("billing.webhook"),

		genID:     p.GenID,
		tenantSvc: p.TenantSvc,
		quotaSvc:  p.QuotaSvc,
		metrics:   p.Metrics,
	}
}

// HandlePurchaseCompleted processes one purchase event. It never returns an
// error for malformed metadata: the sender expects an acknowledgement either
// way, and retrying bad metadata cannot fix it.
func (s *Service) HandlePurchaseCompleted(ctx context.Context, event PurchaseEvent) {
	record, fresh := s.recordEvent(ctx, event)
	if !fresh {
		s.log.Info("duplicate webhook event ignored",
			zap.String("provider", event.Provider),
			zap.String("provider_event_id", event.ProviderEventID),
		)
		s.countOutcome("duplicate")
		return
	}

	tenantID, addon, err := s.validate(event)
	if err != nil {
		s.log.Warn("webhook metadata ignored",
			zap.String("provider", event.Provider),
			zap.String("provider_event_id", event.ProviderEventID),
			zap.Error(err),
		)
		s.markProcessed(ctx, record, err.Error())
		s.countOutcome("malformed")
		return
	}

	if err := s.tenantSvc.IncrementAddon(ctx, tenantID, addon, event.AddonQuantity); err != nil {
		s.log.Error("apply add-on purchase failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		s.markProcessed(ctx, record, err.Error())
		s.countOutcome("failed")
		return
	}

	if err := s.quotaSvc.CheckAndResumeIfPossible(ctx, tenantID); err != nil {
		s.log.Warn("resume check after purchase failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}

	s.markProcessed(ctx, record, "")
	s.countOutcome("applied")
	s.log.Info("add-on purchase applied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("addon_type", string(addon)),
		zap.Int64("quantity", event.AddonQuantity),
	)
}

func (s *Service) validate(event PurchaseEvent) (snowflake.ID, tenantdomain.AddonType, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(event.TenantID))
	if err != nil || tenantID == 0 {
		return 0, "", tenantdomain.ErrTenantNotFound
	}
	addon := tenantdomain.AddonType(strings.ToLower(strings.TrimSpace(event.AddonType)))
	if !addon.Valid() {
		return 0, "", tenantdomain.ErrInvalidAddonType
	}
	if event.AddonQuantity <= 0 {
		return 0, "", tenantdomain.ErrInvalidQuantity
	}
	return tenantID, addon, nil
}

// recordEvent inserts the raw event; a conflict on (provider, event id)
// means the provider redelivered and the purchase was already handled.
func (s *Service) recordEvent(ctx context.Context, event PurchaseEvent) (*WebhookEvent, bool) {
	record := &WebhookEvent{
		ID:              s.genID.Generate(),
		Provider:        strings.ToLower(strings.TrimSpace(event.Provider)),
		ProviderEventID: strings.TrimSpace(event.ProviderEventID),
		EventType:       "purchase.completed",
		CreatedAt:       time.Now().UTC(),
	}
	if len(event.RawPayload) > 0 {
		record.RawPayload = datatypes.JSON(event.RawPayload)
	}
	if record.ProviderEventID == "" {
		// No provider id to dedupe on; process unconditionally.
		return record, true
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		s.log.Warn("webhook event store failed", zap.Error(result.Error))
		return record, true
	}
	return record, result.RowsAffected > 0
}

func (s *Service) markProcessed(ctx context.Context, record *WebhookEvent, processingError string) {
	if record.ProviderEventID == "" {
		return
	}
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).
		Model(&WebhookEvent{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"processed_at":     now,
			"processing_error": processingError,
		}).Error
	if err != nil {
		s.log.Warn("webhook event update failed", zap.Error(err))
	}
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookEvents.WithLabelValues(outcome).Inc()
	}
}
