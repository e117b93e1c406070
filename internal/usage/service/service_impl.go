package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/docupulse/docupulse/internal/billingperiod"
	"github.com/docupulse/docupulse/internal/observability/metrics"
	quotadomain "github.com/docupulse/docupulse/internal/quota/domain"
	usagedomain "github.com/docupulse/docupulse/internal/usage/domain"
	"github.com/docupulse/docupulse/pkg/db"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	QuotaSvc quotadomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	quotaSvc quotadomain.Service
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("usage.service"),

		genID:    p.GenID,
		quotaSvc: p.QuotaSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, req usagedomain.CreateIngestRequest) (*usagedomain.IngestResult, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return nil, usagedomain.ErrInvalidTenant
	}
	if req.PagesSpent < 0 {
		return nil, usagedomain.ErrInvalidPages
	}
	if req.RowsUsed < 0 {
		return nil, usagedomain.ErrInvalidRows
	}

	if err := s.ensureTenantExists(ctx, tenantID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recordedAt := req.OccurredAt
	if recordedAt.IsZero() {
		recordedAt = now
	}

	// A caller that retries without a key must always be accepted, so a
	// fresh unique key is generated server-side.
	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = ulid.Make().String()
	}

	record := &usagedomain.UsageEvent{
		ID:             s.genID.Generate(),
		TenantID:       tenantID,
		IdempotencyKey: idempotencyKey,
		PagesSpent:     req.PagesSpent,
		RowsUsed:       req.RowsUsed,
		JobID:          strings.TrimSpace(req.JobID),
		ScenarioID:     strings.TrimSpace(req.ScenarioID),
		RecordedAt:     recordedAt.UTC(),
		CreatedAt:      now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.JSONMap(req.Metadata)
	}

	inserted, err := s.insertUsageEvent(ctx, record)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// The unique constraint is the sole duplicate-detection signal.
		// No aggregate update, no quota evaluation.
		if s.metrics != nil {
			s.metrics.UsageEventsDeduplicated.WithLabelValues(tenantID.String()).Inc()
		}
		return &usagedomain.IngestResult{Status: usagedomain.StatusDuplicate}, nil
	}

	if err := s.upsertDailyAggregate(ctx, record); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.UsageEventsIngested.WithLabelValues(tenantID.String()).Inc()
	}

	s.dispatchQuotaCheck(tenantID)

	return &usagedomain.IngestResult{
		Status:  usagedomain.StatusCreated,
		EventID: record.ID,
	}, nil
}

func (s *Service) Summary(ctx context.Context, req usagedomain.SummaryRequest) (usagedomain.SummaryResponse, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return usagedomain.SummaryResponse{}, usagedomain.ErrInvalidTenant
	}
	if err := s.ensureTenantExists(ctx, tenantID); err != nil {
		return usagedomain.SummaryResponse{}, err
	}

	stmt := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("day ASC")
	if !req.From.IsZero() {
		stmt = stmt.Where("day >= ?", billingperiod.Midnight(req.From))
	}
	if !req.To.IsZero() {
		stmt = stmt.Where("day <= ?", billingperiod.Midnight(req.To))
	}

	var days []usagedomain.DailyUsage
	if err := stmt.Find(&days).Error; err != nil {
		return usagedomain.SummaryResponse{}, err
	}

	resp := usagedomain.SummaryResponse{Days: days}
	for _, day := range days {
		resp.PagesSpent += day.PagesSpent
		resp.RowsUsed += day.RowsUsed
	}
	return resp, nil
}

func (s *Service) ensureTenantExists(ctx context.Context, tenantID snowflake.ID) error {
	var exists bool
	if err := s.db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM tenants WHERE id = ?)`,
		tenantID,
	).Scan(&exists).Error; err != nil {
		return err
	}
	if !exists {
		return usagedomain.ErrTenantNotFound
	}
	return nil
}

// insertUsageEvent inserts the event keyed by (tenant_id, idempotency_key).
// It reports false when the key was already taken, without error.
func (s *Service) insertUsageEvent(ctx context.Context, record *usagedomain.UsageEvent) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		// Some dialects surface the conflict as an error instead of
		// reporting zero rows affected.
		if db.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// upsertDailyAggregate creates the (tenant, day) row with the event's values
// or atomically increments an existing one. Increment-on-conflict avoids the
// lost updates a read-modify-write would allow under concurrent ingestion.
func (s *Service) upsertDailyAggregate(ctx context.Context, record *usagedomain.UsageEvent) error {
	day := billingperiod.Midnight(record.RecordedAt)
	aggregate := &usagedomain.DailyUsage{
		ID:         s.genID.Generate(),
		TenantID:   record.TenantID,
		Day:        day,
		PagesSpent: record.PagesSpent,
		RowsUsed:   record.RowsUsed,
		EventCount: 1,
		UpdatedAt:  time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]any{
				"pages_spent": gorm.Expr("daily_usage.pages_spent + ?", record.PagesSpent),
				"rows_used":   gorm.Expr("daily_usage.rows_used + ?", record.RowsUsed),
				"event_count": gorm.Expr("daily_usage.event_count + 1"),
				"updated_at":  time.Now().UTC(),
			}),
		}).
		Create(aggregate).Error
}

// dispatchQuotaCheck evaluates quota off the request path. The goroutine
// owns its own error handling; a failed check never fails the ingestion.
func (s *Service) dispatchQuotaCheck(tenantID snowflake.ID) {
	if s.quotaSvc == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.quotaSvc.CheckAndPauseIfNeeded(ctx, tenantID); err != nil {
			s.log.Warn("quota check after ingest failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}()
}
