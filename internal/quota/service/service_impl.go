package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/docupulse/docupulse/internal/billingperiod"
	"github.com/docupulse/docupulse/internal/clock"
	"github.com/docupulse/docupulse/internal/observability/metrics"
	quotadomain "github.com/docupulse/docupulse/internal/quota/domain"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	usagedomain "github.com/docupulse/docupulse/internal/usage/domain"
	"github.com/docupulse/docupulse/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Usage     usagedomain.Store
	TenantSvc tenantdomain.Service
	Workflow  workflow.Client
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	log *zap.Logger

	clock     clock.Clock
	usage     usagedomain.Store
	tenantSvc tenantdomain.Service
	workflow  workflow.Client
	metrics   *metrics.Metrics
}

func NewService(p ServiceParam) quotadomain.Service {
	return &Service{
		log: p.Log.Named("quota.service"),

		clock:     p.Clock,
		usage:     p.Usage,
		tenantSvc: p.TenantSvc,
		workflow:  p.Workflow,
		metrics:   p.Metrics,
	}
}

func (s *Service) CheckAndPauseIfNeeded(ctx context.Context, tenantID snowflake.ID) error {
	if err := s.ApplyMonthlyResetIfNeeded(ctx, tenantID); err != nil {
		s.log.Warn("monthly reset skipped", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}

	tenant, err := s.tenantSvc.Get(ctx, tenantID)
	if err != nil {
		// Treat store failures, including a lagging schema, as nothing to do.
		s.log.Warn("quota check skipped", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}

	totals, err := s.usage.SumSince(ctx, tenantID, s.periodStart(tenant))
	if err != nil {
		s.log.Warn("usage sum unavailable", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}

	overQuota := totals.Pages >= tenant.TotalPageLimit() || totals.Rows >= tenant.TotalRowLimit()
	if !overQuota || tenant.ScenariosPaused {
		return nil
	}

	result, err := s.workflow.PauseAll(ctx, tenant)
	if err != nil {
		s.log.Warn("pause failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}
	if result.Succeeded == 0 {
		// Never flip the flag without at least one confirmed external stop;
		// otherwise displayed state drifts from actual platform state.
		s.log.Warn("pause had no successful scenario actions",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("failed", result.Failed),
		)
		return nil
	}

	if err := s.tenantSvc.SetPaused(ctx, tenantID, true); err != nil {
		s.log.Error("persist paused flag failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}
	if s.metrics != nil {
		s.metrics.QuotaPauses.Inc()
	}
	s.log.Info("tenant paused over quota",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("pages_used", totals.Pages),
		zap.Int64("rows_used", totals.Rows),
		zap.Int("scenarios_stopped", result.Succeeded),
		zap.Int("scenarios_failed", result.Failed),
	)
	return nil
}

func (s *Service) ApplyMonthlyResetIfNeeded(ctx context.Context, tenantID snowflake.ID) error {
	tenant, err := s.tenantSvc.Get(ctx, tenantID)
	if err != nil {
		return s.mapTenantErr(err)
	}

	expected := billingperiod.CurrentPeriodStart(s.clock.Now())
	if tenant.LastResetAt != nil && !tenant.LastResetAt.Before(expected) {
		return nil
	}

	clearPaused := tenant.SubscriptionActive && tenant.ScenariosPaused
	if err := s.tenantSvc.ApplyReset(ctx, tenantID, expected, clearPaused); err != nil {
		return err
	}

	if clearPaused {
		// Follow-up outside the reset update; a failed resume is logged and
		// self-corrects on the next evaluation pass.
		result, err := s.workflow.ResumeAll(ctx, tenant)
		if err != nil || result.Succeeded == 0 {
			s.log.Warn("resume after monthly reset incomplete",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else if s.metrics != nil {
			s.metrics.QuotaResumes.Inc()
		}
	}

	s.log.Info("monthly reset applied",
		zap.String("tenant_id", tenantID.String()),
		zap.Time("period_start", expected),
		zap.Bool("resumed", clearPaused),
	)
	return nil
}

func (s *Service) CheckAndResumeIfPossible(ctx context.Context, tenantID snowflake.ID) error {
	tenant, err := s.tenantSvc.Get(ctx, tenantID)
	if err != nil {
		return s.mapTenantErr(err)
	}
	if !tenant.ScenariosPaused {
		return nil
	}

	totals, err := s.usage.SumSince(ctx, tenantID, s.periodStart(tenant))
	if err != nil {
		s.log.Warn("usage sum unavailable", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}
	if totals.Pages >= tenant.TotalPageLimit() || totals.Rows >= tenant.TotalRowLimit() {
		return nil
	}

	result, err := s.workflow.ResumeAll(ctx, tenant)
	if err != nil {
		s.log.Warn("resume failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}
	if result.Succeeded == 0 {
		s.log.Warn("resume had no successful scenario actions",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("failed", result.Failed),
		)
		return nil
	}

	if err := s.tenantSvc.SetPaused(ctx, tenantID, false); err != nil {
		s.log.Error("clear paused flag failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil
	}
	if s.metrics != nil {
		s.metrics.QuotaResumes.Inc()
	}
	s.log.Info("tenant resumed under quota", zap.String("tenant_id", tenantID.String()))
	return nil
}

func (s *Service) Status(ctx context.Context, tenantID snowflake.ID) (quotadomain.Status, error) {
	tenant, err := s.tenantSvc.Get(ctx, tenantID)
	if err != nil {
		return quotadomain.Status{}, s.mapTenantErr(err)
	}

	periodStart := s.periodStart(tenant)
	totals, err := s.usage.SumSince(ctx, tenantID, periodStart)
	if err != nil {
		return quotadomain.Status{}, err
	}

	return quotadomain.Status{
		TenantID:        tenant.ID,
		PagesUsed:       totals.Pages,
		RowsUsed:        totals.Rows,
		BasePageLimit:   tenant.BasePageLimit,
		BaseRowLimit:    tenant.BaseRowLimit,
		AddonPageLimit:  tenant.AddonPageLimit,
		AddonRowLimit:   tenant.AddonRowLimit,
		AddonPagesUsed:  addonUsed(totals.Pages, tenant.BasePageLimit),
		AddonRowsUsed:   addonUsed(totals.Rows, tenant.BaseRowLimit),
		ScenariosPaused: tenant.ScenariosPaused,
		PeriodStart:     periodStart,
		NextReset:       billingperiod.NextPeriodStart(s.clock.Now()),
	}, nil
}

func (s *Service) PauseAll(ctx context.Context, tenantID snowflake.ID) (workflow.ActionResult, error) {
	tenant, err := s.tenantSvc.Get(ctx, tenantID)
	if err != nil {
		return workflow.ActionResult{}, s.mapTenantErr(err)
	}

	result, err := s.workflow.PauseAll(ctx, tenant)
	if err != nil {
		return result, err
	}
	if result.Succeeded > 0 {
		if err := s.tenantSvc.SetPaused(ctx, tenantID, true); err != nil {
			return result, err
		}
		if s.metrics != nil {
			s.metrics.QuotaPauses.Inc()
		}
	}
	return result, nil
}

func (s *Service) ResumeAll(ctx context.Context, tenantID snowflake.ID) (workflow.ActionResult, error) {
	tenant, err := s.tenantSvc.Get(ctx, tenantID)
	if err != nil {
		return workflow.ActionResult{}, s.mapTenantErr(err)
	}

	result, err := s.workflow.ResumeAll(ctx, tenant)
	if err != nil {
		return result, err
	}
	if result.Succeeded > 0 {
		if err := s.tenantSvc.SetPaused(ctx, tenantID, false); err != nil {
			return result, err
		}
		if s.metrics != nil {
			s.metrics.QuotaResumes.Inc()
		}
	}
	return result, nil
}

func (s *Service) AdminReset(ctx context.Context, tenantID snowflake.ID) error {
	tenant, err := s.tenantSvc.Get(ctx, tenantID)
	if err != nil {
		return s.mapTenantErr(err)
	}

	if err := s.usage.DeleteAllForTenant(ctx, tenantID); err != nil {
		return err
	}

	resetAt := billingperiod.Midnight(s.clock.Now())
	if err := s.tenantSvc.ApplyReset(ctx, tenantID, resetAt, true); err != nil {
		return err
	}

	go func(tenant *tenantdomain.Tenant) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.workflow.ResumeAll(ctx, tenant); err != nil {
			s.log.Warn("resume after admin reset failed",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err),
			)
		}
	}(tenant)

	s.log.Info("admin reset applied", zap.String("tenant_id", tenantID.String()))
	return nil
}

// periodStart treats a stored last reset, when present, as authoritative over
// the calculated anchor. Manual resets move the period start mid-month.
func (s *Service) periodStart(tenant *tenantdomain.Tenant) time.Time {
	if tenant.LastResetAt != nil {
		return billingperiod.Midnight(*tenant.LastResetAt)
	}
	return billingperiod.CurrentPeriodStart(s.clock.Now())
}



func (s *Service) mapTenantErr(err error) error {
	if errors.Is(err, tenantdomain.ErrTenantNotFound) {
		return quotadomain.ErrTenantNotFound
	}
	return err
}

func addonUsed(used, base int64) int64 {
	if used <= base {
		return 0
	}
	return used - base
}
