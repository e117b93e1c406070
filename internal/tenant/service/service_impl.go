package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/docupulse/docupulse/internal/config"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Plans *config.PlanConfigHolder
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	plans *config.PlanConfigHolder
}

func NewService(p ServiceParam) tenantdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("tenant.service"),

		genID: p.GenID,
		plans: p.Plans,
	}
}

func (s *Service) Create(ctx context.Context, req tenantdomain.CreateTenantRequest) (*tenantdomain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, tenantdomain.ErrInvalidName
	}

	plan := s.plans.Get()
	now := time.Now().UTC()
	record := &tenantdomain.Tenant{
		ID:            s.genID.Generate(),
		Name:          name,
		BasePageLimit: plan.BasePageLimit,
		BaseRowLimit:  plan.BaseRowLimit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*tenantdomain.Tenant, error) {
	var record tenantdomain.Tenant
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, tenantdomain.ErrTenantNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) UpdateCredentials(ctx context.Context, id snowflake.ID, req tenantdomain.UpdateCredentialsRequest) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.APIKey != nil {
		updates["make_api_key"] = strings.TrimSpace(*req.APIKey)
	}
	if req.OrganizationID != nil {
		updates["make_organization_id"] = strings.TrimSpace(*req.OrganizationID)
	}
	if req.FolderID != nil {
		updates["make_folder_id"] = strings.TrimSpace(*req.FolderID)
	}
	return s.update(ctx, id, updates)
}

func (s *Service) IncrementAddon(ctx context.Context, id snowflake.ID, addon tenantdomain.AddonType, quantity int64) error {
	if !addon.Valid() {
		return tenantdomain.ErrInvalidAddonType
	}
	if quantity <= 0 {
		return tenantdomain.ErrInvalidQuantity
	}

	column := "addon_page_limit"
	if addon == tenantdomain.AddonTypeRows {
		column = "addon_row_limit"
	}
	return s.update(ctx, id, map[string]any{
		column:       gorm.Expr(column+" + ?", quantity),
		"updated_at": time.Now().UTC(),
	})
}

func (s *Service) SetPaused(ctx context.Context, id snowflake.ID, paused bool) error {
	return s.update(ctx, id, map[string]any{
		"scenarios_paused": paused,
		"updated_at":       time.Now().UTC(),
	})
}

func (s *Service) ApplyReset(ctx context.Context, id snowflake.ID, resetAt time.Time, clearPaused bool) error {
	updates := map[string]any{
		"addon_page_limit": 0,
		"addon_row_limit":  0,
		"last_reset_at":    resetAt.UTC(),
		"updated_at":       time.Now().UTC(),
	}
	if clearPaused {
		updates["scenarios_paused"] = false
	}
	return s.update(ctx, id, updates)
}

func (s *Service) update(ctx context.Context, id snowflake.ID, updates map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&tenantdomain.Tenant{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tenantdomain.ErrTenantNotFound
	}
	return nil
}
