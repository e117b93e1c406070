package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/docupulse/docupulse/internal/usage/domain"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Store {
	return &store{db: db}
}

func (s *store) SumSince(ctx context.Context, tenantID snowflake.ID, since time.Time) (domain.Totals, error) {
	var totals domain.Totals
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(pages_spent), 0) AS pages, COALESCE(SUM(rows_used), 0) AS rows
		 FROM daily_usage
		 WHERE tenant_id = ? AND day >= ?`,
		tenantID,
		since,
	).Scan(&totals).Error
	return totals, err
}

func (s *store) DeleteAllForTenant(ctx context.Context, tenantID snowflake.ID) error {
	if err := s.db.WithContext(ctx).Exec(`DELETE FROM usage_events WHERE tenant_id = ?`, tenantID).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Exec(`DELETE FROM daily_usage WHERE tenant_id = ?`, tenantID).Error
}
