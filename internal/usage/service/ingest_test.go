package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	usagedomain "github.com/docupulse/docupulse/internal/usage/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupUsageDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tenantdomain.Tenant{},
		&usagedomain.UsageEvent{},
		&usagedomain.DailyUsage{},
	))
	return db
}

func newUsageService(t *testing.T) (usagedomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db := setupUsageDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	return svc, db, node
}

func seedTenant(t *testing.T, db *gorm.DB, node *snowflake.Node) snowflake.ID {
	t.Helper()
	tenant := &tenantdomain.Tenant{
		ID:            node.Generate(),
		Name:          "acme",
		BasePageLimit: 5000,
		BaseRowLimit:  50000,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant.ID
}

func TestIngest_IdempotentDuplicate(t *testing.T) {
	svc, db, node := newUsageService(t)
	tenantID := seedTenant(t, db, node)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, usagedomain.CreateIngestRequest{
		TenantID:       tenantID.String(),
		PagesSpent:     12,
		RowsUsed:       340,
		IdempotencyKey: "job-1",
	})
	require.NoError(t, err)
	assert.Equal(t, usagedomain.StatusCreated, first.Status)
	assert.NotZero(t, first.EventID)

	// Same key with different values: the retry must change nothing.
	second, err := svc.Ingest(ctx, usagedomain.CreateIngestRequest{
		TenantID:       tenantID.String(),
		PagesSpent:     999,
		RowsUsed:       999,
		IdempotencyKey: "job-1",
	})
	require.NoError(t, err)
	assert.Equal(t, usagedomain.StatusDuplicate, second.Status)
	assert.Zero(t, second.EventID)

	var eventCount int64
	require.NoError(t, db.Model(&usagedomain.UsageEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)

	var days []usagedomain.DailyUsage
	require.NoError(t, db.Find(&days).Error)
	require.Len(t, days, 1)
	assert.Equal(t, int64(12), days[0].PagesSpent)
	assert.Equal(t, int64(340), days[0].RowsUsed)
	assert.Equal(t, int64(1), days[0].EventCount)
}

func TestIngest_AggregatesSameDay(t *testing.T) {
	svc, db, node := newUsageService(t)
	tenantID := seedTenant(t, db, node)
	ctx := context.Background()
	occurred := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	for i, key := range []string{"a", "b", "c"} {
		result, err := svc.Ingest(ctx, usagedomain.CreateIngestRequest{
			TenantID:       tenantID.String(),
			PagesSpent:     10,
			RowsUsed:       100,
			IdempotencyKey: key,
			OccurredAt:     occurred.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, usagedomain.StatusCreated, result.Status)
	}

	var days []usagedomain.DailyUsage
	require.NoError(t, db.Find(&days).Error)
	require.Len(t, days, 1)
	assert.Equal(t, int64(30), days[0].PagesSpent)
	assert.Equal(t, int64(300), days[0].RowsUsed)
	assert.Equal(t, int64(3), days[0].EventCount)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), days[0].Day.UTC())
}

func TestIngest_Validation(t *testing.T) {
	svc, db, node := newUsageService(t)
	tenantID := seedTenant(t, db, node)

	tests := []struct {
		name    string
		req     usagedomain.CreateIngestRequest
		wantErr error
	}{
		{
			name:    "empty tenant",
			req:     usagedomain.CreateIngestRequest{TenantID: "", PagesSpent: 1},
			wantErr: usagedomain.ErrInvalidTenant,
		},
		{
			name:    "malformed tenant",
			req:     usagedomain.CreateIngestRequest{TenantID: "not-a-number", PagesSpent: 1},
			wantErr: usagedomain.ErrInvalidTenant,
		},
		{
			name:    "negative pages",
			req:     usagedomain.CreateIngestRequest{TenantID: tenantID.String(), PagesSpent: -1},
			wantErr: usagedomain.ErrInvalidPages,
		},
		{
			name:    "negative rows",
			req:     usagedomain.CreateIngestRequest{TenantID: tenantID.String(), RowsUsed: -5},
			wantErr: usagedomain.ErrInvalidRows,
		},
		{
			name:    "unknown tenant",
			req:     usagedomain.CreateIngestRequest{TenantID: node.Generate().String(), PagesSpent: 1},
			wantErr: usagedomain.ErrTenantNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestIngest_GeneratedKeysNeverCollide(t *testing.T) {
	svc, db, node := newUsageService(t)
	tenantID := seedTenant(t, db, node)
	ctx := context.Background()

	// Without a caller-supplied key every submission is a distinct event.
	for i := 0; i < 3; i++ {
		result, err := svc.Ingest(ctx, usagedomain.CreateIngestRequest{
			TenantID:   tenantID.String(),
			PagesSpent: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, usagedomain.StatusCreated, result.Status)
	}

	var eventCount int64
	require.NoError(t, db.Model(&usagedomain.UsageEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(3), eventCount)
}

func TestSummary_RangeFilter(t *testing.T) {
	svc, db, node := newUsageService(t)
	tenantID := seedTenant(t, db, node)
	ctx := context.Background()

	days := []time.Time{
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
	}
	for i, day := range days {
		_, err := svc.Ingest(ctx, usagedomain.CreateIngestRequest{
			TenantID:       tenantID.String(),
			PagesSpent:     int64(10 * (i + 1)),
			RowsUsed:       int64(i + 1),
			IdempotencyKey: day.Format("2006-01-02"),
			OccurredAt:     day,
		})
		require.NoError(t, err)
	}

	full, err := svc.Summary(ctx, usagedomain.SummaryRequest{TenantID: tenantID.String()})
	require.NoError(t, err)
	assert.Len(t, full.Days, 3)
	assert.Equal(t, int64(60), full.PagesSpent)
	assert.Equal(t, int64(6), full.RowsUsed)

	partial, err := svc.Summary(ctx, usagedomain.SummaryRequest{
		TenantID: tenantID.String(),
		From:     days[1],
		To:       days[1],
	})
	require.NoError(t, err)
	require.Len(t, partial.Days, 1)
	assert.Equal(t, int64(20), partial.PagesSpent)
	assert.Equal(t, int64(2), partial.RowsUsed)
}

func TestSummary_UnknownTenant(t *testing.T) {
	svc, _, node := newUsageService(t)

	_, err := svc.Summary(context.Background(), usagedomain.SummaryRequest{
		TenantID: node.Generate().String(),
	})
	assert.ErrorIs(t, err, usagedomain.ErrTenantNotFound)
}
