package billingwebhook

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	quotadomain "github.com/docupulse/docupulse/internal/quota/domain"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	"github.com/docupulse/docupulse/internal/workflow"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// -- Mocks --

type tenantMock struct {
	mock.Mock
}

func (m *tenantMock) Create(ctx context.Context, req tenantdomain.CreateTenantRequest) (*tenantdomain.Tenant, error) {
	return nil, nil
}

func (m *tenantMock) Get(ctx context.Context, id snowflake.ID) (*tenantdomain.Tenant, error) {
	return &tenantdomain.Tenant{ID: id}, nil
}

func (m *tenantMock) UpdateCredentials(ctx context.Context, id snowflake.ID, req tenantdomain.UpdateCredentialsRequest) error {
	return nil
}

func (m *tenantMock) IncrementAddon(ctx context.Context, id snowflake.ID, addon tenantdomain.AddonType, quantity int64) error {
	args := m.Called(ctx, id, addon, quantity)
	return args.Error(0)
}

func (m *tenantMock) SetPaused(ctx context.Context, id snowflake.ID, paused bool) error {
	return nil
}

func (m *tenantMock) ApplyReset(ctx context.Context, id snowflake.ID, resetAt time.Time, clearPaused bool) error {
	return nil
}

type quotaMock struct {
	mock.Mock
}

func (m *quotaMock) CheckAndPauseIfNeeded(ctx context.Context, tenantID snowflake.ID) error {
	return nil
}

func (m *quotaMock) ApplyMonthlyResetIfNeeded(ctx context.Context, tenantID snowflake.ID) error {
	return nil
}

func (m *quotaMock) CheckAndResumeIfPossible(ctx context.Context, tenantID snowflake.ID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *quotaMock) Status(ctx context.Context, tenantID snowflake.ID) (quotadomain.Status, error) {
	return quotadomain.Status{}, nil
}

func (m *quotaMock) PauseAll(ctx context.Context, tenantID snowflake.ID) (workflow.ActionResult, error) {
	return workflow.ActionResult{}, nil
}

func (m *quotaMock) ResumeAll(ctx context.Context, tenantID snowflake.ID) (workflow.ActionResult, error) {
	return workflow.ActionResult{}, nil
}

func (m *quotaMock) AdminReset(ctx context.Context, tenantID snowflake.ID) error {
	return nil
}

// -- Fixture --

type webhookFixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	tenant *tenantMock
	quota  *quotaMock
	svc    *Service
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&WebhookEvent{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	tenantSvc := &tenantMock{}
	quotaSvc := &quotaMock{}

	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		TenantSvc: tenantSvc,
		QuotaSvc:  quotaSvc,
	})

	return &webhookFixture{
		db:     db,
		node:   node,
		tenant: tenantSvc,
		quota:  quotaSvc,
		svc:    svc,
	}
}

func (f *webhookFixture) storedEvent(t *testing.T, providerEventID string) WebhookEvent {
	t.Helper()
	var record WebhookEvent
	require.NoError(t, f.db.Where("provider_event_id = ?", providerEventID).First(&record).Error)
	return record
}

// -- Tests --

func TestHandlePurchaseCompleted_AppliesAddon(t *testing.T) {
	f := newWebhookFixture(t)
	tenantID := f.node.Generate()

	f.tenant.On("IncrementAddon", mock.Anything, tenantID, tenantdomain.AddonTypePages, int64(1000)).
		Return(nil).Once()
	f.quota.On("CheckAndResumeIfPossible", mock.Anything, tenantID).Return(nil).Once()

	f.svc.HandlePurchaseCompleted(context.Background(), PurchaseEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		TenantID:        tenantID.String(),
		AddonType:       "pages",
		AddonQuantity:   1000,
	})

	f.tenant.AssertExpectations(t)
	f.quota.AssertExpectations(t)

	record := f.storedEvent(t, "evt_1")
	assert.NotNil(t, record.ProcessedAt)
	assert.Empty(t, record.ProcessingError)
}

func TestHandlePurchaseCompleted_DuplicateDeliveryIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	tenantID := f.node.Generate()

	f.tenant.On("IncrementAddon", mock.Anything, tenantID, tenantdomain.AddonTypeRows, int64(500)).
		Return(nil).Once()
	f.quota.On("CheckAndResumeIfPossible", mock.Anything, tenantID).Return(nil).Once()

	event := PurchaseEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_2",
		TenantID:        tenantID.String(),
		AddonType:       "rows",
		AddonQuantity:   500,
	}
	f.svc.HandlePurchaseCompleted(context.Background(), event)
	f.svc.HandlePurchaseCompleted(context.Background(), event)

	// Redelivery must not double-apply the purchase.
	f.tenant.AssertNumberOfCalls(t, "IncrementAddon", 1)

	var count int64
	require.NoError(t, f.db.Model(&WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandlePurchaseCompleted_MalformedMetadata(t *testing.T) {
	f := newWebhookFixture(t)

	tests := []struct {
		name  string
		event PurchaseEvent
	}{
		{
			name: "bad tenant id",
			event: PurchaseEvent{
				Provider:        "stripe",
				ProviderEventID: "evt_bad_tenant",
				TenantID:        "not-an-id",
				AddonType:       "pages",
				AddonQuantity:   100,
			},
		},
		{
			name: "unknown addon type",
			event: PurchaseEvent{
				Provider:        "stripe",
				ProviderEventID: "evt_bad_type",
				TenantID:        f.node.Generate().String(),
				AddonType:       "credits",
				AddonQuantity:   100,
			},
		},
		{
			name: "non-positive quantity",
			event: PurchaseEvent{
				Provider:        "stripe",
				ProviderEventID: "evt_bad_qty",
				TenantID:        f.node.Generate().String(),
				AddonType:       "pages",
				AddonQuantity:   0,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f.svc.HandlePurchaseCompleted(context.Background(), tc.event)

			record := f.storedEvent(t, tc.event.ProviderEventID)
			assert.NotNil(t, record.ProcessedAt)
			assert.NotEmpty(t, record.ProcessingError)
		})
	}

	f.tenant.AssertNotCalled(t, "IncrementAddon", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePurchaseCompleted_WithoutEventIDProcessesUnconditionally(t *testing.T) {
	f := newWebhookFixture(t)
	tenantID := f.node.Generate()

	f.tenant.On("IncrementAddon", mock.Anything, tenantID, tenantdomain.AddonTypePages, int64(100)).
		Return(nil).Twice()
	f.quota.On("CheckAndResumeIfPossible", mock.Anything, tenantID).Return(nil).Twice()

	event := PurchaseEvent{
		Provider:      "stripe",
		TenantID:      tenantID.String(),
		AddonType:     "pages",
		AddonQuantity: 100,
	}
	f.svc.HandlePurchaseCompleted(context.Background(), event)
	f.svc.HandlePurchaseCompleted(context.Background(), event)

	f.tenant.AssertExpectations(t)
}
