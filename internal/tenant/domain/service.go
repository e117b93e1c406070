package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateTenantRequest struct {
	Name string `json:"name"`
}

type UpdateCredentialsRequest struct {
	APIKey         *string `json:"api_key"`
	OrganizationID *string `json:"organization_id"`
	FolderID       *string `json:"folder_id"`
}

type Service interface {
	Create(context.Context, CreateTenantRequest) (*Tenant, error)
	Get(ctx context.Context, id snowflake.ID) (*Tenant, error)
	UpdateCredentials(ctx context.Context, id snowflake.ID, req UpdateCredentialsRequest) error

	// IncrementAddon atomically adds quantity to the matching add-on limit.
	IncrementAddon(ctx context.Context, id snowflake.ID, addon AddonType, quantity int64) error

	SetPaused(ctx context.Context, id snowflake.ID, paused bool) error

	// ApplyReset zeroes both add-on limits and stamps last_reset_at in a
	// single update. When clearPaused is set the paused flag is cleared in
	// the same statement.
	ApplyReset(ctx context.Context, id snowflake.ID, resetAt time.Time, clearPaused bool) error
}

var (
	ErrTenantNotFound   = errors.New("tenant_not_found")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidAddonType = errors.New("invalid_addon_type")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
)
