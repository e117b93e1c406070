package server

import (
	"errors"
	"net/http"
	"testing"

	quotadomain "github.com/docupulse/docupulse/internal/quota/domain"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	usagedomain "github.com/docupulse/docupulse/internal/usage/domain"
	"github.com/docupulse/docupulse/internal/workflow"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "validation_error"},
		{"invalid pages", usagedomain.ErrInvalidPages, http.StatusBadRequest, "validation_error"},
		{"invalid addon type", tenantdomain.ErrInvalidAddonType, http.StatusBadRequest, "validation_error"},
		{"missing credentials", workflow.ErrNoCredentials, http.StatusBadRequest, "validation_error"},
		{"unresolved organization", workflow.ErrOrganizationUnresolved, http.StatusBadRequest, "validation_error"},
		{"tenant not found", quotadomain.ErrTenantNotFound, http.StatusNotFound, "not_found"},
		{"rate limited", ErrTooManyRequests, http.StatusTooManyRequests, "rate_limited"},
		{"platform down", workflow.ErrPlatformUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantType, payload.Type)
		})
	}
}
