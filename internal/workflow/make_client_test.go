package workflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/docupulse/docupulse/internal/config"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) Client {
	return NewMakeClient(ClientParam{
		Cfg: config.Config{
			Make: config.MakeConfig{
				BaseURL:        baseURL,
				TimeoutSeconds: 2,
			},
		},
		Log: zap.NewNop(),
	})
}

type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func TestResolveOrganizationID_StoredIDShortCircuits(t *testing.T) {
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.add(r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	tenant := &tenantdomain.Tenant{MakeAPIKey: "key", MakeOrganizationID: "42"}

	orgID, err := client.ResolveOrganizationID(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, "42", orgID)
	assert.Empty(t, seen.all())
}

func TestResolveOrganizationID_FallsBackToOrganizationListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/me":
			// Profile lookup unavailable; the chain must continue.
			w.WriteHeader(http.StatusInternalServerError)
		case "/organizations":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"organizations":[{"id":77,"name":"main"},{"id":88,"name":"other"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	tenant := &tenantdomain.Tenant{MakeAPIKey: "key"}

	orgID, err := client.ResolveOrganizationID(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, "77", orgID)
}

func TestResolveOrganizationID_UserProfileWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/me":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"authUser":{"id":1,"organizationId":31}}`))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	tenant := &tenantdomain.Tenant{MakeAPIKey: "key"}

	orgID, err := client.ResolveOrganizationID(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, "31", orgID)
}

func TestResolveOrganizationID_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.ResolveOrganizationID(context.Background(), &tenantdomain.Tenant{})
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = client.ResolveOrganizationID(context.Background(), &tenantdomain.Tenant{MakeAPIKey: "key"})
	assert.ErrorIs(t, err, ErrOrganizationUnresolved)
}

func TestPauseAll_PartialFailureIsCounted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scenarios":
			assert.Equal(t, "42", r.URL.Query().Get("organizationId"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"scenarios":[{"id":1,"name":"a"},{"id":2,"name":"b"},{"id":3,"name":"c"}]}`))
		case "/scenarios/2/stop":
			// One scenario fails; the loop must keep going.
			w.WriteHeader(http.StatusInternalServerError)
		case "/scenarios/1/stop", "/scenarios/3/stop":
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	tenant := &tenantdomain.Tenant{MakeAPIKey: "key", MakeOrganizationID: "42"}

	result, err := client.PauseAll(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
}

func TestListScenarios_DegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	// No credentials: nothing to list, no error.
	scenarios, err := client.ListScenarios(context.Background(), &tenantdomain.Tenant{})
	require.NoError(t, err)
	assert.Empty(t, scenarios)

	// Platform down: background callers still get an empty result.
	scenarios, err = client.ListScenarios(context.Background(), &tenantdomain.Tenant{
		MakeAPIKey:         "key",
		MakeOrganizationID: "42",
	})
	require.NoError(t, err)
	assert.Empty(t, scenarios)
}

func TestDoRequest_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1500 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewMakeClient(ClientParam{
		Cfg: config.Config{
			Make: config.MakeConfig{
				BaseURL:        srv.URL,
				TimeoutSeconds: 1,
			},
		},
		Log: zap.NewNop(),
	})
	tenant := &tenantdomain.Tenant{MakeAPIKey: "key"}

	_, err := client.ScenarioUsage(context.Background(), tenant, 7)
	assert.ErrorIs(t, err, ErrPlatformUnavailable)
}

func TestDoRequest_SendsTokenAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token secret-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"usage":[{"date":"2026-03-09","operations":120,"dataTransfer":9000}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	tenant := &tenantdomain.Tenant{MakeAPIKey: "secret-key"}

	usage, err := client.ScenarioUsage(context.Background(), tenant, 7)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, int64(120), usage[0].Operations)
}
