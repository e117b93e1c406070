// Package metrics exposes application-level prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module registers the metrics set on the default prometheus registry.
var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)

// Metrics holds counters for the metering and quota subsystem.
type Metrics struct {
	UsageEventsIngested     *prometheus.CounterVec
	UsageEventsDeduplicated *prometheus.CounterVec
	QuotaPauses             prometheus.Counter
	QuotaResumes            prometheus.Counter
	WorkflowAPIErrors       prometheus.Counter
	WebhookEvents           *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		UsageEventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usage_events_ingested_total",
			Help: "Accepted usage events, labelled by tenant.",
		}, []string{"tenant_id"}),
		UsageEventsDeduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usage_events_deduplicated_total",
			Help: "Ingest calls rejected as idempotency duplicates.",
		}, []string{"tenant_id"}),
		QuotaPauses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quota_pause_total",
			Help: "Quota-triggered pause transitions.",
		}),
		QuotaResumes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quota_resume_total",
			Help: "Resume transitions (reset, add-on, operator).",
		}),
		WorkflowAPIErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workflow_api_errors_total",
			Help: "Failed calls to the external workflow platform.",
		}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Billing webhook events by outcome.",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.UsageEventsIngested,
		m.UsageEventsDeduplicated,
		m.QuotaPauses,
		m.QuotaResumes,
		m.WorkflowAPIErrors,
		m.WebhookEvents,
	)
	return m
}
