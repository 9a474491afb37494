package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ctfwatch_ingest_runs_total",
	Help: "Ingestion runs by source and result",
}, []string{"source", "result"})

var IngestRecords = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ctfwatch_ingest_records_total",
	Help: "Records processed by source and outcome (created, updated, skipped, failed)",
}, []string{"source", "outcome"})

var IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ctfwatch_ingest_duration_seconds",
	Help:    "Duration of one ingestion run",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
}, []string{"source"})

var UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ctfwatch_upstream_requests_total",
	Help: "Upstream HTTP requests by host and status code",
}, []string{"host", "code"})

var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ctfwatch_notifications_total",
	Help: "Digest deliveries by result",
}, []string{"result"})
