package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/etc"
	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

const namespace = "codeinsight_vulnerability_report"

// Recorder collects the metrics of a single report run. A run is a batch job
// that cannot be scraped, so metrics are pushed to a Pushgateway at the end.
type Recorder struct {
	registry *prometheus.Registry

	projects        prometheus.Counter
	inventoryItems  prometheus.Counter
	sightings       prometheus.Counter
	ignored         prometheus.Counter
	unknownSeverity prometheus.Counter
	vulnerabilities *prometheus.GaugeVec
	duration        prometheus.Gauge
	lastSuccess     prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		projects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_total",
			Help:      "Projects of the hierarchy included in the report.",
		}),
		inventoryItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_items_total",
			Help:      "Inventory items processed.",
		}),
		sightings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vulnerability_sightings_total",
			Help:      "Vulnerabilities reported on inventory items after applying ignore lists.",
		}),
		ignored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ignored_vulnerabilities_total",
			Help:      "Vulnerabilities suppressed by inventory item ignore lists.",
		}),
		unknownSeverity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_severity_total",
			Help:      "Vulnerabilities with a severity label that matches no counter.",
		}),
		vulnerabilities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vulnerabilities",
			Help:      "Vulnerabilities counted for the whole application by severity.",
		}, []string{"metric"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Duration of the report run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Time the last report run completed successfully.",
		}),
	}

	r.registry.MustRegister(
		r.projects,
		r.inventoryItems,
		r.sightings,
		r.ignored,
		r.unknownSeverity,
		r.vulnerabilities,
		r.duration,
		r.lastSuccess,
	)
	return r
}

// Registry exposes the run registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordAggregation(stats vulnerability.Stats) {
	r.projects.Add(float64(stats.Projects))
	r.inventoryItems.Add(float64(stats.InventoryItems))
	r.sightings.Add(float64(stats.Sightings))
	r.ignored.Add(float64(stats.Ignored))
	r.unknownSeverity.Add(float64(stats.UnknownSeverity))
}

func (r *Recorder) RecordTotals(totals map[vulnerability.Metric]int) {
	for metric, total := range totals {
		r.vulnerabilities.WithLabelValues(string(metric)).Set(float64(total))
	}
}

func (r *Recorder) RecordCompletion(started, completed time.Time) {
	r.duration.Set(completed.Sub(started).Seconds())
	r.lastSuccess.Set(float64(completed.Unix()))
}

// Push sends the run metrics to the configured Pushgateway. Nothing is pushed
// when no Pushgateway is configured.
func (r *Recorder) Push(ctx context.Context, config etc.Metrics, reportName string) error {
	if config.PushgatewayURL == "" {
		slog.Debug("Pushgateway not configured, skipping metrics push")
		return nil
	}

	err := push.New(config.PushgatewayURL, config.Job).
		Gatherer(r.registry).
		Grouping("report", reportName).
		PushContext(ctx)
	if err != nil {
		return xerrors.Errorf("pushing metrics to %s: %w", config.PushgatewayURL, err)
	}

	slog.Debug("Pushed run metrics", slog.String("pushgateway", config.PushgatewayURL))
	return nil
}
