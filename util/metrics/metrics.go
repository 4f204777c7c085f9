// Package metrics exposes Prometheus collectors for the catalog.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	loginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_uploads_total",
		Help: "Image uploads by result.",
	}, []string{"result"})

	speciesMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_species_mutations_total",
		Help: "Species records created, updated and deleted.",
	}, []string{"op"})

	exportedRows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_csv_exported_rows_total",
		Help: "Species rows written to CSV exports.",
	})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		loginAttempts,
		uploads,
		speciesMutations,
		exportedRows,
	)
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func LoginSucceeded() { loginAttempts.WithLabelValues("success").Inc() }

func LoginFailed() { loginAttempts.WithLabelValues("failure").Inc() }

func UploadAccepted() { uploads.WithLabelValues("accepted").Inc() }

func UploadRejected() { uploads.WithLabelValues("rejected").Inc() }

func SpeciesCreated() { speciesMutations.WithLabelValues("create").Inc() }

func SpeciesUpdated() { speciesMutations.WithLabelValues("update").Inc() }

func SpeciesDeleted() { speciesMutations.WithLabelValues("delete").Inc() }

func RowExported() { exportedRows.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
