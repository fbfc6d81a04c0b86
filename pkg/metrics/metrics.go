package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Module metrics
	ModulesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chandler_modules_total",
			Help: "Total number of provisioning modules by state",
		},
		[]string{"state"},
	)

	ModuleInstallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chandler_module_installs_total",
			Help: "Total number of module install runs by module and result",
		},
		[]string{"module", "result"},
	)

	ModuleInstallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chandler_module_install_duration_seconds",
			Help:    "Module install duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"module"},
	)

	// Instance metrics
	InstancesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chandler_instances_total",
			Help: "Total number of managed service instances by state",
		},
		[]string{"state"},
	)

	// Reconciler metrics
	EnsureOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chandler_ensure_outcomes_total",
			Help: "Total number of resource reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	EnsureDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chandler_ensure_duration_seconds",
			Help:    "Resource reconciliation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Credential metrics
	CredentialsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chandler_credentials_generated_total",
			Help: "Total number of credential values generated by service",
		},
		[]string{"service"},
	)

	// Config metrics
	ConfigAppliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chandler_config_applies_total",
			Help: "Total number of configuration applies by template and result",
		},
		[]string{"template", "result"},
	)

	// Health gate metrics
	ReadinessWaits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chandler_readiness_wait_seconds",
			Help:    "Time spent waiting for instances to become ready by outcome",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		},
		[]string{"outcome"},
	)

	ReadinessAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chandler_readiness_attempts",
			Help:    "Poll attempts consumed before a readiness gate resolved",
			Buckets: prometheus.LinearBuckets(1, 5, 9),
		},
		[]string{"outcome"},
	)

	// Fallback metrics
	FallbackAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chandler_fallback_attempts_total",
			Help: "Total number of deployment candidates attempted by instance",
		},
		[]string{"instance"},
	)

	FallbackExhaustionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chandler_fallback_exhaustions_total",
			Help: "Total number of deployments that exhausted every candidate",
		},
	)

	// Backup metrics
	BackupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chandler_backups_total",
			Help: "Total number of backup runs by target, mode, and result",
		},
		[]string{"target", "mode", "result"},
	)

	BackupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chandler_backup_duration_seconds",
			Help:    "Backup run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"target"},
	)

	BackupArtifacts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chandler_backup_artifacts",
			Help: "Number of retained backup artifacts by target",
		},
		[]string{"target"},
	)

	BackupSizeBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chandler_backup_last_size_bytes",
			Help: "Size in bytes of the most recent backup artifact by target",
		},
		[]string{"target"},
	)

	BackupsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chandler_backups_pruned_total",
			Help: "Total number of backup artifacts removed by retention pruning",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chandler_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chandler_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ModulesTotal)
	prometheus.MustRegister(ModuleInstallsTotal)
	prometheus.MustRegister(ModuleInstallDuration)
	prometheus.MustRegister(InstancesTotal)
	prometheus.MustRegister(EnsureOutcomesTotal)
	prometheus.MustRegister(EnsureDuration)
	prometheus.MustRegister(CredentialsGeneratedTotal)
	prometheus.MustRegister(ConfigAppliesTotal)
	prometheus.MustRegister(ReadinessWaits)
	prometheus.MustRegister(ReadinessAttempts)
	prometheus.MustRegister(FallbackAttemptsTotal)
	prometheus.MustRegister(FallbackExhaustionsTotal)
	prometheus.MustRegister(BackupsTotal)
	prometheus.MustRegister(BackupDuration)
	prometheus.MustRegister(BackupArtifacts)
	prometheus.MustRegister(BackupSizeBytes)
	prometheus.MustRegister(BackupsPrunedTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
