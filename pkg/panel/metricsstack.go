package panel

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/module"
	"github.com/quayside/chandler/pkg/reconcile"
	"github.com/quayside/chandler/pkg/render"
	"github.com/quayside/chandler/pkg/types"
)

const (
	// prometheusMarker is created by the TSDB on first start
	prometheusMarker = "wal"

	// grafanaMarker is Grafana's settings database
	grafanaMarker = "grafana.db"
)

// MetricsStack provisions Prometheus and Grafana. The scrape configuration
// is rendered from a template and checked with promtool before it can
// reach the running server.
type MetricsStack struct {
	deps   *Deps
	logger zerolog.Logger
}

// NewMetricsStack creates the metrics module
func NewMetricsStack(deps *Deps) *MetricsStack {
	return &MetricsStack{
		deps:   deps,
		logger: log.WithModule("metrics"),
	}
}

// Name implements module.Module
func (m *MetricsStack) Name() string { return "metrics" }

// Dependencies implements module.Module
func (m *MetricsStack) Dependencies() []string { return nil }

// PrometheusInstance is the Prometheus container's name
func (m *MetricsStack) PrometheusInstance() string {
	return m.deps.Ctx.InstanceName("prometheus")
}

// GrafanaInstance is the Grafana container's name
func (m *MetricsStack) GrafanaInstance() string {
	return m.deps.Ctx.InstanceName("grafana")
}

// ConfigDir holds the rendered Prometheus configuration
func (m *MetricsStack) ConfigDir() string {
	return filepath.Join(m.deps.Ctx.ConfigDir(), "metrics")
}

func (m *MetricsStack) prometheusConfPath() string {
	return filepath.Join(m.ConfigDir(), "prometheus.yml")
}

// Install converges the metrics stack: directories reconciled, the scrape
// config rendered and validated, both instances deployed and gated.
func (m *MetricsStack) Install(ctx context.Context) error {
	prometheusData := m.deps.Ctx.ServiceDataDir("prometheus")
	grafanaData := m.deps.Ctx.ServiceDataDir("grafana")
	if err := m.deps.Reconciler.EnsureAll(
		reconcile.NewTarget(m.ConfigDir(), 0o755),
		reconcile.NewTarget(prometheusData, 0o777).WithMarker(prometheusMarker),
		reconcile.NewTarget(grafanaData, 0o777).WithMarker(grafanaMarker),
	); err != nil {
		return err
	}

	if err := m.applyPrometheusConfig(ctx); err != nil {
		return err
	}

	if err := m.deps.Instances.Deploy(ctx, m.prometheusSpec(prometheusData)); err != nil {
		return err
	}
	outcome := m.deps.Gate.AwaitReady(ctx, m.PrometheusInstance(), &types.HealthCheck{
		Type:        types.HealthCheckHTTP,
		Endpoint:    fmt.Sprintf("http://127.0.0.1:%d/-/ready", m.deps.Ctx.Ports.Prometheus),
		Interval:    2 * time.Second,
		Timeout:     5 * time.Second,
		MaxAttempts: 30,
	})
	if outcome.Failed() {
		return fmt.Errorf("prometheus not ready (%s): %s\n%s",
			outcome.Reason, outcome.Message, outcome.Logs)
	}

	creds, err := m.deps.Vault.GetOrCreate("grafana", []string{CredentialAdminPassword})
	if err != nil {
		return err
	}
	if err := m.deps.Instances.Deploy(ctx, m.grafanaSpec(grafanaData, creds)); err != nil {
		return err
	}
	outcome = m.deps.Gate.AwaitReady(ctx, m.GrafanaInstance(), &types.HealthCheck{
		Type:        types.HealthCheckHTTP,
		Endpoint:    fmt.Sprintf("http://127.0.0.1:%d/api/health", m.deps.Ctx.Ports.Grafana),
		Interval:    2 * time.Second,
		Timeout:     5 * time.Second,
		MaxAttempts: 45,
	})
	if outcome.Failed() {
		return fmt.Errorf("grafana not ready (%s): %s\n%s",
			outcome.Reason, outcome.Message, outcome.Logs)
	}
	return nil
}

// applyPrometheusConfig renders prometheus.yml and validates the staged
// file with promtool in a throwaway container before the swap. A running
// Prometheus is signalled with SIGHUP to reload.
func (m *MetricsStack) applyPrometheusConfig(ctx context.Context) error {
	live := m.prometheusConfPath()
	staged := render.StagedPath(live)

	var reload []string
	if running, err := m.deps.Instances.Running(ctx, m.PrometheusInstance()); err == nil && running {
		reload = []string{"docker", "kill", "--signal=HUP", m.PrometheusInstance()}
	}

	result, err := m.deps.Renderer.Apply(ctx, &render.Template{
		Name:   "prometheus.yml",
		Source: prometheusTemplate,
		Values: map[string]string{
			"AGENT_TARGET":   m.deps.Ctx.Agent.Listen,
			"GRAFANA_TARGET": fmt.Sprintf("%s:3000", m.GrafanaInstance()),
		},
		LivePath: live,
		Validate: []string{
			"docker", "run", "--rm",
			"-v", staged + ":/etc/prometheus/prometheus.yml:ro",
			"--entrypoint", "promtool",
			ImagePrometheus,
			"check", "config", "/etc/prometheus/prometheus.yml",
		},
		Reload: reload,
	})
	if err != nil {
		return err
	}
	if result.Rejected() {
		return &RejectedError{Template: "prometheus.yml", ValidatorOutput: result.ValidatorOutput}
	}
	return nil
}

func (m *MetricsStack) prometheusSpec(dataDir string) *types.InstanceSpec {
	return &types.InstanceSpec{
		Name:    m.PrometheusInstance(),
		Image:   ImagePrometheus,
		Network: m.deps.Ctx.Network,
		Ports: []*types.PortMapping{
			{HostPort: m.deps.Ctx.Ports.Prometheus, ContainerPort: 9090},
		},
		Mounts: []*types.VolumeMount{
			{Source: m.prometheusConfPath(), Target: "/etc/prometheus/prometheus.yml", ReadOnly: true},
			{Source: dataDir, Target: "/prometheus"},
		},
		RestartPolicy: types.RestartUnlessStopped,
	}
}

func (m *MetricsStack) grafanaSpec(dataDir string, creds *types.CredentialSet) *types.InstanceSpec {
	return &types.InstanceSpec{
		Name:    m.GrafanaInstance(),
		Image:   ImageGrafana,
		Network: m.deps.Ctx.Network,
		Env: []string{
			"GF_SECURITY_ADMIN_USER=admin",
			"GF_SECURITY_ADMIN_PASSWORD=" + creds.Get(CredentialAdminPassword),
		},
		Ports: []*types.PortMapping{
			{HostPort: m.deps.Ctx.Ports.Grafana, ContainerPort: 3000},
		},
		Mounts: []*types.VolumeMount{
			{Source: dataDir, Target: "/var/lib/grafana"},
		},
		RestartPolicy: types.RestartUnlessStopped,
	}
}

// Status reports both instances; the module is healthy only when both are
func (m *MetricsStack) Status(ctx context.Context) (*module.Status, error) {
	prom, err := httpInstanceStatus(ctx, m.deps, m.Name(), m.PrometheusInstance(),
		fmt.Sprintf("http://127.0.0.1:%d/-/ready", m.deps.Ctx.Ports.Prometheus))
	if err != nil {
		return nil, err
	}
	if !prom.Healthy {
		prom.Detail = "prometheus: " + prom.Detail
		return prom, nil
	}

	grafana, err := httpInstanceStatus(ctx, m.deps, m.Name(), m.GrafanaInstance(),
		fmt.Sprintf("http://127.0.0.1:%d/api/health", m.deps.Ctx.Ports.Grafana))
	if err != nil {
		return nil, err
	}
	if !grafana.Healthy {
		grafana.Detail = "grafana: " + grafana.Detail
		return grafana, nil
	}
	return &module.Status{Module: m.Name(), Healthy: true}, nil
}
