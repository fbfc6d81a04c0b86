package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/module"
	"github.com/quayside/chandler/pkg/types"
)

// panelPort is the application's listener inside its container
const panelPort = 8080

// PanelApp provisions the control panel application itself. It connects to
// the database module's schema with the panel credential and is published
// through the proxy under the configured domain.
type PanelApp struct {
	deps     *Deps
	database *Database
	proxy    *Proxy
	logger   zerolog.Logger
}

// NewPanelApp creates the panel module
func NewPanelApp(deps *Deps, database *Database, proxy *Proxy) *PanelApp {
	return &PanelApp{
		deps:     deps,
		database: database,
		proxy:    proxy,
		logger:   log.WithModule("panel"),
	}
}

// Name implements module.Module
func (p *PanelApp) Name() string { return "panel" }

// Dependencies implements module.Module
func (p *PanelApp) Dependencies() []string {
	return []string{"database", "proxy", "runtime"}
}

// InstanceName is the panel container's name
func (p *PanelApp) InstanceName() string {
	return p.deps.Ctx.InstanceName("panel")
}

// Install converges the panel: the instance deployed against the database
// module's credentials, readiness gated, and the configured domain routed
// to it through the proxy.
func (p *PanelApp) Install(ctx context.Context) error {
	// The panel credential belongs to the database module's set; installing
	// after it means GetOrCreate only ever reads here.
	creds, err := p.deps.Vault.GetOrCreate(p.database.Name(),
		[]string{CredentialRootPassword, CredentialPanelPassword})
	if err != nil {
		return err
	}

	spec := &types.InstanceSpec{
		Name:    p.InstanceName(),
		Image:   ImagePanel,
		Network: p.deps.Ctx.Network,
		Env: []string{
			"DB_HOST=" + p.database.InstanceName(),
			"DB_USER=" + PanelDBUser,
			"DB_PASSWORD=" + creds.Get(CredentialPanelPassword),
			"DB_NAME=" + PanelDatabase,
			"PANEL_DOMAIN=" + p.deps.Ctx.Domain,
		},
		Ports: []*types.PortMapping{
			{HostPort: p.deps.Ctx.Ports.Panel, ContainerPort: panelPort},
		},
		RestartPolicy: types.RestartUnlessStopped,
	}
	if err := p.deps.Instances.Deploy(ctx, spec); err != nil {
		return err
	}

	outcome := p.deps.Gate.AwaitReady(ctx, p.InstanceName(), p.readinessCheck())
	if outcome.Failed() {
		return fmt.Errorf("panel not ready (%s): %s\n%s",
			outcome.Reason, outcome.Message, outcome.Logs)
	}

	upstream := fmt.Sprintf("%s:%d", p.InstanceName(), panelPort)
	if err := p.proxy.AddSite(ctx, p.deps.Ctx.Domain, upstream); err != nil {
		return fmt.Errorf("failed to publish panel at %s: %w", p.deps.Ctx.Domain, err)
	}

	p.logger.Info().Str("domain", p.deps.Ctx.Domain).Msg("Panel ready")
	return nil
}

func (p *PanelApp) readinessCheck() *types.HealthCheck {
	return &types.HealthCheck{
		Type:        types.HealthCheckHTTP,
		Endpoint:    fmt.Sprintf("http://127.0.0.1:%d/healthz", p.deps.Ctx.Ports.Panel),
		Interval:    2 * time.Second,
		Timeout:     5 * time.Second,
		MaxAttempts: 45,
	}
}

// Status reports whether the panel is running and answering
func (p *PanelApp) Status(ctx context.Context) (*module.Status, error) {
	return httpInstanceStatus(ctx, p.deps, p.Name(), p.InstanceName(),
		fmt.Sprintf("http://127.0.0.1:%d/healthz", p.deps.Ctx.Ports.Panel))
}
