package panel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/module"
	"github.com/quayside/chandler/pkg/reconcile"
	"github.com/quayside/chandler/pkg/render"
	"github.com/quayside/chandler/pkg/storage"
	"github.com/quayside/chandler/pkg/types"
)

// RejectedError reports a configuration change the service's own validator
// refused. The live configuration was not touched.
type RejectedError struct {
	Template        string
	ValidatorOutput string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected by validator: %s", e.Template, e.ValidatorOutput)
}

// Proxy provisions the nginx reverse proxy and owns the site registry.
// Every site change regenerates the whole sites file from the registry,
// validates the result with nginx's own checker in a throwaway container,
// and only then swaps it live and reloads the running proxy.
type Proxy struct {
	deps   *Deps
	logger zerolog.Logger
}

// NewProxy creates the proxy module
func NewProxy(deps *Deps) *Proxy {
	return &Proxy{
		deps:   deps,
		logger: log.WithModule("proxy"),
	}
}

// Name implements module.Module
func (p *Proxy) Name() string { return "proxy" }

// Dependencies implements module.Module
func (p *Proxy) Dependencies() []string { return nil }

// InstanceName is the proxy container's name
func (p *Proxy) InstanceName() string {
	return p.deps.Ctx.InstanceName("proxy")
}

// ConfigDir holds the rendered nginx configuration on the host
func (p *Proxy) ConfigDir() string {
	return filepath.Join(p.deps.Ctx.ConfigDir(), "proxy")
}

func (p *Proxy) nginxConfPath() string {
	return filepath.Join(p.ConfigDir(), "nginx.conf")
}

func (p *Proxy) sitesPath() string {
	return filepath.Join(p.ConfigDir(), "conf.d", "sites.conf")
}

// Install converges the proxy: config directories reconciled, the site set
// and main config rendered and validated, the instance deployed, readiness
// gated on the health endpoint.
func (p *Proxy) Install(ctx context.Context) error {
	if err := p.deps.Reconciler.EnsureAll(
		reconcile.NewTarget(p.ConfigDir(), 0o755),
		reconcile.NewTarget(filepath.Join(p.ConfigDir(), "conf.d"), 0o755),
	); err != nil {
		return err
	}

	// Sites first: validating nginx.conf needs the included sites file to
	// already exist at its live path.
	if err := p.applySites(ctx); err != nil {
		return err
	}
	if err := p.applyMainConfig(ctx); err != nil {
		return err
	}

	if err := p.deps.Instances.Deploy(ctx, p.spec()); err != nil {
		return err
	}

	outcome := p.deps.Gate.AwaitReady(ctx, p.InstanceName(), p.readinessCheck())
	if outcome.Failed() {
		return fmt.Errorf("proxy not ready (%s): %s\n%s",
			outcome.Reason, outcome.Message, outcome.Logs)
	}
	return nil
}

func (p *Proxy) spec() *types.InstanceSpec {
	return &types.InstanceSpec{
		Name:    p.InstanceName(),
		Image:   ImageNginx,
		Network: p.deps.Ctx.Network,
		Ports: []*types.PortMapping{
			{HostPort: p.deps.Ctx.Ports.HTTP, ContainerPort: 80},
			{HostPort: p.deps.Ctx.Ports.HTTPS, ContainerPort: 443},
		},
		Mounts: []*types.VolumeMount{
			{Source: p.nginxConfPath(), Target: "/etc/nginx/nginx.conf", ReadOnly: true},
			{Source: filepath.Join(p.ConfigDir(), "conf.d"), Target: "/etc/nginx/conf.d", ReadOnly: true},
		},
		RestartPolicy: types.RestartUnlessStopped,
	}
}

func (p *Proxy) readinessCheck() *types.HealthCheck {
	return &types.HealthCheck{
		Type:        types.HealthCheckHTTP,
		Endpoint:    fmt.Sprintf("http://127.0.0.1:%d/healthz", p.deps.Ctx.Ports.HTTP),
		Interval:    2 * time.Second,
		Timeout:     5 * time.Second,
		MaxAttempts: 30,
	}
}

// applyMainConfig renders and applies nginx.conf. Validation runs nginx -t
// in a throwaway container with the staged file mounted over the live one,
// so a broken render can never reach the running proxy.
func (p *Proxy) applyMainConfig(ctx context.Context) error {
	live := p.nginxConfPath()
	staged := render.StagedPath(live)

	result, err := p.deps.Renderer.Apply(ctx, &render.Template{
		Name:     "nginx.conf",
		Source:   nginxConfTemplate,
		Values:   map[string]string{"MAX_BODY_SIZE": "64m"},
		LivePath: live,
		Validate: p.validateArgs(staged, "/etc/nginx/nginx.conf", p.sitesPath(), "/etc/nginx/conf.d/sites.conf"),
		Reload:   p.reloadArgs(ctx),
	})
	if err != nil {
		return err
	}
	if result.Rejected() {
		return &RejectedError{Template: "nginx.conf", ValidatorOutput: result.ValidatorOutput}
	}
	return nil
}

// applySites regenerates the whole sites file from the registry and applies
// it through the same validate-then-swap cycle
func (p *Proxy) applySites(ctx context.Context) error {
	result, err := p.applySitesResult(ctx)
	if err != nil {
		return err
	}
	if result.Rejected() {
		return &RejectedError{Template: "sites.conf", ValidatorOutput: result.ValidatorOutput}
	}
	return nil
}

func (p *Proxy) applySitesResult(ctx context.Context) (*render.Result, error) {
	sites, err := p.deps.Store.ListSites()
	if err != nil {
		return nil, err
	}
	source, err := renderSites(sites)
	if err != nil {
		return nil, err
	}

	live := p.sitesPath()
	staged := render.StagedPath(live)

	// On first install nginx.conf is not rendered yet; nginx's stock config
	// includes conf.d/*.conf, which covers the staged sites file alone.
	validate := p.validateArgs(staged, "/etc/nginx/conf.d/sites.conf")
	if exists(p.nginxConfPath()) {
		validate = p.validateArgs(
			p.nginxConfPath(), "/etc/nginx/nginx.conf",
			staged, "/etc/nginx/conf.d/sites.conf")
	}

	return p.deps.Renderer.Apply(ctx, &render.Template{
		Name:     "sites.conf",
		Source:   source,
		Values:   nil,
		LivePath: live,
		Validate: validate,
		Reload:   p.reloadArgs(ctx),
	})
}

// renderSites concatenates one rendered server block per registered site
func renderSites(sites []*types.SiteRecord) (string, error) {
	var b strings.Builder
	b.WriteString("# Managed by chandler. Regenerated from the site registry on every change.\n")
	for _, site := range sites {
		block, err := render.Render(siteConfTemplate, map[string]string{
			"DOMAIN":   site.Domain,
			"UPSTREAM": site.Upstream,
		})
		if err != nil {
			return "", fmt.Errorf("site %s: %w", site.Domain, err)
		}
		b.WriteByte('\n')
		b.WriteString(block)
	}
	return b.String(), nil
}

// validateArgs builds the nginx -t invocation: a throwaway container with
// the given host paths bind-mounted read-only at their container locations
func (p *Proxy) validateArgs(pairs ...string) []string {
	args := []string{"docker", "run", "--rm"}
	for i := 0; i+1 < len(pairs); i += 2 {
		args = append(args, "-v", pairs[i]+":"+pairs[i+1]+":ro")
	}
	return append(args, ImageNginx, "nginx", "-t")
}

// reloadArgs signals the running proxy, or nothing when it is not running
// yet (the fresh container reads the new config on start)
func (p *Proxy) reloadArgs(ctx context.Context) []string {
	running, err := p.deps.Instances.Running(ctx, p.InstanceName())
	if err != nil || !running {
		return nil
	}
	return []string{"docker", "exec", p.InstanceName(), "nginx", "-s", "reload"}
}

// AddSite registers a domain proxied to upstream and regenerates the site
// set. A rejected validation rolls the registration back and surfaces the
// validator's diagnostics; the live configuration is untouched either way.
func (p *Proxy) AddSite(ctx context.Context, domain, upstream string) error {
	if domain == "" || upstream == "" {
		return fmt.Errorf("site requires a domain and an upstream")
	}

	previous, err := p.deps.Store.GetSite(domain)
	if err != nil && !storageNotFound(err) {
		return err
	}

	if err := p.deps.Store.SaveSite(&types.SiteRecord{
		Domain:    domain,
		Upstream:  upstream,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	result, err := p.applySitesResult(ctx)
	if err != nil {
		return err
	}
	if result.Rejected() {
		// Restore the registry to match the untouched live config.
		if previous != nil {
			_ = p.deps.Store.SaveSite(previous)
		} else {
			_ = p.deps.Store.DeleteSite(domain)
		}
		p.deps.Broker.Publish(events.New(events.EventConfigRejected, result.ValidatorOutput).
			WithModule(p.Name()).
			WithMeta("domain", domain))
		return &RejectedError{Template: "sites.conf", ValidatorOutput: result.ValidatorOutput}
	}

	p.deps.Broker.Publish(events.New(events.EventSiteAdded, upstream).
		WithModule(p.Name()).
		WithMeta("domain", domain))
	p.logger.Info().Str("domain", domain).Str("upstream", upstream).Msg("Site added")
	return nil
}

// RemoveSite deletes a registered site and regenerates the site set.
// Removing an unregistered domain is success.
func (p *Proxy) RemoveSite(ctx context.Context, domain string) error {
	previous, err := p.deps.Store.GetSite(domain)
	if err != nil {
		if storageNotFound(err) {
			return nil
		}
		return err
	}

	if err := p.deps.Store.DeleteSite(domain); err != nil {
		return err
	}

	result, err := p.applySitesResult(ctx)
	if err != nil {
		return err
	}
	if result.Rejected() {
		_ = p.deps.Store.SaveSite(previous)
		return &RejectedError{Template: "sites.conf", ValidatorOutput: result.ValidatorOutput}
	}

	p.deps.Broker.Publish(events.New(events.EventSiteRemoved, "").
		WithModule(p.Name()).
		WithMeta("domain", domain))
	p.logger.Info().Str("domain", domain).Msg("Site removed")
	return nil
}

// Status reports whether the proxy is running and serving its health
// endpoint
func (p *Proxy) Status(ctx context.Context) (*module.Status, error) {
	return httpInstanceStatus(ctx, p.deps, p.Name(), p.InstanceName(),
		fmt.Sprintf("http://127.0.0.1:%d/healthz", p.deps.Ctx.Ports.HTTP))
}

func storageNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// exists reports whether a host path is present
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
