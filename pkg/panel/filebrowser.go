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
	"github.com/quayside/chandler/pkg/types"
)

// CredentialAdminPassword is the key under which web UIs store their admin
// secret (file browser and Grafana each have their own credential file)
const CredentialAdminPassword = "admin_password"

// fileBrowserMarker is the settings database the service creates on first
// start; its presence proves the data directory is initialized
const fileBrowserMarker = "filebrowser.db"

// FileBrowser provisions the web file manager over the panel's web root
type FileBrowser struct {
	deps   *Deps
	logger zerolog.Logger
}

// NewFileBrowser creates the file browser module
func NewFileBrowser(deps *Deps) *FileBrowser {
	return &FileBrowser{
		deps:   deps,
		logger: log.WithModule("filebrowser"),
	}
}

// Name implements module.Module
func (f *FileBrowser) Name() string { return "filebrowser" }

// Dependencies implements module.Module
func (f *FileBrowser) Dependencies() []string { return nil }

// InstanceName is the file browser container's name
func (f *FileBrowser) InstanceName() string {
	return f.deps.Ctx.InstanceName("filebrowser")
}

// DataDir holds the service's settings database
func (f *FileBrowser) DataDir() string {
	return f.deps.Ctx.ServiceDataDir("filebrowser")
}

// WebRoot is the directory the browser exposes, shared with the panel
func (f *FileBrowser) WebRoot() string {
	return filepath.Join(f.deps.Ctx.DataRoot, "www")
}

// Install converges the file browser: directories reconciled, the admin
// credential loaded or minted once, the instance deployed and gated on its
// health endpoint.
func (f *FileBrowser) Install(ctx context.Context) error {
	if err := f.deps.Reconciler.EnsureAll(
		reconcile.NewTarget(f.DataDir(), 0o700).WithMarker(fileBrowserMarker),
		reconcile.NewTarget(f.WebRoot(), 0o755),
	); err != nil {
		return err
	}

	creds, err := f.deps.Vault.GetOrCreate(f.Name(), []string{CredentialAdminPassword})
	if err != nil {
		return err
	}

	spec := &types.InstanceSpec{
		Name:    f.InstanceName(),
		Image:   ImageFileBrowser,
		Network: f.deps.Ctx.Network,
		Env: []string{
			"FB_DATABASE=/database/" + fileBrowserMarker,
			"FB_USERNAME=admin",
			"FB_PASSWORD=" + creds.Get(CredentialAdminPassword),
		},
		Ports: []*types.PortMapping{
			{HostPort: f.deps.Ctx.Ports.FileBrowser, ContainerPort: 80},
		},
		Mounts: []*types.VolumeMount{
			{Source: f.DataDir(), Target: "/database"},
			{Source: f.WebRoot(), Target: "/srv"},
		},
		RestartPolicy: types.RestartUnlessStopped,
	}
	if err := f.deps.Instances.Deploy(ctx, spec); err != nil {
		return err
	}

	outcome := f.deps.Gate.AwaitReady(ctx, f.InstanceName(), f.readinessCheck())
	if outcome.Failed() {
		return fmt.Errorf("file browser not ready (%s): %s\n%s",
			outcome.Reason, outcome.Message, outcome.Logs)
	}
	return nil
}

func (f *FileBrowser) readinessCheck() *types.HealthCheck {
	return &types.HealthCheck{
		Type:        types.HealthCheckHTTP,
		Endpoint:    fmt.Sprintf("http://127.0.0.1:%d/health", f.deps.Ctx.Ports.FileBrowser),
		Interval:    2 * time.Second,
		Timeout:     5 * time.Second,
		MaxAttempts: 30,
	}
}

// Status reports whether the file browser is running and answering
func (f *FileBrowser) Status(ctx context.Context) (*module.Status, error) {
	return httpInstanceStatus(ctx, f.deps, f.Name(), f.InstanceName(),
		fmt.Sprintf("http://127.0.0.1:%d/health", f.deps.Ctx.Ports.FileBrowser))
}
