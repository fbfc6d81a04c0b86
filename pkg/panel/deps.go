package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/quayside/chandler/pkg/backup"
	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/config"
	"github.com/quayside/chandler/pkg/deploy"
	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/health"
	"github.com/quayside/chandler/pkg/instance"
	"github.com/quayside/chandler/pkg/module"
	"github.com/quayside/chandler/pkg/reconcile"
	"github.com/quayside/chandler/pkg/render"
	"github.com/quayside/chandler/pkg/runtime"
	"github.com/quayside/chandler/pkg/storage"
	"github.com/quayside/chandler/pkg/vault"
)

// Image references for every managed service. Pinned to major versions so
// a re-install on a fresh host converges to the same stack.
const (
	ImageMariaDB     = "mariadb:11.4"
	ImageMySQL       = "mysql:8.4"
	ImageNginx       = "nginx:1.27"
	ImageFileBrowser = "filebrowser/filebrowser:v2"
	ImagePrometheus  = "prom/prometheus:v2.53.0"
	ImageGrafana     = "grafana/grafana:11.1.0"
	ImagePanel       = "quayside/panel:1"

	ImagePHP83 = "php:8.3-fpm"
	ImagePHP82 = "php:8.2-fpm"
)

// Deps bundles the provisioning core components every module composes.
// All fields are required; BuildCatalog wires them once at process start.
type Deps struct {
	Ctx        *config.Context
	Runner     command.Runner
	Runtime    *runtime.DockerRuntime
	Instances  *instance.Manager
	Gate       *health.Gate
	Selector   *deploy.Selector
	Reconciler *reconcile.Reconciler
	Vault      *vault.Vault
	Renderer   *render.Renderer
	Store      storage.Store
	Broker     *events.Broker
	Backups    *backup.Runner
}

// httpInstanceStatus is the shared status probe for modules whose service
// answers on a published HTTP endpoint
func httpInstanceStatus(ctx context.Context, deps *Deps, moduleName, instanceName, url string) (*module.Status, error) {
	status, err := deps.Instances.Status(ctx, instanceName)
	if err != nil {
		return nil, err
	}
	if !status.Running() {
		return &module.Status{
			Module: moduleName,
			Detail: fmt.Sprintf("instance %s is %s", instanceName, status.State),
		}, nil
	}

	result := health.NewHTTPChecker(url).WithTimeout(5 * time.Second).Check(ctx)
	if !result.Healthy {
		return &module.Status{Module: moduleName, Detail: result.Message}, nil
	}
	return &module.Status{Module: moduleName, Healthy: true}, nil
}
