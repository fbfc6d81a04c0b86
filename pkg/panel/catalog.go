package panel

import (
	"github.com/quayside/chandler/pkg/module"
)

// Catalog bundles every provisioned module plus the handles the CLI needs
// directly (site verbs on the proxy, the backup target on the database)
type Catalog struct {
	Registry *module.Registry

	Database    *Database
	Proxy       *Proxy
	FileBrowser *FileBrowser
	Metrics     *MetricsStack
	Runtimes    *Runtimes
	Panel       *PanelApp
}

// BuildCatalog constructs every module against the shared dependencies and
// registers them. Registration order is the tie-break for install order, so
// infrastructure modules come first.
func BuildCatalog(deps *Deps) (*Catalog, error) {
	c := &Catalog{
		Registry: module.NewRegistry(),
	}
	c.Database = NewDatabase(deps)
	c.Proxy = NewProxy(deps)
	c.FileBrowser = NewFileBrowser(deps)
	c.Metrics = NewMetricsStack(deps)
	c.Runtimes = NewRuntimes(deps)
	c.Panel = NewPanelApp(deps, c.Database, c.Proxy)

	for _, m := range []module.Module{
		c.Database,
		c.Proxy,
		c.FileBrowser,
		c.Metrics,
		c.Runtimes,
		c.Panel,
	} {
		if err := c.Registry.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}
