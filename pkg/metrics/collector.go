package metrics

import (
	"context"
	"time"

	"github.com/quayside/chandler/pkg/types"
)

// StateSource provides the persisted records the collector turns into gauges.
// Satisfied by the storage layer.
type StateSource interface {
	ListModules() ([]*types.ModuleRecord, error)
	ListBackups() ([]*types.BackupRecord, error)
}

// InstanceSource provides live instance state. Satisfied by the instance
// manager.
type InstanceSource interface {
	List(ctx context.Context) ([]string, error)
	Status(ctx context.Context, name string) (*types.InstanceStatus, error)
}

// Collector periodically refreshes the state gauges from storage and the
// container runtime
type Collector struct {
	store     StateSource
	instances InstanceSource
	stopCh    chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store StateSource, instances InstanceSource) *Collector {
	return &Collector{
		store:     store,
		instances: instances,
		stopCh:    make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectModuleMetrics()
	c.collectInstanceMetrics()
	c.collectBackupMetrics()
}

func (c *Collector) collectModuleMetrics() {
	modules, err := c.store.ListModules()
	if err != nil {
		return
	}

	counts := make(map[types.ModuleState]int)
	for _, m := range modules {
		counts[m.State]++
	}
	for state, count := range counts {
		ModulesTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}

func (c *Collector) collectInstanceMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	names, err := c.instances.List(ctx)
	if err != nil {
		return
	}

	counts := make(map[types.ContainerState]int)
	for _, name := range names {
		status, err := c.instances.Status(ctx, name)
		if err != nil {
			continue
		}
		counts[status.State]++
	}
	for state, count := range counts {
		InstancesTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}

func (c *Collector) collectBackupMetrics() {
	backups, err := c.store.ListBackups()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	latest := make(map[string]*types.BackupRecord)
	for _, b := range backups {
		counts[b.Target]++
		if cur, ok := latest[b.Target]; !ok || b.CreatedAt.After(cur.CreatedAt) {
			latest[b.Target] = b
		}
	}
	for target, count := range counts {
		BackupArtifacts.WithLabelValues(target).Set(float64(count))
	}
	for target, record := range latest {
		BackupSizeBytes.WithLabelValues(target).Set(float64(record.SizeBytes))
	}
}
