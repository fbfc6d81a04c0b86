package module

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/metrics"
	"github.com/quayside/chandler/pkg/storage"
	"github.com/quayside/chandler/pkg/types"
)

// Result is the classified outcome of one module verb
type Result struct {
	Module   string
	Verb     Verb
	Duration time.Duration
	Err      error
}

// Failed reports whether the verb ended in an error
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Sequencer runs module verbs in dependency order and records state
// transitions. One sequencer run owns the host: the CLI takes the run lock
// before constructing it.
type Sequencer struct {
	registry *Registry
	store    storage.Store
	broker   *events.Broker
	logger   zerolog.Logger
}

// NewSequencer creates a sequencer over the registry and state store
func NewSequencer(registry *Registry, store storage.Store, broker *events.Broker) *Sequencer {
	return &Sequencer{
		registry: registry,
		store:    store,
		broker:   broker,
		logger:   log.WithComponent("sequencer"),
	}
}

// Install provisions the named modules and their transitive dependencies in
// dependency order. The walk halts at the first failure; modules already
// provisioned in this run or earlier ones are left as they are. With no
// names it installs the whole catalog.
func (s *Sequencer) Install(ctx context.Context, names ...string) ([]*Result, error) {
	modules, err := s.registry.Resolve(names...)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := s.installOne(ctx, m)
		results = append(results, result)
		if result.Failed() {
			s.logger.Error().
				Str("module", m.Name()).
				Err(result.Err).
				Msg("Install halted")
			return results, fmt.Errorf("module %s: %w", m.Name(), result.Err)
		}
	}
	return results, nil
}

func (s *Sequencer) installOne(ctx context.Context, m Module) *Result {
	name := m.Name()
	logger := s.logger.With().Str("module", name).Logger()
	logger.Info().Msg("Installing module")
	s.broker.Publish(events.New(events.EventModuleInstallStarted, "").WithModule(name))

	timer := metrics.NewTimer()
	err := m.Install(ctx)
	duration := timer.Duration()
	timer.ObserveDurationVec(metrics.ModuleInstallDuration, name)

	result := &Result{Module: name, Verb: VerbInstall, Duration: duration, Err: err}
	if err != nil {
		metrics.ModuleInstallsTotal.WithLabelValues(name, "failure").Inc()
		s.broker.Publish(events.New(events.EventModuleInstallFailed, err.Error()).WithModule(name))
		s.recordState(name, types.ModuleStateFailed, err)
		return result
	}

	metrics.ModuleInstallsTotal.WithLabelValues(name, "success").Inc()
	s.broker.Publish(events.New(events.EventModuleInstallCompleted, "").WithModule(name))
	if err := s.recordState(name, types.ModuleStateInstalled, nil); err != nil {
		result.Err = fmt.Errorf("module installed but state not recorded: %w", err)
		return result
	}
	logger.Info().Dur("duration", duration).Msg("Module installed")
	return result
}

// Repair re-converges the named modules in dependency order. Modules
// implementing Repairer run their own routine; for the rest, repair is a
// re-install.
func (s *Sequencer) Repair(ctx context.Context, names ...string) ([]*Result, error) {
	modules, err := s.registry.Resolve(names...)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		name := m.Name()
		s.logger.Info().Str("module", name).Msg("Repairing module")
		timer := metrics.NewTimer()
		var verbErr error
		if repairer, ok := m.(Repairer); ok {
			verbErr = repairer.Repair(ctx)
		} else {
			verbErr = m.Install(ctx)
		}
		result := &Result{Module: name, Verb: VerbRepair, Duration: timer.Duration(), Err: verbErr}
		results = append(results, result)

		if verbErr != nil {
			s.recordState(name, types.ModuleStateFailed, verbErr)
			return results, fmt.Errorf("module %s: %w", name, verbErr)
		}
		s.broker.Publish(events.New(events.EventModuleRepaired, "").WithModule(name))
		if err := s.recordState(name, types.ModuleStateInstalled, nil); err != nil {
			result.Err = fmt.Errorf("module repaired but state not recorded: %w", err)
			return results, result.Err
		}
	}
	return results, nil
}

// Backup dumps every requested module that has state worth dumping. Unlike
// install, a failed target does not stop the walk: each target's backup is
// independent and skipping the rest would turn one bad dump into a host
// with no backups at all.
func (s *Sequencer) Backup(ctx context.Context, names ...string) ([]*Result, error) {
	modules, err := s.registry.Resolve(names...)
	if err != nil {
		return nil, err
	}

	var results []*Result
	var failures []error
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		backuper, ok := m.(Backuper)
		if !ok {
			s.logger.Debug().Str("module", m.Name()).Msg("Module has no backup target")
			continue
		}

		timer := metrics.NewTimer()
		verbErr := backuper.Backup(ctx)
		results = append(results, &Result{
			Module:   m.Name(),
			Verb:     VerbBackup,
			Duration: timer.Duration(),
			Err:      verbErr,
		})
		if verbErr != nil {
			s.logger.Error().Str("module", m.Name()).Err(verbErr).Msg("Backup failed")
			failures = append(failures, fmt.Errorf("module %s: %w", m.Name(), verbErr))
		}
	}
	return results, errors.Join(failures...)
}

// Status reports every requested module's condition. Failures are captured
// per module rather than halting the walk, since an unhealthy module is
// exactly what status exists to show.
func (s *Sequencer) Status(ctx context.Context, names ...string) ([]*Status, error) {
	modules, err := s.registry.Resolve(names...)
	if err != nil {
		return nil, err
	}

	var statuses []*Status
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return statuses, err
		}
		status, verbErr := m.Status(ctx)
		if verbErr != nil {
			status = &Status{Module: m.Name(), Healthy: false, Detail: verbErr.Error()}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// recordState persists a module state transition. The record carries the
// install timestamp from its first success.
func (s *Sequencer) recordState(name string, state types.ModuleState, cause error) error {
	now := time.Now().UTC()
	record, err := s.store.GetModule(name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		record = &types.ModuleRecord{Name: name}
	}

	record.State = state
	record.UpdatedAt = now
	record.LastError = ""
	if cause != nil {
		record.LastError = cause.Error()
	}
	if state == types.ModuleStateInstalled && record.InstalledAt.IsZero() {
		record.InstalledAt = now
	}

	if err := s.store.SaveModule(record); err != nil {
		s.logger.Warn().Str("module", name).Err(err).Msg("Failed to record module state")
		return err
	}
	return nil
}
