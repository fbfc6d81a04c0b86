package deploy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/health"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/metrics"
	"github.com/quayside/chandler/pkg/types"
)

// Candidate is one implementation of a service instance, paired with the
// on-disk state it writes. Candidates for the same instance share a logical
// name and differ in image, environment, or both.
type Candidate struct {
	Spec *types.InstanceSpec

	// DataDirs are the directories this implementation writes. They are
	// cleared when the candidate fails, so the next implementation never
	// inherits partially written, incompatible state.
	DataDirs []string
}

// FailDeploy classifies a candidate that never reached its readiness gate
// because the deploy itself failed (pull error, port conflict). The gate's
// own reasons cover everything after a successful deploy.
const FailDeploy = health.FailReason("deploy-failed")

// ExhaustedError reports that every candidate failed. It carries the last
// candidate's failure classification and captured log tail for diagnosis.
type ExhaustedError struct {
	Name       string
	Candidates int
	LastImage  string
	Reason     health.FailReason
	Message    string
	Logs       string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d candidates for %s failed, last %s: %s",
		e.Candidates, e.Name, e.LastImage, e.Message)
}

// Result reports which candidate became ready
type Result struct {
	// Candidate is the index of the winning candidate
	Candidate int
	Image     string
	Outcome   health.Outcome
}

// InstanceController is the lifecycle surface the selector drives
type InstanceController interface {
	Deploy(ctx context.Context, spec *types.InstanceSpec) error
	Remove(ctx context.Context, name string) error
}

// ReadinessGate resolves whether a deployed instance became ready
type ReadinessGate interface {
	AwaitReady(ctx context.Context, name string, check *types.HealthCheck) health.Outcome
}

// StateCleaner clears a failed candidate's data directories
type StateCleaner interface {
	Clear(path string) error
}

// Selector deploys a service instance from an ordered candidate list,
// falling back to the next implementation when one fails its readiness
// gate. The database module is the main user: MariaDB first, stock MySQL
// if MariaDB never comes up on this host.
type Selector struct {
	instances InstanceController
	gate      ReadinessGate
	cleaner   StateCleaner
	broker    *events.Broker
	logger    zerolog.Logger
}

// NewSelector creates a selector over the given lifecycle, gate, and
// cleaner implementations
func NewSelector(instances InstanceController, gate ReadinessGate, cleaner StateCleaner, broker *events.Broker) *Selector {
	return &Selector{
		instances: instances,
		gate:      gate,
		cleaner:   cleaner,
		broker:    broker,
		logger:    log.WithComponent("deploy"),
	}
}

// DeployWithFallback tries candidates strictly in order until one becomes
// ready. A candidate that fails to deploy or fails its readiness gate is
// fully torn down (stopped, removed, data directories cleared) before the
// next candidate starts. The last candidate is left in place on failure so
// its state can be inspected; the returned ExhaustedError carries its log
// tail either way.
func (s *Selector) DeployWithFallback(ctx context.Context, candidates []*Candidate, check *types.HealthCheck) (*Result, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no deployment candidates declared")
	}
	name := candidates[0].Spec.Name

	var lastReason health.FailReason
	var lastMessage, lastImage, lastLogs string

	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger := s.logger.With().
			Str("instance", candidate.Spec.Name).
			Str("image", candidate.Spec.Image).
			Int("candidate", i+1).
			Logger()
		if i > 0 {
			logger.Warn().Msg("Falling back to alternate implementation")
			s.broker.Publish(events.New(events.EventInstanceFallback, lastMessage).
				WithInstance(candidate.Spec.Name).
				WithMeta("image", candidate.Spec.Image))
		}
		metrics.FallbackAttemptsTotal.WithLabelValues(candidate.Spec.Name).Inc()
		lastImage = candidate.Spec.Image

		if err := s.instances.Deploy(ctx, candidate.Spec); err != nil {
			logger.Error().Err(err).Msg("Candidate deploy failed")
			lastReason, lastMessage, lastLogs = FailDeploy, err.Error(), ""
			if i < len(candidates)-1 {
				s.teardown(ctx, candidate)
			}
			continue
		}
		s.broker.Publish(events.New(events.EventInstanceDeployed, candidate.Spec.Image).
			WithInstance(candidate.Spec.Name))

		outcome := s.gate.AwaitReady(ctx, candidate.Spec.Name, check)
		if outcome.Ready {
			logger.Info().
				Int("attempts", outcome.Attempts).
				Dur("elapsed", outcome.Elapsed).
				Msg("Candidate ready")
			s.broker.Publish(events.New(events.EventInstanceReady, outcome.Message).
				WithInstance(candidate.Spec.Name).
				WithMeta("image", candidate.Spec.Image))
			return &Result{Candidate: i, Image: candidate.Spec.Image, Outcome: outcome}, nil
		}
		if outcome.Reason == health.FailCancelled {
			return nil, ctx.Err()
		}

		logger.Error().
			Str("reason", string(outcome.Reason)).
			Str("message", outcome.Message).
			Msg("Candidate failed readiness")
		lastReason, lastMessage, lastLogs = outcome.Reason, outcome.Message, outcome.Logs
		if i < len(candidates)-1 {
			s.teardown(ctx, candidate)
		}
	}

	metrics.FallbackExhaustionsTotal.Inc()
	s.broker.Publish(events.New(events.EventInstanceFailed, lastMessage).
		WithInstance(name).
		WithMeta("image", lastImage))
	return nil, &ExhaustedError{
		Name:       name,
		Candidates: len(candidates),
		LastImage:  lastImage,
		Reason:     lastReason,
		Message:    lastMessage,
		Logs:       lastLogs,
	}
}

// teardown removes a failed candidate and clears the state it wrote.
// Failures here are logged, not returned: the fallback must proceed to the
// next candidate regardless.
func (s *Selector) teardown(ctx context.Context, candidate *Candidate) {
	if err := s.instances.Remove(ctx, candidate.Spec.Name); err != nil {
		s.logger.Warn().Err(err).
			Str("instance", candidate.Spec.Name).
			Msg("Teardown remove failed")
	}
	for _, dir := range candidate.DataDirs {
		if err := s.cleaner.Clear(dir); err != nil {
			s.logger.Warn().Err(err).
				Str("path", dir).
				Msg("Teardown clear failed")
		}
	}
}
