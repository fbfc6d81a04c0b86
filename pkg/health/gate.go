package health

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/metrics"
	"github.com/quayside/chandler/pkg/types"
)

const (
	// DefaultInterval between poll cycles
	DefaultInterval = 3 * time.Second

	// DefaultMaxAttempts bounds a gate run
	DefaultMaxAttempts = 40

	// DefaultLogEvery is the restart-loop log frequency (every Nth attempt)
	DefaultLogEvery = 5

	// DefaultLogTail is how many instance log lines a failure captures
	DefaultLogTail = 40
)

// FailReason classifies why a gate run did not reach Ready
type FailReason string

const (
	// FailCrashed: the instance process exited; waiting out the budget is pointless
	FailCrashed FailReason = "crashed"

	// FailTimeout: the attempt budget was exhausted without readiness
	FailTimeout FailReason = "timeout"

	// FailCancelled: the surrounding install run was cancelled
	FailCancelled FailReason = "cancelled"

	// FailInvalid: the health check itself is malformed
	FailInvalid FailReason = "invalid-check"
)

// Outcome is the classified result of one AwaitReady run
type Outcome struct {
	Ready    bool
	Reason   FailReason // empty when Ready
	Message  string
	Attempts int
	Elapsed  time.Duration
	Logs     string // tail of the instance's output, captured on failure
}

// Failed reports whether the gate gave up
func (o Outcome) Failed() bool {
	return !o.Ready
}

// InstanceProbe is the runtime surface the gate needs: engine state,
// diagnostic logs, and in-instance exec for predicates
type InstanceProbe interface {
	Execer
	ContainerStatus(ctx context.Context, name string) (*types.InstanceStatus, error)
	ContainerLogs(ctx context.Context, name string, tail int) (string, error)
}

// Gate polls an instance until it is verifiably ready, within a bounded
// budget. Each poll cycle classifies the engine state first:
//
//	exited/dead/missing -> Failed(crashed), immediately
//	restarting          -> keep polling, log at reduced frequency
//	running             -> evaluate the readiness predicate
//
// The distinction between "the process is up" and "the service inside it
// answers correctly" is the whole point: a database can be running for
// minutes before it accepts connections.
type Gate struct {
	probe    InstanceProbe
	logEvery int
	logTail  int
	logger   zerolog.Logger
}

// NewGate creates a gate over the given probe
func NewGate(probe InstanceProbe) *Gate {
	return &Gate{
		probe:    probe,
		logEvery: DefaultLogEvery,
		logTail:  DefaultLogTail,
		logger:   log.WithComponent("gate"),
	}
}

// WithLogEvery sets the restart-loop log frequency
func (g *Gate) WithLogEvery(n int) *Gate {
	if n > 0 {
		g.logEvery = n
	}
	return g
}

// WithLogTail sets how many log lines failures capture
func (g *Gate) WithLogTail(n int) *Gate {
	if n > 0 {
		g.logTail = n
	}
	return g
}

// AwaitReady polls the named instance until its readiness predicate
// succeeds or the budget runs out. The gate never evaluates the predicate
// more than MaxAttempts times and never blocks longer than
// MaxAttempts x Interval plus one predicate duration.
func (g *Gate) AwaitReady(ctx context.Context, name string, check *types.HealthCheck) Outcome {
	outcome := g.awaitReady(ctx, name, check)

	label := "ready"
	if outcome.Failed() {
		label = string(outcome.Reason)
	}
	metrics.ReadinessWaits.WithLabelValues(label).Observe(outcome.Elapsed.Seconds())
	metrics.ReadinessAttempts.WithLabelValues(label).Observe(float64(outcome.Attempts))
	return outcome
}

func (g *Gate) awaitReady(ctx context.Context, name string, check *types.HealthCheck) Outcome {
	start := time.Now()

	interval := check.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := check.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	checker, err := CheckerFor(check, g.probe, name)
	if err != nil {
		return Outcome{
			Reason:  FailInvalid,
			Message: err.Error(),
			Elapsed: time.Since(start),
		}
	}

	logger := g.logger.With().Str("instance", name).Logger()
	logger.Info().
		Str("check", string(check.Type)).
		Int("max_attempts", maxAttempts).
		Dur("interval", interval).
		Msg("waiting for readiness")

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return Outcome{
				Reason:   FailCancelled,
				Message:  ctx.Err().Error(),
				Attempts: attempt - 1,
				Elapsed:  time.Since(start),
			}
		}

		attemptStart := time.Now()

		status, err := g.probe.ContainerStatus(ctx, name)
		switch {
		case err != nil:
			logger.Warn().Err(err).Int("attempt", attempt).Msg("state probe failed")

		case status.State == types.ContainerStateExited,
			status.State == types.ContainerStateDead:
			message := fmt.Sprintf("instance exited with code %d", status.ExitCode)
			logger.Error().Int("attempt", attempt).Int("exit_code", status.ExitCode).Msg("instance crashed")
			return g.failed(ctx, name, FailCrashed, message, attempt, start)

		case status.State == types.ContainerStateMissing:
			logger.Error().Int("attempt", attempt).Msg("instance disappeared")
			return g.failed(ctx, name, FailCrashed, "instance no longer exists", attempt, start)

		case status.State == types.ContainerStateRestarting:
			// Reduced-frequency logging so a crash loop does not flood the log
			if (attempt-1)%g.logEvery == 0 {
				logger.Warn().Int("attempt", attempt).Msg("instance restarting, still waiting")
			}

		case status.State == types.ContainerStateRunning:
			result := checker.Check(ctx)
			if result.Healthy {
				logger.Info().
					Int("attempt", attempt).
					Dur("elapsed", time.Since(start)).
					Msg("instance ready")
				return Outcome{
					Ready:    true,
					Message:  result.Message,
					Attempts: attempt,
					Elapsed:  time.Since(start),
				}
			}
			logger.Debug().
				Int("attempt", attempt).
				Str("result", result.Message).
				Msg("running but not ready")

		default:
			logger.Debug().
				Int("attempt", attempt).
				Str("state", string(status.State)).
				Msg("instance not running yet")
		}

		if attempt < maxAttempts {
			remain := interval - time.Since(attemptStart)
			if remain > 0 {
				select {
				case <-ctx.Done():
					return Outcome{
						Reason:   FailCancelled,
						Message:  ctx.Err().Error(),
						Attempts: attempt,
						Elapsed:  time.Since(start),
					}
				case <-time.After(remain):
				}
			}
		}
	}

	message := fmt.Sprintf("not ready after %d attempts", maxAttempts)
	logger.Error().Int("attempts", maxAttempts).Dur("elapsed", time.Since(start)).Msg("readiness budget exhausted")
	return g.failed(ctx, name, FailTimeout, message, maxAttempts, start)
}

// failed builds a failure outcome, capturing the instance's recent output
// for diagnosis
func (g *Gate) failed(ctx context.Context, name string, reason FailReason, message string, attempts int, start time.Time) Outcome {
	logs, err := g.probe.ContainerLogs(ctx, name, g.logTail)
	if err != nil {
		logs = ""
	}
	return Outcome{
		Reason:   reason,
		Message:  message,
		Attempts: attempts,
		Elapsed:  time.Since(start),
		Logs:     logs,
	}
}
