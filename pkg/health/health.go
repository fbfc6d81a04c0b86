package health

import (
	"context"
	"fmt"
	"time"

	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/types"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
	CheckTypeExec CheckType = "exec"
)

// Result represents the outcome of a single readiness predicate evaluation
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all readiness predicates implement
type Checker interface {
	// Check evaluates the predicate once and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// Execer runs a command inside a named instance. Satisfied by the
// container runtime; faked in tests.
type Execer interface {
	Exec(ctx context.Context, name string, argv []string, env []string) (*command.Result, error)
}

// CheckerFor builds the Checker matching a declarative health check.
// Exec predicates run inside the named instance through the Execer.
func CheckerFor(check *types.HealthCheck, execer Execer, instance string) (Checker, error) {
	switch check.Type {
	case types.HealthCheckHTTP:
		if check.Endpoint == "" {
			return nil, fmt.Errorf("http health check for %s has no endpoint", instance)
		}
		c := NewHTTPChecker(check.Endpoint)
		if check.Timeout > 0 {
			c.WithTimeout(check.Timeout)
		}
		return c, nil

	case types.HealthCheckTCP:
		if check.Endpoint == "" {
			return nil, fmt.Errorf("tcp health check for %s has no endpoint", instance)
		}
		c := NewTCPChecker(check.Endpoint)
		if check.Timeout > 0 {
			c.WithTimeout(check.Timeout)
		}
		return c, nil

	case types.HealthCheckExec:
		if len(check.Command) == 0 {
			return nil, fmt.Errorf("exec health check for %s has no command", instance)
		}
		c := NewExecChecker(execer, instance, check.Command)
		if len(check.Env) > 0 {
			c.WithEnv(check.Env...)
		}
		if check.Timeout > 0 {
			c.WithTimeout(check.Timeout)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown health check type %q for %s", check.Type, instance)
	}
}
