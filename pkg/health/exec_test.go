package health

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quayside/chandler/pkg/command"
)

// fakeExecer records one exec call and returns a scripted result
type fakeExecer struct {
	instance string
	argv     []string
	env      []string
	result   *command.Result
	err      error
}

func (f *fakeExecer) Exec(_ context.Context, name string, argv []string, env []string) (*command.Result, error) {
	f.instance = name
	f.argv = argv
	f.env = env
	return f.result, f.err
}

// TestExecCheckerHealthy tests the success path
func TestExecCheckerHealthy(t *testing.T) {
	execer := &fakeExecer{result: &command.Result{ExitCode: 0, Stdout: "mysqld is alive"}}
	checker := NewExecChecker(execer, "quayside-db", []string{"mysqladmin", "ping"})

	result := checker.Check(context.Background())
	if !result.Healthy {
		t.Fatalf("Check() unhealthy: %s", result.Message)
	}
	if !strings.Contains(result.Message, "alive") {
		t.Errorf("Message = %q, want predicate output", result.Message)
	}
	if execer.instance != "quayside-db" {
		t.Errorf("exec instance = %q, want quayside-db", execer.instance)
	}
}

// TestExecCheckerNonZeroExit tests predicate failure classification
func TestExecCheckerNonZeroExit(t *testing.T) {
	execer := &fakeExecer{result: &command.Result{ExitCode: 1, Stderr: "connection refused"}}
	checker := NewExecChecker(execer, "quayside-db", []string{"mysqladmin", "ping"})

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Fatal("Check() should be unhealthy on non-zero exit")
	}
	if !strings.Contains(result.Message, "exit code 1") {
		t.Errorf("Message = %q, want exit code", result.Message)
	}
	if !strings.Contains(result.Message, "connection refused") {
		t.Errorf("Message = %q, want stderr included", result.Message)
	}
}

// TestExecCheckerTimedOut tests timeout classification
func TestExecCheckerTimedOut(t *testing.T) {
	execer := &fakeExecer{result: &command.Result{ExitCode: -1, TimedOut: true}}
	checker := NewExecChecker(execer, "quayside-db", []string{"mysqladmin", "ping"})

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Fatal("Check() should be unhealthy on timeout")
	}
	if !strings.Contains(result.Message, "timed out") {
		t.Errorf("Message = %q, want timeout mention", result.Message)
	}
}

// TestExecCheckerExecError tests runtime failure classification
func TestExecCheckerExecError(t *testing.T) {
	execer := &fakeExecer{err: errors.New("daemon unreachable")}
	checker := NewExecChecker(execer, "quayside-db", []string{"mysqladmin", "ping"})

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Fatal("Check() should be unhealthy on exec error")
	}
	if !strings.Contains(result.Message, "exec failed") {
		t.Errorf("Message = %q, want exec failure mention", result.Message)
	}
}

// TestExecCheckerNoCommand tests the malformed-check guard
func TestExecCheckerNoCommand(t *testing.T) {
	checker := NewExecChecker(&fakeExecer{}, "quayside-db", nil)

	result := checker.Check(context.Background())
	if result.Healthy {
		t.Fatal("Check() should be unhealthy without a command")
	}
}

// TestExecCheckerEnvForwarded tests that WithEnv reaches the exec
func TestExecCheckerEnvForwarded(t *testing.T) {
	execer := &fakeExecer{result: &command.Result{ExitCode: 0}}
	checker := NewExecChecker(execer, "quayside-db", []string{"mysqladmin", "ping"}).
		WithEnv("MYSQL_PWD=secret")

	checker.Check(context.Background())
	if len(execer.env) != 1 || execer.env[0] != "MYSQL_PWD=secret" {
		t.Errorf("exec env = %v, want MYSQL_PWD forwarded", execer.env)
	}
}

// TestExecCheckerType tests the check type
func TestExecCheckerType(t *testing.T) {
	checker := NewExecChecker(&fakeExecer{}, "quayside-db", []string{"true"})
	if checker.Type() != CheckTypeExec {
		t.Errorf("Type() = %q, want %q", checker.Type(), CheckTypeExec)
	}
}
