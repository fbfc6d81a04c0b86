package health

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/types"
)

// fakeProbe scripts engine state and predicate outcomes for gate tests.
// State and exec sequences are consumed in order; the last entry repeats.
type fakeProbe struct {
	mu        sync.Mutex
	states    []*types.InstanceStatus
	statusErr error
	execs     []*command.Result
	execCount int
	logs      string
}

func (f *fakeProbe) ContainerStatus(_ context.Context, name string) (*types.InstanceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.states) == 0 {
		return &types.InstanceStatus{Name: name, State: types.ContainerStateRunning}, nil
	}
	s := f.states[0]
	if len(f.states) > 1 {
		f.states = f.states[1:]
	}
	return s, nil
}

func (f *fakeProbe) ContainerLogs(context.Context, string, int) (string, error) {
	return f.logs, nil
}

func (f *fakeProbe) Exec(context.Context, string, []string, []string) (*command.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execCount++
	if len(f.execs) == 0 {
		return &command.Result{ExitCode: 0}, nil
	}
	r := f.execs[0]
	if len(f.execs) > 1 {
		f.execs = f.execs[1:]
	}
	return r, nil
}

func (f *fakeProbe) execCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.execCount
}

func running() *types.InstanceStatus {
	return &types.InstanceStatus{Name: "quayside-db", State: types.ContainerStateRunning}
}

func execCheck(interval time.Duration, maxAttempts int) *types.HealthCheck {
	return &types.HealthCheck{
		Type:        types.HealthCheckExec,
		Command:     []string{"mysqladmin", "ping"},
		Interval:    interval,
		Timeout:     time.Second,
		MaxAttempts: maxAttempts,
	}
}

// TestGateReadyAfterRetries tests that the gate keeps polling a running
// instance until the predicate succeeds
func TestGateReadyAfterRetries(t *testing.T) {
	probe := &fakeProbe{
		execs: []*command.Result{
			{ExitCode: 1, Stderr: "connection refused"},
			{ExitCode: 1, Stderr: "connection refused"},
			{ExitCode: 0, Stdout: "mysqld is alive"},
		},
	}

	gate := NewGate(probe)
	outcome := gate.AwaitReady(context.Background(), "quayside-db", execCheck(time.Millisecond, 10))

	if !outcome.Ready {
		t.Fatalf("AwaitReady() = %+v, want Ready", outcome)
	}
	if outcome.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", outcome.Attempts)
	}
	if probe.execCalls() != 3 {
		t.Errorf("predicate evaluations = %d, want 3", probe.execCalls())
	}
}

// TestGateCrashedImmediate tests that an exited instance fails the gate
// without waiting out the budget
func TestGateCrashedImmediate(t *testing.T) {
	probe := &fakeProbe{
		states: []*types.InstanceStatus{
			{Name: "quayside-db", State: types.ContainerStateExited, ExitCode: 137},
		},
		logs: "fatal: out of memory",
	}

	gate := NewGate(probe)
	start := time.Now()
	outcome := gate.AwaitReady(context.Background(), "quayside-db", execCheck(50*time.Millisecond, 40))

	if outcome.Ready {
		t.Fatal("AwaitReady() should fail for an exited instance")
	}
	if outcome.Reason != FailCrashed {
		t.Errorf("Reason = %q, want %q", outcome.Reason, FailCrashed)
	}
	if outcome.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (no point waiting)", outcome.Attempts)
	}
	if !strings.Contains(outcome.Message, "137") {
		t.Errorf("Message = %q, want exit code included", outcome.Message)
	}
	if outcome.Logs != "fatal: out of memory" {
		t.Errorf("Logs = %q, want instance output captured", outcome.Logs)
	}
	if probe.execCalls() != 0 {
		t.Errorf("predicate evaluations = %d, want 0", probe.execCalls())
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("crashed classification took %v, want immediate", elapsed)
	}
}

// TestGateMissingInstance tests that a vanished container is a crash
func TestGateMissingInstance(t *testing.T) {
	probe := &fakeProbe{
		states: []*types.InstanceStatus{
			{Name: "quayside-db", State: types.ContainerStateMissing},
		},
	}

	gate := NewGate(probe)
	outcome := gate.AwaitReady(context.Background(), "quayside-db", execCheck(time.Millisecond, 5))

	if outcome.Reason != FailCrashed {
		t.Errorf("Reason = %q, want %q", outcome.Reason, FailCrashed)
	}
}

// TestGateRestartingSkipsPredicate tests that a restarting instance is
// polled without predicate evaluation until the budget runs out
func TestGateRestartingSkipsPredicate(t *testing.T) {
	probe := &fakeProbe{
		states: []*types.InstanceStatus{
			{Name: "quayside-db", State: types.ContainerStateRestarting},
		},
		logs: "crash loop",
	}

	gate := NewGate(probe)
	outcome := gate.AwaitReady(context.Background(), "quayside-db", execCheck(time.Millisecond, 6))

	if outcome.Reason != FailTimeout {
		t.Errorf("Reason = %q, want %q", outcome.Reason, FailTimeout)
	}
	if outcome.Attempts != 6 {
		t.Errorf("Attempts = %d, want 6", outcome.Attempts)
	}
	if probe.execCalls() != 0 {
		t.Errorf("predicate evaluations = %d, want 0 while restarting", probe.execCalls())
	}
	if outcome.Logs != "crash loop" {
		t.Errorf("Logs = %q, want captured output", outcome.Logs)
	}
}

// TestGateBoundedAttempts tests the attempt budget
func TestGateBoundedAttempts(t *testing.T) {
	probe := &fakeProbe{
		execs: []*command.Result{{ExitCode: 1}},
	}

	gate := NewGate(probe)
	outcome := gate.AwaitReady(context.Background(), "quayside-db", execCheck(time.Millisecond, 5))

	if outcome.Reason != FailTimeout {
		t.Errorf("Reason = %q, want %q", outcome.Reason, FailTimeout)
	}
	if probe.execCalls() != 5 {
		t.Errorf("predicate evaluations = %d, want exactly 5", probe.execCalls())
	}
	if outcome.Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", outcome.Attempts)
	}
}

// TestGateRunningThenCrashed tests crash detection after a not-ready cycle
func TestGateRunningThenCrashed(t *testing.T) {
	probe := &fakeProbe{
		states: []*types.InstanceStatus{
			running(),
			{Name: "quayside-db", State: types.ContainerStateExited, ExitCode: 1},
		},
		execs: []*command.Result{{ExitCode: 1}},
	}

	gate := NewGate(probe)
	outcome := gate.AwaitReady(context.Background(), "quayside-db", execCheck(time.Millisecond, 10))

	if outcome.Reason != FailCrashed {
		t.Errorf("Reason = %q, want %q", outcome.Reason, FailCrashed)
	}
	if outcome.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", outcome.Attempts)
	}
}

// TestGateCancelled tests that a cancelled context stops the gate
func TestGateCancelled(t *testing.T) {
	probe := &fakeProbe{
		execs: []*command.Result{{ExitCode: 1}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	gate := NewGate(probe)
	start := time.Now()
	outcome := gate.AwaitReady(ctx, "quayside-db", execCheck(100*time.Millisecond, 100))

	if outcome.Reason != FailCancelled {
		t.Errorf("Reason = %q, want %q", outcome.Reason, FailCancelled)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took %v, want prompt return", elapsed)
	}
}

// TestGateInvalidCheck tests classification of malformed checks
func TestGateInvalidCheck(t *testing.T) {
	gate := NewGate(&fakeProbe{})
	outcome := gate.AwaitReady(context.Background(), "quayside-db", &types.HealthCheck{
		Type: "bogus",
	})

	if outcome.Reason != FailInvalid {
		t.Errorf("Reason = %q, want %q", outcome.Reason, FailInvalid)
	}
}

// TestGateProbeErrorKeepsPolling tests that transient state-probe errors
// consume attempts instead of aborting
func TestGateProbeErrorKeepsPolling(t *testing.T) {
	probe := &fakeProbe{
		statusErr: context.DeadlineExceeded,
	}

	gate := NewGate(probe)
	outcome := gate.AwaitReady(context.Background(), "quayside-db", execCheck(time.Millisecond, 3))

	if outcome.Reason != FailTimeout {
		t.Errorf("Reason = %q, want %q", outcome.Reason, FailTimeout)
	}
	if probe.execCalls() != 0 {
		t.Errorf("predicate evaluations = %d, want 0", probe.execCalls())
	}
}
