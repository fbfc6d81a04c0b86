package instance

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/runtime"
	"github.com/quayside/chandler/pkg/types"
)

func newTestManager() (*Manager, *command.FakeRunner) {
	fake := command.NewFakeRunner()
	rt := runtime.NewDockerRuntime(fake)
	return NewManager(rt, "quayside"), fake
}

// scriptMissing makes container inspects report that no such instance exists.
func scriptMissing(fake *command.FakeRunner) {
	fake.HandleResult("docker inspect", &command.Result{
		ExitCode: 1,
		Stderr:   "Error: No such object: quayside-db",
	})
}

// scriptRunning makes container inspects report a healthy running instance.
func scriptRunning(fake *command.FakeRunner) {
	fake.HandleResult("docker inspect", &command.Result{
		Stdout: "running|0|mariadb:11.4|2024-05-01T10:00:00.000000000Z\n",
	})
}

func indexOf(lines []string, prefix string) int {
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return i
		}
	}
	return -1
}

// TestDeploySequence verifies that a fresh deploy ensures the network,
// clears the name, pulls the image, and only then runs the container.
func TestDeploySequence(t *testing.T) {
	m, fake := newTestManager()
	scriptMissing(fake)

	spec := &types.InstanceSpec{
		Name:          "quayside-db",
		Image:         "mariadb:11.4",
		RestartPolicy: types.RestartUnlessStopped,
		Env:           []string{"TZ=UTC"},
	}
	if err := m.Deploy(context.Background(), spec); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	lines := fake.CallLines()
	network := indexOf(lines, "docker network inspect quayside")
	stop := indexOf(lines, "docker stop")
	rm := indexOf(lines, "docker rm")
	pull := indexOf(lines, "docker pull mariadb:11.4")
	run := indexOf(lines, "docker run")
	for name, idx := range map[string]int{"network": network, "stop": stop, "rm": rm, "pull": pull, "run": run} {
		if idx < 0 {
			t.Fatalf("expected a %s call, got %v", name, lines)
		}
	}
	if !(network < stop && stop < rm && rm < pull && pull < run) {
		t.Errorf("calls out of order: %v", lines)
	}

	runLine := lines[run]
	for _, want := range []string{
		"--name quayside-db",
		"--restart unless-stopped",
		"--network quayside",
		"--stop-timeout 30",
		"-e TZ",
		"--label io.quayside.managed=true",
	} {
		if !strings.Contains(runLine, want) {
			t.Errorf("run command missing %q: %s", want, runLine)
		}
	}
}

// TestDeployReplacesExisting verifies that deploying over a live instance
// tears the old one down before the new container starts.
func TestDeployReplacesExisting(t *testing.T) {
	m, fake := newTestManager()
	scriptRunning(fake)

	spec := &types.InstanceSpec{Name: "quayside-db", Image: "mariadb:11.4"}
	if err := m.Deploy(context.Background(), spec); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	lines := fake.CallLines()
	stop := indexOf(lines, "docker stop -t 30 quayside-db")
	rm := indexOf(lines, "docker rm -f quayside-db")
	run := indexOf(lines, "docker run")
	if stop < 0 || rm < 0 {
		t.Fatalf("expected stop and rm calls, got %v", lines)
	}
	if !(stop < rm && rm < run) {
		t.Errorf("teardown did not precede run: %v", lines)
	}
}

// TestDeployDoesNotMutateSpec verifies that manager defaults are applied to
// the container without writing them back into the caller's spec.
func TestDeployDoesNotMutateSpec(t *testing.T) {
	m, fake := newTestManager()
	scriptMissing(fake)

	spec := &types.InstanceSpec{Name: "quayside-files", Image: "filebrowser/filebrowser:v2"}
	if err := m.Deploy(context.Background(), spec); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	if spec.Network != "" || spec.StopTimeout != 0 {
		t.Errorf("caller spec was mutated: network=%q stopTimeout=%d", spec.Network, spec.StopTimeout)
	}
	runs := fake.CallsMatching("docker run")
	if len(runs) != 1 {
		t.Fatalf("expected one run call, got %d", len(runs))
	}
	line := runs[0]
	if !strings.Contains(line, "--network quayside") {
		t.Errorf("default network not applied: %s", line)
	}
}

// TestDeployPortConflict verifies that a published port held by another
// process fails the deploy before any image is pulled.
func TestDeployPortConflict(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open test listener: %v", err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	m, fake := newTestManager()
	scriptMissing(fake)

	spec := &types.InstanceSpec{
		Name:  "quayside-proxy",
		Image: "nginx:1.27",
		Ports: []*types.PortMapping{{HostPort: port, ContainerPort: 80}},
	}
	err = m.Deploy(context.Background(), spec)
	var conflict *PortConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected PortConflictError, got %v", err)
	}
	if conflict.Port != port {
		t.Errorf("expected port %d in error, got %d", port, conflict.Port)
	}
	if calls := fake.CallsMatching("docker pull"); len(calls) != 0 {
		t.Errorf("image pulled despite port conflict")
	}
	if calls := fake.CallsMatching("docker run"); len(calls) != 0 {
		t.Errorf("container run despite port conflict")
	}
}

// TestDeployValidation verifies that specs without a name or image are
// rejected before any engine command runs.
func TestDeployValidation(t *testing.T) {
	m, fake := newTestManager()

	if err := m.Deploy(context.Background(), &types.InstanceSpec{Image: "nginx:1.27"}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := m.Deploy(context.Background(), &types.InstanceSpec{Name: "quayside-proxy"}); err == nil {
		t.Error("expected error for missing image")
	}
	if calls := fake.Calls(); len(calls) != 0 {
		t.Errorf("engine commands ran for invalid specs: %v", fake.CallLines())
	}
}

// TestRemoveAbsent verifies that removing an instance that does not exist
// succeeds without error.
func TestRemoveAbsent(t *testing.T) {
	m, fake := newTestManager()
	fake.HandleResult("docker stop", &command.Result{
		ExitCode: 1,
		Stderr:   "Error response from daemon: No such container: quayside-db",
	})
	fake.HandleResult("docker rm", &command.Result{
		ExitCode: 1,
		Stderr:   "Error response from daemon: No such container: quayside-db",
	})

	if err := m.Remove(context.Background(), "quayside-db"); err != nil {
		t.Fatalf("Remove of absent instance failed: %v", err)
	}
}

// TestStopGracePeriod verifies that Stop passes the default grace period to
// the engine.
func TestStopGracePeriod(t *testing.T) {
	m, fake := newTestManager()

	if err := m.Stop(context.Background(), "quayside-db"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	lines := fake.CallLines()
	if indexOf(lines, "docker stop -t 30 quayside-db") < 0 {
		t.Errorf("expected graceful stop, got %v", lines)
	}
}

// TestRunning verifies the running convenience check against live and
// exited instances.
func TestRunning(t *testing.T) {
	m, fake := newTestManager()
	scriptRunning(fake)
	up, err := m.Running(context.Background(), "quayside-db")
	if err != nil {
		t.Fatalf("Running failed: %v", err)
	}
	if !up {
		t.Error("expected running instance to report true")
	}

	fake.Reset()
	fake.HandleResult("docker inspect", &command.Result{
		Stdout: "exited|137|mariadb:11.4|2024-05-01T10:00:00.000000000Z\n",
	})
	up, err = m.Running(context.Background(), "quayside-db")
	if err != nil {
		t.Fatalf("Running failed: %v", err)
	}
	if up {
		t.Error("expected exited instance to report false")
	}
}
