package instance

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/quayside/chandler/pkg/types"
)

// TestCheckHostPortsConflict verifies that a TCP port held by another
// listener is reported as a conflict.
func TestCheckHostPortsConflict(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open test listener: %v", err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	spec := &types.InstanceSpec{
		Name:  "quayside-proxy",
		Ports: []*types.PortMapping{{HostPort: port, ContainerPort: 80}},
	}
	err = CheckHostPorts(spec)
	var conflict *PortConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected PortConflictError, got %v", err)
	}
	if conflict.Port != port || conflict.Protocol != "tcp" {
		t.Errorf("unexpected conflict details: %+v", conflict)
	}
	if !strings.Contains(err.Error(), "already in use") {
		t.Errorf("unexpected error message: %v", err)
	}
}

// TestCheckHostPortsUDP verifies that UDP mappings are probed with a
// datagram socket.
func TestCheckHostPortsUDP(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open test socket: %v", err)
	}
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	spec := &types.InstanceSpec{
		Name:  "quayside-dns",
		Ports: []*types.PortMapping{{HostPort: port, ContainerPort: 53, Protocol: "udp"}},
	}
	err = CheckHostPorts(spec)
	var conflict *PortConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected PortConflictError, got %v", err)
	}
	if conflict.Protocol != "udp" {
		t.Errorf("expected udp conflict, got %q", conflict.Protocol)
	}
}

// TestCheckHostPortsFree verifies that a freshly released port passes the
// probe.
func TestCheckHostPortsFree(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to open test listener: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	spec := &types.InstanceSpec{
		Name:  "quayside-proxy",
		Ports: []*types.PortMapping{{HostPort: port, ContainerPort: 80}},
	}
	if err := CheckHostPorts(spec); err != nil {
		t.Errorf("expected free port to pass, got %v", err)
	}
}

// TestCheckHostPortsSkipsDynamic verifies that zero host ports are left to
// the engine and never probed.
func TestCheckHostPortsSkipsDynamic(t *testing.T) {
	spec := &types.InstanceSpec{
		Name:  "quayside-files",
		Ports: []*types.PortMapping{{HostPort: 0, ContainerPort: 8080}, nil},
	}
	if err := CheckHostPorts(spec); err != nil {
		t.Errorf("expected dynamic mapping to be skipped, got %v", err)
	}
}
