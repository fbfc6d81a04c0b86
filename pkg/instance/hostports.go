package instance

import (
	"fmt"
	"net"
	"strings"

	"github.com/quayside/chandler/pkg/types"
)

// PortConflictError reports a published host port that is already bound by
// another process on this host.
type PortConflictError struct {
	Port     int
	Protocol string
	Err      error
}

func (e *PortConflictError) Error() string {
	return fmt.Sprintf("host port %d/%s is already in use", e.Port, e.Protocol)
}

func (e *PortConflictError) Unwrap() error {
	return e.Err
}

// CheckHostPorts verifies that every host port published by the spec can
// currently be bound. Each port is probed with a short-lived listener; the
// probe does not reserve the port. Mappings with a zero host port are
// skipped, the engine assigns those dynamically.
func CheckHostPorts(spec *types.InstanceSpec) error {
	for _, p := range spec.Ports {
		if p == nil || p.HostPort == 0 {
			continue
		}
		if err := checkPort(p.HostPort, p.Protocol); err != nil {
			return err
		}
	}
	return nil
}

func checkPort(port int, protocol string) error {
	proto := strings.ToLower(protocol)
	if proto == "" {
		proto = "tcp"
	}
	addr := fmt.Sprintf(":%d", port)

	if proto == "udp" {
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return &PortConflictError{Port: port, Protocol: proto, Err: err}
		}
		conn.Close()
		return nil
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return &PortConflictError{Port: port, Protocol: proto, Err: err}
	}
	l.Close()
	return nil
}
