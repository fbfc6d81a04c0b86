package types

import (
	"time"
)

// InstanceSpec declares a managed service instance: a named container on the
// shared panel network. Deploying a spec is a replace, not an update: any
// existing instance with the same name is stopped and removed first.
type InstanceSpec struct {
	Name          string
	Image         string
	Network       string
	Command       []string
	Env           []string // KEY=value pairs
	Ports         []*PortMapping
	Mounts        []*VolumeMount
	Labels        map[string]string
	RestartPolicy RestartPolicy
	StopTimeout   int // Seconds to wait before force-killing (default: 10)
}

// RestartPolicy defines engine-level restart behavior for an instance
type RestartPolicy string

const (
	RestartNever         RestartPolicy = "no"
	RestartOnFailure     RestartPolicy = "on-failure"
	RestartAlways        RestartPolicy = "always"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

// PortMapping publishes a container port on the host
type PortMapping struct {
	HostPort      int
	ContainerPort int
	Protocol      string // "tcp" or "udp", defaults to tcp
}

// VolumeMount binds a host path into an instance
type VolumeMount struct {
	Source   string // Host path
	Target   string // Container path
	ReadOnly bool
}

// ContainerState is the engine-reported process state of an instance
type ContainerState string

const (
	ContainerStateCreated    ContainerState = "created"
	ContainerStateRunning    ContainerState = "running"
	ContainerStateRestarting ContainerState = "restarting"
	ContainerStatePaused     ContainerState = "paused"
	ContainerStateExited     ContainerState = "exited"
	ContainerStateDead       ContainerState = "dead"

	// ContainerStateMissing means no container with the requested name exists
	ContainerStateMissing ContainerState = "missing"
)

// InstanceStatus is a point-in-time probe of a named instance
type InstanceStatus struct {
	Name      string         `json:"name"`
	State     ContainerState `json:"state"`
	ExitCode  int            `json:"exit_code"`
	Image     string         `json:"image,omitempty"`
	StartedAt time.Time      `json:"started_at,omitempty"`
}

// Running reports whether the engine considers the instance up.
// Application-level readiness is a separate question answered by the
// health gate, not by this flag.
func (s *InstanceStatus) Running() bool {
	return s.State == ContainerStateRunning
}

// HealthCheck declares the readiness predicate for an instance and the
// budget the health gate may spend polling it
type HealthCheck struct {
	Type        HealthCheckType
	Endpoint    string   // URL for http, host:port for tcp
	Command     []string // For exec type, run inside the instance
	Env         []string // Extra KEY=value pairs for exec predicates
	Interval    time.Duration
	Timeout     time.Duration // Per predicate evaluation
	MaxAttempts int
}

// HealthCheckType defines the kind of readiness predicate
type HealthCheckType string

const (
	HealthCheckHTTP HealthCheckType = "http"
	HealthCheckTCP  HealthCheckType = "tcp"
	HealthCheckExec HealthCheckType = "exec"
)

// CredentialSet holds the named secrets of one service, loaded from or
// persisted to its owner-only credential file. Values are reused verbatim
// across runs; Generated lists the keys minted by the most recent call.
// CredentialSets are never serialized over any API surface.
type CredentialSet struct {
	Service   string
	Path      string
	Values    map[string]string
	Generated []string
}

// Get returns the value for key, or "" when the key is absent
func (c *CredentialSet) Get(key string) string {
	if c == nil || c.Values == nil {
		return ""
	}
	return c.Values[key]
}

// BackupMode selects the dump strategy for a backup target
type BackupMode string

const (
	BackupModeFull   BackupMode = "full"
	BackupModeSchema BackupMode = "schema"
	BackupModeData   BackupMode = "data"
)

// BackupRecord describes one compressed backup artifact. Records are
// persisted by the store and deleted only by the retention pruner.
type BackupRecord struct {
	ID             string     `json:"id"`
	Target         string     `json:"target"`
	Mode           BackupMode `json:"mode"`
	Path           string     `json:"path"`
	SizeBytes      int64      `json:"size_bytes"`
	Checksum       string     `json:"checksum"`
	RetentionClass string     `json:"retention_class"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Age returns how old the artifact is at the given instant
func (r *BackupRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// ModuleState tracks the provisioning state of a named module
type ModuleState string

const (
	ModuleStatePending   ModuleState = "pending"
	ModuleStateInstalled ModuleState = "installed"
	ModuleStateDegraded  ModuleState = "degraded"
	ModuleStateFailed    ModuleState = "failed"
)

// ModuleRecord is the persisted provisioning state of one module
type ModuleRecord struct {
	Name        string      `json:"name"`
	State       ModuleState `json:"state"`
	InstalledAt time.Time   `json:"installed_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	LastError   string      `json:"last_error,omitempty"`
}

// SiteRecord is one registered proxy site. The proxy module regenerates
// every site file from the full registry on each change rather than
// diffing individual files.
type SiteRecord struct {
	Domain    string    `json:"domain"`
	Upstream  string    `json:"upstream"` // host:port on the panel network
	CreatedAt time.Time `json:"created_at"`
}
