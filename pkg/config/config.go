package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the panel configuration
const DefaultPath = "/etc/chandler/chandler.yaml"

// Context is the immutable provisioning context handed to every component.
// It is built once at process start from the config file plus defaults and
// never mutated afterwards; there is no process-wide mutable state.
type Context struct {
	// DataRoot is the directory all stateful services live under
	DataRoot string `yaml:"data_root" validate:"required"`

	// Network is the shared container network every instance joins
	Network string `yaml:"network" validate:"required,hostname_rfc1123"`

	// InstancePrefix prefixes every managed container name
	InstancePrefix string `yaml:"instance_prefix" validate:"required,hostname_rfc1123"`

	// Domain is the hostname the panel's proxy site answers on
	Domain string `yaml:"domain" validate:"required,fqdn|hostname_rfc1123"`

	Log     Log     `yaml:"log"`
	Ports   Ports   `yaml:"ports"`
	Backup  Backup  `yaml:"backup"`
	Agent   Agent   `yaml:"agent"`
	Timeout Timeout `yaml:"timeout"`
}

// Log configures the structured logger
type Log struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Ports are the host-published ports of the panel services
type Ports struct {
	HTTP        int `yaml:"http" validate:"min=1,max=65535"`
	HTTPS       int `yaml:"https" validate:"min=1,max=65535"`
	Panel       int `yaml:"panel" validate:"min=1,max=65535"`
	FileBrowser int `yaml:"filebrowser" validate:"min=1,max=65535"`
	Prometheus  int `yaml:"prometheus" validate:"min=1,max=65535"`
	Grafana     int `yaml:"grafana" validate:"min=1,max=65535"`
}

// Backup tunes the dump cadence and the retention window
type Backup struct {
	FullInterval    time.Duration `yaml:"-" validate:"min=1h"`
	PartialInterval time.Duration `yaml:"-" validate:"min=10m"`
	Retention       time.Duration `yaml:"-" validate:"min=24h"`
}

// UnmarshalYAML decodes the durations from their string form ("24h", "30m").
// Fields absent from the file keep whatever the struct already holds, so
// defaults survive partial config files.
func (b *Backup) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		FullInterval    string `yaml:"full_interval"`
		PartialInterval string `yaml:"partial_interval"`
		Retention       string `yaml:"retention"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for _, d := range []struct {
		value string
		dst   *time.Duration
	}{
		{raw.FullInterval, &b.FullInterval},
		{raw.PartialInterval, &b.PartialInterval},
		{raw.Retention, &b.Retention},
	} {
		if err := setDuration(d.value, d.dst); err != nil {
			return err
		}
	}
	return nil
}

// Agent configures the long-running agent mode
type Agent struct {
	// Listen is the status API address; loopback by default since the API
	// is unauthenticated
	Listen string `yaml:"listen" validate:"hostname_port"`
}

// Timeout bounds a whole provisioning run
type Timeout struct {
	Install time.Duration `yaml:"-" validate:"min=1m"`
}

// UnmarshalYAML decodes the install timeout from its string form
func (t *Timeout) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Install string `yaml:"install"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return setDuration(raw.Install, &t.Install)
}

// setDuration parses value into dst, leaving dst alone when value is empty
func setDuration(value string, dst *time.Duration) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value, err)
	}
	*dst = d
	return nil
}

// Default returns the context used when no config file exists
func Default() *Context {
	return &Context{
		DataRoot:       "/srv/quayside",
		Network:        "quayside",
		InstancePrefix: "quayside",
		Domain:         "panel.local",
		Log:            Log{Level: "info"},
		Ports: Ports{
			HTTP:        80,
			HTTPS:       443,
			Panel:       8443,
			FileBrowser: 8088,
			Prometheus:  9090,
			Grafana:     3000,
		},
		Backup: Backup{
			FullInterval:    24 * time.Hour,
			PartialInterval: 6 * time.Hour,
			Retention:       7 * 24 * time.Hour,
		},
		Agent:   Agent{Listen: "127.0.0.1:8787"},
		Timeout: Timeout{Install: 30 * time.Minute},
	}
}

// Load reads the context from path, falling back to defaults for anything
// the file does not set. A missing file yields the pure defaults; a file
// that exists but does not parse or validate is an error, never a silent
// fallback.
func Load(path string) (*Context, error) {
	ctx := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ctx, ctx.Validate()
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return ctx, nil
}

// Validate checks the context against its struct constraints
func (c *Context) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// StateDir is where the bolt store and run lock live
func (c *Context) StateDir() string {
	return filepath.Join(c.DataRoot, "state")
}

// SecretsDir holds the per-service credential files
func (c *Context) SecretsDir() string {
	return filepath.Join(c.DataRoot, "secrets")
}

// BackupDir holds the compressed backup artifacts
func (c *Context) BackupDir() string {
	return filepath.Join(c.DataRoot, "backups")
}

// ConfigDir holds rendered live configuration, one subdirectory per service
func (c *Context) ConfigDir() string {
	return filepath.Join(c.DataRoot, "config")
}

// ServiceDataDir is a service's data directory under the data root
func (c *Context) ServiceDataDir(service string) string {
	return filepath.Join(c.DataRoot, service, "data")
}

// InstanceName is the container name for a panel service
func (c *Context) InstanceName(service string) string {
	return c.InstancePrefix + "-" + service
}
