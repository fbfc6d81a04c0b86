package vault

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/metrics"
	"github.com/quayside/chandler/pkg/types"
)

const (
	// DefaultLength of generated credential values
	DefaultLength = 24

	// FileMode for persisted credential files: owner read/write only
	FileMode = 0o600

	// charset avoids characters that need escaping in shell, SQL, or config
	// file contexts
	charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Vault generates credentials once and persists them, one key=value file
// per service. Values that already exist are always reused verbatim; only
// an explicit Rotate replaces them.
type Vault struct {
	dir    string
	length int
	broker *events.Broker
	logger zerolog.Logger
}

// NewVault creates a vault persisting under the given directory
func NewVault(dir string) *Vault {
	return &Vault{
		dir:    dir,
		length: DefaultLength,
		logger: log.WithComponent("vault"),
	}
}

// WithLength sets the length of generated values
func (v *Vault) WithLength(n int) *Vault {
	if n > 0 {
		v.length = n
	}
	return v
}

// WithBroker publishes credential lifecycle events to the given broker
func (v *Vault) WithBroker(broker *events.Broker) *Vault {
	v.broker = broker
	return v
}

// publish emits an event when a broker is attached. Key names are safe to
// publish; values never leave the credential file.
func (v *Vault) publish(eventType events.EventType, service string, keys []string) {
	if v.broker == nil {
		return
	}
	v.broker.Publish(events.New(eventType, strings.Join(keys, ", ")).
		WithMeta("service", service))
}

// Path returns the credential file location for a service
func (v *Vault) Path(service string) string {
	return filepath.Join(v.dir, service+".env")
}

// GetOrCreate loads the service's persisted credentials and generates any
// requested keys that do not exist yet. Keys already persisted keep their
// values verbatim, so services that trust them keep working across
// re-installs. When anything was generated, the union is persisted
// atomically with owner-only mode.
func (v *Vault) GetOrCreate(service string, keys []string) (*types.CredentialSet, error) {
	if service == "" {
		return nil, fmt.Errorf("credential service name is required")
	}

	path := v.Path(service)
	values, existed, err := v.load(path)
	if err != nil {
		return nil, err
	}

	var generated []string
	for _, key := range keys {
		if _, ok := values[key]; ok {
			continue
		}
		value, err := generateValue(v.length)
		if err != nil {
			return nil, err
		}
		values[key] = value
		generated = append(generated, key)
	}

	if len(generated) > 0 {
		if err := v.persist(path, values); err != nil {
			return nil, err
		}
		metrics.CredentialsGeneratedTotal.WithLabelValues(service).Add(float64(len(generated)))
		v.publish(events.EventCredentialCreated, service, generated)
		v.logger.Info().
			Str("service", service).
			Strs("keys", generated).
			Msg("Credentials generated")
	} else if existed {
		v.logger.Debug().Str("service", service).Msg("Credentials reused")
	}

	return &types.CredentialSet{
		Service:   service,
		Path:      path,
		Values:    values,
		Generated: generated,
	}, nil
}

// Rotate regenerates exactly the named keys and persists the result. Keys
// not named keep their current values. Rotation is an explicit operator
// action; provisioning never invokes it.
func (v *Vault) Rotate(service string, keys []string) (*types.CredentialSet, error) {
	if service == "" {
		return nil, fmt.Errorf("credential service name is required")
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("rotate requires at least one key")
	}

	path := v.Path(service)
	values, _, err := v.load(path)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		value, err := generateValue(v.length)
		if err != nil {
			return nil, err
		}
		values[key] = value
	}

	if err := v.persist(path, values); err != nil {
		return nil, err
	}
	metrics.CredentialsGeneratedTotal.WithLabelValues(service).Add(float64(len(keys)))
	v.publish(events.EventCredentialRotated, service, keys)
	v.logger.Warn().
		Str("service", service).
		Strs("keys", keys).
		Msg("Credentials rotated")

	return &types.CredentialSet{
		Service:   service,
		Path:      path,
		Values:    values,
		Generated: keys,
	}, nil
}

func (v *Vault) load(path string) (map[string]string, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]string), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read credentials %s: %w", path, err)
	}

	values, err := parseCredentials(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse credentials %s: %w", path, err)
	}
	return values, true, nil
}

func (v *Vault) persist(path string, values map[string]string) error {
	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create secrets directory %s: %w", v.dir, err)
	}
	if err := writeFileAtomic(path, formatCredentials(values), FileMode); err != nil {
		return fmt.Errorf("failed to persist credentials %s: %w", path, err)
	}
	return nil
}

// parseCredentials reads KEY=value lines. Blank lines and # comments are
// tolerated; anything else malformed is an error rather than a silent
// credential loss.
func parseCredentials(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed line %d", i+1)
		}
		values[key] = value
	}
	return values, nil
}

// formatCredentials renders keys sorted so repeated persists of the same
// set produce identical files
func formatCredentials(values map[string]string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(values[k])
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// generateValue draws each character independently from the charset with
// crypto/rand, avoiding modulo bias
func generateValue(length int) (string, error) {
	value := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range value {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random value: %w", err)
		}
		value[i] = charset[n.Int64()]
	}
	return string(value), nil
}

// writeFileAtomic writes via a temp file in the target's directory and
// renames it into place, so the credential file is never observable in a
// partially written state
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vault-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
