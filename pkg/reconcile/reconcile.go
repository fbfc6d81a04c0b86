package reconcile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/metrics"
)

// Outcome classifies what one reconciliation did
type Outcome string

const (
	// OutcomeApplied: the path did not exist and was created
	OutcomeApplied Outcome = "applied"

	// OutcomeRepaired: the path held corrupted state and was reset to clean
	OutcomeRepaired Outcome = "repaired"

	// OutcomeUnchanged: the path already matched the target
	OutcomeUnchanged Outcome = "unchanged"
)

// Target describes the desired state of one filesystem path
type Target struct {
	// Path is the directory to reconcile
	Path string

	// Mode enforced on Path; zero leaves the mode untouched
	Mode os.FileMode

	// UID and GID enforced on Path; -1 leaves ownership untouched
	UID int
	GID int

	// Marker is a subpath, relative to Path, whose presence proves the
	// directory was initialized by its owning service. Empty means the
	// directory carries no initialization semantics.
	Marker string
}

// NewTarget creates a target that enforces mode but not ownership
func NewTarget(path string, mode os.FileMode) Target {
	return Target{Path: path, Mode: mode, UID: -1, GID: -1}
}

// WithOwner sets the uid and gid to enforce
func (t Target) WithOwner(uid, gid int) Target {
	t.UID = uid
	t.GID = gid
	return t
}

// WithMarker sets the initialization marker subpath
func (t Target) WithMarker(marker string) Target {
	t.Marker = marker
	return t
}

// Reconciler idempotently converges filesystem paths to their declared
// targets. It is the only component that writes reconciliation targets;
// everything else treats them as read-only facts.
type Reconciler struct {
	broker *events.Broker
	logger zerolog.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{
		logger: log.WithComponent("reconcile"),
	}
}

// WithBroker publishes repair events to the given broker
func (r *Reconciler) WithBroker(broker *events.Broker) *Reconciler {
	r.broker = broker
	return r
}

// Ensure converges one target and classifies what it had to do. A directory
// with initialization semantics that holds content without its marker is
// corrupted: its contents are cleared so the owning service initializes
// from scratch instead of tripping over half-written state. Ownership or
// mode that cannot be enforced is an error, fatal to the enclosing module
// install.
func (r *Reconciler) Ensure(target Target) (Outcome, error) {
	timer := metrics.NewTimer()

	outcome, err := r.ensure(target)
	if err != nil {
		return outcome, err
	}

	metrics.EnsureOutcomesTotal.WithLabelValues(string(outcome)).Inc()
	timer.ObserveDuration(metrics.EnsureDuration)

	switch outcome {
	case OutcomeApplied:
		r.logger.Info().Str("path", target.Path).Str("outcome", string(outcome)).Msg("Path created")
	case OutcomeRepaired:
		if r.broker != nil {
			r.broker.Publish(events.New(events.EventResourceRepaired, target.Path).
				WithMeta("marker", target.Marker))
		}
		r.logger.Warn().Str("path", target.Path).Str("marker", target.Marker).Str("outcome", string(outcome)).Msg("Corrupted state cleared")
	default:
		r.logger.Debug().Str("path", target.Path).Str("outcome", string(outcome)).Msg("Path already consistent")
	}
	return outcome, nil
}

// Clear removes a directory's contents while keeping the directory itself.
// Clearing a path that does not exist is success. The fallback selector uses
// this to hand each alternate implementation a clean data directory.
func (r *Reconciler) Clear(path string) error {
	if err := clearDir(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to clear %s: %w", path, err)
	}
	r.logger.Warn().Str("path", path).Msg("Directory cleared")
	return nil
}

// EnsureAll converges each target in order, stopping at the first error
func (r *Reconciler) EnsureAll(targets ...Target) error {
	for _, target := range targets {
		if _, err := r.Ensure(target); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) ensure(target Target) (Outcome, error) {
	if target.Path == "" {
		return "", fmt.Errorf("reconciliation target requires a path")
	}

	info, err := os.Stat(target.Path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(target.Path, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", target.Path, err)
		}
		if err := conform(target); err != nil {
			return "", err
		}
		return OutcomeApplied, nil

	case err != nil:
		return "", fmt.Errorf("failed to stat %s: %w", target.Path, err)

	case !info.IsDir():
		return "", fmt.Errorf("%s exists but is not a directory", target.Path)
	}

	dirty, err := corrupted(target)
	if err != nil {
		return "", err
	}
	if dirty {
		if err := clearDir(target.Path); err != nil {
			return "", fmt.Errorf("failed to clear %s: %w", target.Path, err)
		}
		if err := conform(target); err != nil {
			return "", err
		}
		return OutcomeRepaired, nil
	}

	if err := conform(target); err != nil {
		return "", err
	}
	return OutcomeUnchanged, nil
}

// corrupted reports whether the directory holds content without its
// initialization marker. An empty directory is never corrupted; it is
// simply awaiting first initialization by its service.
func corrupted(target Target) (bool, error) {
	if target.Marker == "" {
		return false, nil
	}

	_, err := os.Stat(filepath.Join(target.Path, target.Marker))
	if err == nil {
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat marker in %s: %w", target.Path, err)
	}

	entries, err := os.ReadDir(target.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", target.Path, err)
	}
	return len(entries) > 0, nil
}

// conform enforces mode and ownership on the target path
func conform(target Target) error {
	if target.Mode != 0 {
		if err := os.Chmod(target.Path, target.Mode); err != nil {
			return fmt.Errorf("failed to set mode on %s: %w", target.Path, err)
		}
	}
	if target.UID >= 0 || target.GID >= 0 {
		if err := os.Chown(target.Path, target.UID, target.GID); err != nil {
			return fmt.Errorf("failed to set ownership on %s: %w", target.Path, err)
		}
	}
	return nil
}

// clearDir removes the directory's contents but keeps the directory itself,
// preserving its inode for any bind mounts referencing it
func clearDir(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(path, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
