package backup

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/metrics"
	"github.com/quayside/chandler/pkg/runtime"
	"github.com/quayside/chandler/pkg/storage"
	"github.com/quayside/chandler/pkg/types"
)

// Target describes one dump source: a database reachable by exec inside a
// managed instance
type Target struct {
	// Name is the logical target, used as the artifact prefix and the
	// record's target field
	Name string

	// Instance is the container the dump command runs in
	Instance string

	// User and Password authenticate the dump. The password travels via
	// MYSQL_PWD in the exec environment, never in argv.
	User     string
	Password string

	// Databases limits the dump; empty means all databases
	Databases []string

	// RetentionClass is recorded on artifacts for operators filtering
	// backup listings
	RetentionClass string
}

// Runner produces and prunes backup artifacts. It is the only code in
// chandler that deletes artifacts from disk.
type Runner struct {
	runtime *runtime.DockerRuntime
	store   storage.Store
	broker  *events.Broker
	root    string
	logger  zerolog.Logger
}

// NewRunner creates a backup runner writing artifacts under root
func NewRunner(rt *runtime.DockerRuntime, store storage.Store, broker *events.Broker, root string) *Runner {
	return &Runner{
		runtime: rt,
		store:   store,
		broker:  broker,
		root:    root,
		logger:  log.WithComponent("backup"),
	}
}

// RunBackup dumps the target with the given strategy into a compressed,
// checksummed artifact and records it in the store.
func (r *Runner) RunBackup(ctx context.Context, target *Target, mode types.BackupMode) (*types.BackupRecord, error) {
	if target.Name == "" || target.Instance == "" {
		return nil, fmt.Errorf("backup target requires a name and an instance")
	}

	timer := metrics.NewTimer()
	record, err := r.dump(ctx, target, mode)
	if err != nil {
		metrics.BackupsTotal.WithLabelValues(target.Name, string(mode), "failure").Inc()
		r.broker.Publish(events.New(events.EventBackupFailed, err.Error()).
			WithInstance(target.Instance).
			WithMeta("target", target.Name).
			WithMeta("mode", string(mode)))
		return nil, err
	}

	timer.ObserveDurationVec(metrics.BackupDuration, target.Name)
	metrics.BackupsTotal.WithLabelValues(target.Name, string(mode), "success").Inc()
	r.broker.Publish(events.New(events.EventBackupCompleted, record.Path).
		WithInstance(target.Instance).
		WithMeta("target", target.Name).
		WithMeta("mode", string(mode)).
		WithMeta("size", strconv.FormatInt(record.SizeBytes, 10)))
	r.logger.Info().
		Str("target", target.Name).
		Str("mode", string(mode)).
		Str("path", record.Path).
		Int64("size", record.SizeBytes).
		Dur("duration", timer.Duration()).
		Msg("Backup completed")
	return record, nil
}

func (r *Runner) dump(ctx context.Context, target *Target, mode types.BackupMode) (*types.BackupRecord, error) {
	dir := filepath.Join(r.root, target.Name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("%s-%s-%s.sql.gz", target.Name, mode, now.Format("20060102-150405"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact %s: %w", path, err)
	}

	// The checksum covers the compressed artifact bytes as they land on
	// disk, so a later integrity check needs nothing but the file.
	hash := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(f, hash))

	result, execErr := r.runtime.ExecStream(ctx, target.Instance,
		dumpArgs(target, mode), []string{"MYSQL_PWD=" + target.Password}, gz)

	gzErr := gz.Close()
	closeErr := f.Close()
	if execErr != nil || gzErr != nil || closeErr != nil || !result.Success() {
		os.Remove(path)
		switch {
		case execErr != nil:
			return nil, execErr
		case gzErr != nil:
			return nil, fmt.Errorf("failed to finalize artifact %s: %w", path, gzErr)
		case closeErr != nil:
			return nil, fmt.Errorf("failed to finalize artifact %s: %w", path, closeErr)
		default:
			return nil, fmt.Errorf("dump of %s failed: %s", target.Name, result.Output())
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact %s: %w", path, err)
	}

	record := &types.BackupRecord{
		ID:             uuid.New().String(),
		Target:         target.Name,
		Mode:           mode,
		Path:           path,
		SizeBytes:      info.Size(),
		Checksum:       hex.EncodeToString(hash.Sum(nil)),
		RetentionClass: target.RetentionClass,
		CreatedAt:      now,
	}
	if err := r.store.SaveBackup(record); err != nil {
		// An artifact without a record would never be pruned. Better to
		// fail the whole run than leave an unmanaged file behind.
		os.Remove(path)
		return nil, fmt.Errorf("failed to record backup: %w", err)
	}
	return record, nil
}

// PruneOlderThan deletes every artifact strictly older than window,
// together with its record. Artifacts at exactly the window age are kept.
func (r *Runner) PruneOlderThan(window time.Duration) (int, error) {
	records, err := r.store.ListBackups()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	pruned := 0
	var failures []error
	for _, record := range records {
		if record.Age(now) <= window {
			continue
		}
		if err := os.Remove(record.Path); err != nil && !os.IsNotExist(err) {
			// Keep the record so the next prune retries the file.
			failures = append(failures, fmt.Errorf("failed to remove %s: %w", record.Path, err))
			continue
		}
		if err := r.store.DeleteBackup(record.ID); err != nil {
			failures = append(failures, err)
			continue
		}
		metrics.BackupsPrunedTotal.Inc()
		pruned++
		r.logger.Info().
			Str("target", record.Target).
			Str("path", record.Path).
			Dur("age", record.Age(now)).
			Msg("Backup artifact pruned")
	}

	if pruned > 0 {
		r.broker.Publish(events.New(events.EventBackupPruned,
			fmt.Sprintf("%d artifacts pruned", pruned)))
	}
	return pruned, errors.Join(failures...)
}

// dumpArgs builds the in-container dump command for one strategy
func dumpArgs(target *Target, mode types.BackupMode) []string {
	user := target.User
	if user == "" {
		user = "root"
	}
	argv := []string{"mysqldump", "--user", user, "--single-transaction"}
	switch mode {
	case types.BackupModeSchema:
		argv = append(argv, "--no-data")
	case types.BackupModeData:
		argv = append(argv, "--no-create-info")
	}
	if len(target.Databases) == 0 {
		argv = append(argv, "--all-databases")
	} else {
		argv = append(argv, "--databases")
		argv = append(argv, target.Databases...)
	}
	return argv
}
