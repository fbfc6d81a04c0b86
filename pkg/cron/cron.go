package cron

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/log"
)

// DefaultPath is the managed cron.d file
const DefaultPath = "/etc/cron.d/chandler"

const header = `# Managed by chandler. Do not edit: this file is rewritten on install.
SHELL=/bin/sh
PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin

`

// Entry is one scheduled command in the managed file
type Entry struct {
	// Schedule is a five-field cron expression or an @keyword
	Schedule string

	// User runs the command, root for every chandler verb
	User string

	// Command is the full command line
	Command string
}

// Manager owns a single cron.d file. Every install rewrites the whole file
// from the entry list, so re-installing can never duplicate entries.
type Manager struct {
	path   string
	logger zerolog.Logger
}

// NewManager creates a manager for the given cron.d path
func NewManager(path string) *Manager {
	if path == "" {
		path = DefaultPath
	}
	return &Manager{
		path:   path,
		logger: log.WithComponent("cron"),
	}
}

// Path returns the managed file's location
func (m *Manager) Path() string {
	return m.path
}

// Install atomically replaces the managed file with the given entries
func (m *Manager) Install(entries []Entry) error {
	var b strings.Builder
	b.WriteString(header)
	for _, entry := range entries {
		line, err := entry.render()
		if err != nil {
			return err
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cron directory: %w", err)
	}
	if err := writeFileAtomic(m.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.path, err)
	}

	m.logger.Info().
		Str("path", m.path).
		Int("entries", len(entries)).
		Msg("Cron entries installed")
	return nil
}

// Remove deletes the managed file. A missing file is success.
func (m *Manager) Remove() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", m.path, err)
	}
	return nil
}

// render produces one cron.d line, rejecting anything that would smuggle
// extra lines into the file
func (e Entry) render() (string, error) {
	if e.Schedule == "" || e.User == "" || e.Command == "" {
		return "", fmt.Errorf("cron entry requires schedule, user, and command")
	}
	for _, field := range []string{e.Schedule, e.User, e.Command} {
		if strings.ContainsAny(field, "\n\r") {
			return "", fmt.Errorf("cron entry field contains a line break: %q", field)
		}
	}
	if !strings.HasPrefix(e.Schedule, "@") && len(strings.Fields(e.Schedule)) != 5 {
		return "", fmt.Errorf("cron schedule %q is not five fields or an @keyword", e.Schedule)
	}
	return fmt.Sprintf("%s %s %s", e.Schedule, e.User, e.Command), nil
}

// writeFileAtomic writes via a temp file and rename so cron never reads a
// half-written file
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".chandler-cron-*")
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
