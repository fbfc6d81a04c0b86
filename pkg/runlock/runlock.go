package runlock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrHeld is wrapped when another process holds the lock
var ErrHeld = fmt.Errorf("another chandler run is in progress")

// Lock is an advisory flock(2) on a well-known file, taken by every
// state-mutating CLI verb before any component runs. It serializes whole
// orchestrator invocations; the provisioning core itself assumes a single
// caller and carries no finer-grained locking. The holder's PID is written
// into the file for diagnostics, and a PID left behind by a crashed process
// is harmless: the kernel released its flock with the process.
type Lock struct {
	path string
	file *os.File
	held bool
}

// New creates a lock at path, typically <state dir>/chandler.lock
func New(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the lock file location
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. When another live process holds
// it, the returned error wraps ErrHeld and names the holder's PID.
func (l *Lock) Acquire() error {
	if l.held {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open lock file %s: %w", l.path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder := readPID(f)
		f.Close()
		if holder > 0 {
			return fmt.Errorf("%w (pid %d)", ErrHeld, holder)
		}
		return ErrHeld
	}

	// The flock is ours; the PID in the file is purely informational.
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
		_ = f.Sync()
	}

	l.file = f
	l.held = true
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false

	// The file stays in place. Unlinking it here would let a contender
	// holding a descriptor on the old inode and a later process on a fresh
	// file each win a flock on their own inode, so two runs would proceed
	// at once. The leftover PID is overwritten by the next holder.
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return closeErr
}

// Held reports whether this process holds the lock
func (l *Lock) Held() bool {
	return l.held
}

// readPID reads the holder PID recorded in the lock file, 0 when unknown
func readPID(f *os.File) int {
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
