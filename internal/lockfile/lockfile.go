// Package lockfile guards an AgentForm state directory against concurrent servers.
//
// SQLite does not tolerate two writers from separate processes well, so the
// serve command takes an flock on a file in the state directory. The kernel
// drops the lock when the process exits, gracefully or not.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory
const LockFileName = "agentform.lock"

// Opts holds lock configuration.
type Opts struct {
	Owner string
	Now   func() time.Time
}

// Option configures AcquireLock.
type Option func(*Opts)

// WithOwner records a short description of the holder, e.g. "serve :8080".
func WithOwner(owner string) Option {
	return func(o *Opts) {
		o.Owner = owner
	}
}

// Lock represents an active directory lock
type Lock struct {
	file     *os.File
	path     string
	acquired bool
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// AcquireLock takes an exclusive, non-blocking lock on stateDir. When another
// process holds it, the returned *LockError describes that process.
func AcquireLock(stateDir string, opts ...Option) (*Lock, error) {
	cfg := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	lockPath := filepath.Join(stateDir, LockFileName)
	slog.Debug("AcquireLock: attempting", "lock_path", lockPath)

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("AcquireLock: failed to create state directory", "error", err, "state_dir", stateDir)
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	// O_TRUNC is deliberately absent: a losing contender must not wipe the
	// holder's description before reading it.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		slog.Error("AcquireLock: failed to open lock file", "error", err, "lock_path", lockPath)
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		info := readHolderInfo(lockPath)
		slog.Error("AcquireLock: state directory is locked by another AgentForm process",
			"error", err, "lock_path", lockPath, "holder", info)
		return nil, &LockError{
			LockPath:     lockPath,
			ExistingInfo: info,
			Cause:        err,
		}
	}

	content := formatHolderInfo(os.Getpid(), cfg.Now(), cfg.Owner)
	if err := writeHolderInfo(file, content); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		slog.Error("AcquireLock: failed to write holder information", "error", err, "lock_path", lockPath)
		return nil, fmt.Errorf("failed to write lock information to %s: %w", lockPath, err)
	}

	slog.Info("AcquireLock: state directory locked", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, acquired: true}, nil
}

func writeHolderInfo(file *os.File, content string) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.WriteAt([]byte(content), 0); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		slog.Warn("AcquireLock: failed to sync lock file", "error", err)
	}
	return nil
}

// Release drops the lock and removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if !l.acquired || l.file == nil {
		return nil
	}

	// Remove before unlocking so a waiting contender never sees our stale file.
	if err := os.Remove(l.path); err != nil {
		slog.Warn("Lock.Release: failed to remove lock file", "error", err, "lock_path", l.path)
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Lock.Release: failed to release flock", "error", err, "lock_path", l.path)
	}
	if err := l.file.Close(); err != nil {
		slog.Error("Lock.Release: failed to close lock file", "error", err, "lock_path", l.path)
	}

	l.acquired = false
	l.file = nil
	slog.Info("Lock.Release: state directory unlocked", "lock_path", l.path)
	return nil
}

// LockError reports that another process holds the state directory lock.
type LockError struct {
	LockPath     string
	ExistingInfo string
	Cause        error
}

func (e *LockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "another AgentForm server is already using this state directory (lock file %s)", e.LockPath)
	if e.ExistingInfo != "" {
		fmt.Fprintf(&b, "; holder: %s", e.ExistingInfo)
	}
	fmt.Fprintf(&b, "\nif no other server is running, remove the stale lock with: rm %s", e.LockPath)
	return b.String()
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

func formatHolderInfo(pid int, started time.Time, owner string) string {
	s := fmt.Sprintf("pid=%d\nstarted=%s\n", pid, started.UTC().Format(time.RFC3339))
	if owner != "" {
		s += "owner=" + owner + "\n"
	}
	return s
}

// holderFields parses the key=value lines written by formatHolderInfo.
func holderFields(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok && k != "" {
			fields[k] = v
		}
	}
	return fields
}

// readHolderInfo summarizes the lock file for error messages.
func readHolderInfo(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return "unable to read lock file information"
	}
	fields := holderFields(string(data))
	pid, err := strconv.Atoi(fields["pid"])
	if err != nil || pid <= 0 {
		if len(data) == 0 {
			return "lock file exists but contains no process information"
		}
		return "unrecognized lock file contents"
	}

	state := "running"
	if !isProcessRunning(pid) {
		state = "not running, stale lock"
	}
	info := fmt.Sprintf("PID %d (%s)", pid, state)
	if owner := fields["owner"]; owner != "" {
		info += ", " + owner
	}
	if started := fields["started"]; started != "" {
		info += ", started " + started
	}
	return info
}

// isProcessRunning sends signal 0, which only checks that the process exists.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
