package domain

import (
	"errors"
	"fmt"
)

// Validation errors are rejected before any side effect occurs.
var (
	// ErrDuplicateName is returned when creating a server whose name is taken.
	ErrDuplicateName = errors.New("server already exists")

	// ErrNotFound is returned when a named server or backup does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName is returned for names outside [a-zA-Z0-9_-].
	ErrInvalidName = errors.New("invalid server name")

	// ErrInvalidConfig is returned for declared configurations that cannot
	// work, e.g. a memory limit above the host's physical memory.
	ErrInvalidConfig = errors.New("invalid server configuration")

	// ErrInvalidTransition is returned when an operation is requested in a
	// runtime state that does not allow it (e.g. remove while RUNNING).
	ErrInvalidTransition = errors.New("operation not allowed in current state")
)

// Resolution errors.
var (
	// ErrUnknownVersion is returned when an explicit version string is not
	// present in the upstream manifest. There is no fallback to LATEST.
	ErrUnknownVersion = errors.New("unknown version")

	// ErrManifestUnavailable is returned when the upstream manifest cannot be
	// fetched and no sufficiently fresh cached resolution exists.
	ErrManifestUnavailable = errors.New("version manifest unavailable")
)

// Backup and restore errors.
var (
	// ErrServerRunning is returned when a backup or restore is attempted
	// against a running server.
	ErrServerRunning = errors.New("server is running")

	// ErrCorruptBackup is returned when an archive's checksum does not match
	// the recorded one. The prior data directory is preserved.
	ErrCorruptBackup = errors.New("backup archive is corrupt")
)

// ErrInconsistentState is returned when the registry and the container
// runtime disagree, e.g. a provisioned entry whose container is absent.
// It is surfaced, never auto-healed.
var ErrInconsistentState = errors.New("registry and runtime state disagree")

// DriverError wraps a container-runtime failure, preserving the underlying
// cause and the operation that triggered it.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("container driver: %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// IsUserError reports whether err is caused by bad input or a disallowed
// state rather than an operational failure. The CLI maps user errors to a
// distinct exit code.
func IsUserError(err error) bool {
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrUnknownVersion) ||
		errors.Is(err, ErrServerRunning)
}
