// Package driver is the capability boundary to the container runtime. The
// orchestrator only ever speaks through the Driver interface, so tests can
// substitute a deterministic fake and no orchestration policy leaks into the
// runtime binding.
package driver

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"blockdock/internal/domain"
)

// Handle identifies a provisioned container. It stays opaque to callers.
type Handle string

// HandleFor derives the container handle for a server name. Handles are
// deterministic so callers can address a container without having kept the
// handle Provision returned.
func HandleFor(serverName string) Handle {
	return Handle(containerPrefix + serverName)
}

// ProvisionSpec is everything the runtime needs to materialize a container
// for a server without starting it.
type ProvisionSpec struct {
	// Name is the server name; the driver derives the container name from it.
	Name string

	Image string
	Env   []string

	// Port is the host port bound to the game port inside the container.
	Port int

	// DataPath is the host directory mounted as the server's persistent data.
	DataPath string

	// Memory is the container memory limit, e.g. "2G".
	Memory string
}

// Driver is the narrow set of container runtime operations the orchestrator
// is allowed to use.
type Driver interface {
	// Provision creates the container without starting it.
	Provision(ctx context.Context, spec ProvisionSpec) (Handle, error)

	Start(ctx context.Context, h Handle) error

	// Stop attempts a graceful shutdown (signal, then wait up to timeout).
	// Escalation to a forced kill is the caller's decision, via Kill.
	Stop(ctx context.Context, h Handle, timeout time.Duration) error

	// Kill terminates the container immediately. Data written during a
	// world-save may be lost; only used after a graceful Stop ran out.
	Kill(ctx context.Context, h Handle) error

	Remove(ctx context.Context, h Handle) error

	// ExecInteractive attaches in to the container console and mirrors
	// container output to out until ctx is cancelled or the stream ends.
	ExecInteractive(ctx context.Context, h Handle, in io.Reader, out io.Writer) error

	// StreamLogs returns a channel of log lines. With follow the channel
	// stays open until ctx is cancelled; otherwise it closes after the
	// existing log has been delivered.
	StreamLogs(ctx context.Context, h Handle, follow bool) (<-chan string, error)

	// Status reports the live container state. A missing container is
	// StatusAbsent, not an error.
	Status(ctx context.Context, h Handle) (domain.RuntimeStatus, error)
}

// ParseMemory converts a human memory limit ("512M", "2G") to bytes.
func ParseMemory(limit string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(limit))
	if s == "" {
		return 0, fmt.Errorf("empty memory limit")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "G"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "M"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "K")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid memory limit %q", limit)
	}
	return n * multiplier, nil
}
