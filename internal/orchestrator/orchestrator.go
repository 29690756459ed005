// Package orchestrator reconciles the declarative server registry against the
// live state of containers. It owns the per-server state machine and every
// error/retry decision; the container runtime stays behind driver.Driver.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"blockdock/internal/config"
	"blockdock/internal/domain"
	"blockdock/internal/driver"
	"blockdock/internal/registry"
)

// Resolver is the version-resolution capability the orchestrator needs during
// provisioning.
type Resolver interface {
	Resolve(ctx context.Context, serverType domain.ServerType, tag string) (domain.ResolvedVersion, error)
}

// BackupEngine snapshots and restores a server's data directory. The
// orchestrator serializes calls per server name so no backup can race a stop.
type BackupEngine interface {
	Backup(ctx context.Context, serverName, dataPath string) (domain.BackupRecord, error)
	Restore(ctx context.Context, serverName, dataPath, archivePath string) error
}

// ServerState is the orchestrator's view of one server, combining the
// declared config with the live runtime status.
type ServerState struct {
	Config domain.ServerConfig
	Status domain.RuntimeStatus

	// Inconsistent is set when the registry has an entry but the runtime
	// reports the container absent.
	Inconsistent bool
}

// Orchestrator composes registry, resolver, driver and backup engine.
type Orchestrator struct {
	registry *registry.Registry
	resolver Resolver
	driver   driver.Driver
	backups  BackupEngine
	cfg      *config.Config
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires an orchestrator. All collaborators are explicit handles; there is
// no ambient global state.
func New(reg *registry.Registry, res Resolver, drv driver.Driver, backups BackupEngine, cfg *config.Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		resolver: res,
		driver:   drv,
		backups:  backups,
		cfg:      cfg,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockFor serializes operations against one server name. Operations on
// different names proceed concurrently.
func (o *Orchestrator) lockFor(name string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[name]
	if !ok {
		l = &sync.Mutex{}
		o.locks[name] = l
	}
	return l
}

// Create validates the requested config, resolves its version tag, persists
// the registry entry and provisions the container. Any failure rolls the
// registry back so no partial entry survives.
func (o *Orchestrator) Create(ctx context.Context, req domain.ServerConfig) (domain.ServerConfig, domain.ResolvedVersion, error) {
	var zero domain.ServerConfig
	var zeroRV domain.ResolvedVersion

	if err := registry.ValidateName(req.Name); err != nil {
		return zero, zeroRV, err
	}
	if !domain.ValidServerType(req.Type) {
		return zero, zeroRV, fmt.Errorf("%w: unsupported server type %q", domain.ErrInvalidConfig, req.Type)
	}
	if !req.EULA {
		return zero, zeroRV, fmt.Errorf("%w: the Minecraft EULA must be accepted", domain.ErrInvalidConfig)
	}
	if req.Port <= 0 || req.Port > 65535 {
		return zero, zeroRV, fmt.Errorf("%w: port %d out of range", domain.ErrInvalidConfig, req.Port)
	}
	memBytes, err := driver.ParseMemory(req.Memory)
	if err != nil {
		return zero, zeroRV, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if vm, err := mem.VirtualMemory(); err == nil && memBytes > int64(vm.Total) {
		return zero, zeroRV, fmt.Errorf("%w: memory limit %s exceeds host memory (%d MB)",
			domain.ErrInvalidConfig, req.Memory, vm.Total>>20)
	}

	lock := o.lockFor(req.Name)
	lock.Lock()
	defer lock.Unlock()

	if _, err := o.registry.Get(req.Name); err == nil {
		return zero, zeroRV, fmt.Errorf("%w: %q", domain.ErrDuplicateName, req.Name)
	}

	resolved, err := o.resolver.Resolve(ctx, req.Type, req.Version)
	if err != nil {
		return zero, zeroRV, err
	}

	req.CreatedAt = time.Now().UTC()
	req.LastStarted = nil
	if err := o.registry.Create(req); err != nil {
		return zero, zeroRV, err
	}

	dataPath := o.cfg.DataPath(req.Name)
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		o.rollbackCreate(req.Name, "")
		return zero, zeroRV, fmt.Errorf("creating data directory: %w", err)
	}

	spec := driver.ProvisionSpec{
		Name:     req.Name,
		Image:    o.cfg.Image,
		Env:      buildEnv(req, resolved),
		Port:     req.Port,
		DataPath: dataPath,
		Memory:   req.Memory,
	}
	if _, err := o.driver.Provision(ctx, spec); err != nil {
		o.rollbackCreate(req.Name, dataPath)
		return zero, zeroRV, err
	}

	o.log.Info("server provisioned",
		"server", req.Name, "type", req.Type,
		"version", resolved.Version, "port", req.Port)
	return req, resolved, nil
}

func (o *Orchestrator) rollbackCreate(name, dataPath string) {
	if err := o.registry.Remove(name); err != nil {
		o.log.Warn("rollback: could not remove registry entry", "server", name, "error", err)
	}
	if dataPath != "" {
		if err := os.RemoveAll(dataPath); err != nil {
			o.log.Warn("rollback: could not remove data directory", "server", name, "error", err)
		}
	}
}

// buildEnv translates a ServerConfig plus its resolved version into the
// container environment the server image expects.
func buildEnv(cfg domain.ServerConfig, rv domain.ResolvedVersion) []string {
	env := []string{
		"EULA=TRUE",
		"TYPE=" + string(cfg.Type),
		"MEMORY=" + cfg.Memory,
	}

	// Forge versions resolve to an "<mc>-<forge>" pair; the image takes the
	// two halves separately.
	if cfg.Type == domain.TypeForge {
		if mc, forge, ok := strings.Cut(rv.Version, "-"); ok {
			env = append(env, "VERSION="+mc, "FORGE_VERSION="+forge)
		} else {
			env = append(env, "VERSION="+rv.Version)
		}
	} else {
		env = append(env, "VERSION="+rv.Version)
	}

	if cfg.JVMArgs != "" {
		env = append(env, "JVM_OPTS="+cfg.JVMArgs)
	}
	return env
}

// Start transitions a provisioned or stopped server to RUNNING, confirming
// health by polling the driver with bounded backoff.
func (o *Orchestrator) Start(ctx context.Context, name string) error {
	lock := o.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := o.registry.Get(name)
	if err != nil {
		return err
	}

	h := driver.HandleFor(name)
	status, err := o.liveStatus(ctx, h)
	if err != nil {
		return err
	}

	switch status {
	case domain.StatusAbsent:
		return fmt.Errorf("%w: %q is registered but its container is gone", domain.ErrInconsistentState, name)
	case domain.StatusRunning:
		return fmt.Errorf("%w: %q is already running", domain.ErrInvalidTransition, name)
	case domain.StatusError:
		return fmt.Errorf("%w: %q is in an error state, remove and recreate it", domain.ErrInvalidTransition, name)
	}

	if err := o.driver.Start(ctx, h); err != nil {
		return err
	}

	err = pollUntil(ctx,
		time.Duration(o.cfg.PollInitialInterval),
		time.Duration(o.cfg.PollMaxInterval),
		time.Duration(o.cfg.PollBudget),
		func(ctx context.Context) (bool, error) {
			st, err := o.driver.Status(ctx, h)
			if err != nil {
				return false, err
			}
			if st == domain.StatusStopped || st == domain.StatusError {
				return false, fmt.Errorf("container exited during startup")
			}
			return st == domain.StatusRunning, nil
		})
	if err != nil {
		return fmt.Errorf("server %q did not reach RUNNING: %w", name, err)
	}

	now := time.Now().UTC()
	if err := o.registry.Update(name, func(c *domain.ServerConfig) {
		c.LastStarted = &now
	}); err != nil {
		o.log.Warn("could not record start time", "server", name, "error", err)
	}

	o.log.Info("server started", "server", name, "port", cfg.Port)
	return nil
}

// Stop gracefully stops a running server, escalating to a forced kill when
// the graceful window runs out. Stopping an already stopped server is a
// no-op; a mid-save kill risks world corruption, so graceful always goes
// first.
func (o *Orchestrator) Stop(ctx context.Context, name string, grace time.Duration) error {
	lock := o.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if _, err := o.registry.Get(name); err != nil {
		return err
	}

	h := driver.HandleFor(name)
	status, err := o.liveStatus(ctx, h)
	if err != nil {
		return err
	}

	switch status {
	case domain.StatusAbsent:
		return fmt.Errorf("%w: %q is registered but its container is gone", domain.ErrInconsistentState, name)
	case domain.StatusProvisioned, domain.StatusStopped:
		return nil // already not running
	case domain.StatusError:
		return nil
	}

	if grace <= 0 {
		grace = time.Duration(o.cfg.StopGraceTimeout)
	}

	if err := o.driver.Stop(ctx, h, grace); err != nil {
		return err
	}

	stopped := func(ctx context.Context) (bool, error) {
		st, err := o.driver.Status(ctx, h)
		if err != nil {
			return false, err
		}
		return st != domain.StatusRunning, nil
	}

	err = pollUntil(ctx,
		time.Duration(o.cfg.PollInitialInterval),
		time.Duration(o.cfg.PollMaxInterval),
		grace+time.Duration(o.cfg.PollBudget),
		stopped)
	if err == nil {
		o.log.Info("server stopped", "server", name)
		return nil
	}

	// Graceful window exhausted: escalate. Non-fatal, but worth a warning
	// because the world may not have finished saving.
	o.log.Warn("graceful stop timed out, forcing termination", "server", name, "grace", grace)
	if killErr := o.driver.Kill(ctx, h); killErr != nil {
		return fmt.Errorf("forced stop of %q failed: %w", name, killErr)
	}

	err = pollUntil(ctx,
		time.Duration(o.cfg.PollInitialInterval),
		time.Duration(o.cfg.PollMaxInterval),
		time.Duration(o.cfg.PollBudget),
		stopped)
	if err != nil {
		return fmt.Errorf("server %q did not stop after forced termination: %w", name, err)
	}

	o.log.Info("server stopped (forced)", "server", name)
	return nil
}

// StartAll starts every registered server that is not already running, in
// creation order, and returns the names it started. A failure on one server
// does not stop the sweep; all failures come back joined.
func (o *Orchestrator) StartAll(ctx context.Context) ([]string, error) {
	var started []string
	var errs []error

	for _, cfg := range o.registry.List() {
		status, err := o.liveStatus(ctx, driver.HandleFor(cfg.Name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cfg.Name, err))
			continue
		}
		if status == domain.StatusRunning {
			continue
		}
		if err := o.Start(ctx, cfg.Name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cfg.Name, err))
			continue
		}
		started = append(started, cfg.Name)
	}
	return started, errors.Join(errs...)
}

// StopAll stops every running registered server and returns the names it
// stopped. Servers that are not running are skipped.
func (o *Orchestrator) StopAll(ctx context.Context, grace time.Duration) ([]string, error) {
	var stopped []string
	var errs []error

	for _, cfg := range o.registry.List() {
		status, err := o.liveStatus(ctx, driver.HandleFor(cfg.Name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cfg.Name, err))
			continue
		}
		if status != domain.StatusRunning {
			continue
		}
		if err := o.Stop(ctx, cfg.Name, grace); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cfg.Name, err))
			continue
		}
		stopped = append(stopped, cfg.Name)
	}
	return stopped, errors.Join(errs...)
}

// Remove deletes a stopped server: container resources first, then the
// registry entry, then the data directory. A running server is refused so
// data is never destroyed under a live world.
func (o *Orchestrator) Remove(ctx context.Context, name string) error {
	lock := o.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if _, err := o.registry.Get(name); err != nil {
		return err
	}

	h := driver.HandleFor(name)
	status, err := o.liveStatus(ctx, h)
	if err != nil {
		return err
	}

	switch status {
	case domain.StatusRunning:
		return fmt.Errorf("%w: %q is running, stop it before removing", domain.ErrInvalidTransition, name)
	case domain.StatusAbsent:
		// Operator-requested cleanup of an inconsistent entry: nothing to
		// remove on the runtime side, but say so.
		o.log.Warn("container already absent, removing registry entry only", "server", name)
	default:
		if err := o.driver.Remove(ctx, h); err != nil {
			return err
		}
	}

	if err := o.registry.Remove(name); err != nil {
		return err
	}

	dataPath := o.cfg.DataPath(name)
	if err := os.RemoveAll(dataPath); err != nil {
		o.log.Warn("could not remove data directory", "server", name, "path", dataPath, "error", err)
	}

	o.log.Info("server removed", "server", name)
	return nil
}

// Status returns the live runtime status for a registered server. A missing
// container for a registered entry is surfaced as ErrInconsistentState, never
// auto-healed: recreating it silently could discard version or config drift.
func (o *Orchestrator) Status(ctx context.Context, name string) (domain.RuntimeStatus, error) {
	if _, err := o.registry.Get(name); err != nil {
		return domain.StatusAbsent, err
	}

	status, err := o.liveStatus(ctx, driver.HandleFor(name))
	if err != nil {
		return domain.StatusError, err
	}
	if status == domain.StatusAbsent {
		return domain.StatusAbsent, fmt.Errorf("%w: %q is registered but its container is gone", domain.ErrInconsistentState, name)
	}
	return status, nil
}

// List returns every registered server with its live status, in creation
// order. Inconsistent entries are flagged rather than dropped.
func (o *Orchestrator) List(ctx context.Context) ([]ServerState, error) {
	configs := o.registry.List()
	states := make([]ServerState, 0, len(configs))

	for _, cfg := range configs {
		status, err := o.liveStatus(ctx, driver.HandleFor(cfg.Name))
		if err != nil {
			return nil, err
		}
		states = append(states, ServerState{
			Config:       cfg,
			Status:       status,
			Inconsistent: status == domain.StatusAbsent,
		})
	}
	return states, nil
}

// Logs streams log lines for a registered server.
func (o *Orchestrator) Logs(ctx context.Context, name string, follow bool) (<-chan string, error) {
	if _, err := o.registry.Get(name); err != nil {
		return nil, err
	}
	return o.driver.StreamLogs(ctx, driver.HandleFor(name), follow)
}

// Console attaches an interactive session to a running server.
func (o *Orchestrator) Console(ctx context.Context, name string, in io.Reader, out io.Writer) error {
	if _, err := o.registry.Get(name); err != nil {
		return err
	}

	h := driver.HandleFor(name)
	status, err := o.liveStatus(ctx, h)
	if err != nil {
		return err
	}
	if status != domain.StatusRunning {
		return fmt.Errorf("%w: %q is not running", domain.ErrInvalidTransition, name)
	}

	return o.driver.ExecInteractive(ctx, h, in, out)
}

// Backup snapshots a server's data directory. The per-name lock guarantees no
// stop or start is in flight for this server while the archive is written;
// the engine itself re-checks that the server is not running.
func (o *Orchestrator) Backup(ctx context.Context, name string) (domain.BackupRecord, error) {
	lock := o.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if _, err := o.registry.Get(name); err != nil {
		return domain.BackupRecord{}, err
	}

	return o.backups.Backup(ctx, name, o.cfg.DataPath(name))
}

// Restore replaces a server's data directory from an archive. The target may
// be a registered stopped server or a name with no registry entry at all;
// restoring onto a recreated server of the same name is a supported flow.
func (o *Orchestrator) Restore(ctx context.Context, name, archivePath string) error {
	lock := o.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	return o.backups.Restore(ctx, name, o.cfg.DataPath(name), archivePath)
}

// liveStatus queries the driver, retrying transient failures with the same
// bounded envelope used elsewhere. Status is never trusted stale.
func (o *Orchestrator) liveStatus(ctx context.Context, h driver.Handle) (domain.RuntimeStatus, error) {
	status, err := o.driver.Status(ctx, h)
	if err == nil {
		return status, nil
	}

	// One bounded retry round for flaky daemons; validation call sites treat
	// a persistent failure as operational, not as state.
	var last error = err
	pollErr := pollUntil(ctx,
		time.Duration(o.cfg.PollInitialInterval),
		time.Duration(o.cfg.PollMaxInterval),
		time.Duration(o.cfg.PollMaxInterval)*2,
		func(ctx context.Context) (bool, error) {
			status, last = o.driver.Status(ctx, h)
			return last == nil, last
		})
	if pollErr != nil {
		if errors.Is(pollErr, context.Canceled) || errors.Is(pollErr, context.DeadlineExceeded) {
			return domain.StatusError, pollErr
		}
		return domain.StatusError, last
	}
	return status, nil
}
