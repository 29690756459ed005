package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"blockdock/internal/backup"
	"blockdock/internal/config"
	"blockdock/internal/domain"
	"blockdock/internal/driver"
	"blockdock/internal/registry"
)

// fakeDriver is an in-memory container runtime with deterministic state
// transitions.
type fakeDriver struct {
	mu         sync.Mutex
	containers map[driver.Handle]domain.RuntimeStatus
	lastSpec   driver.ProvisionSpec

	failProvision bool
	ignoreStop    bool // simulates a server that never reacts to the stop signal
	exitOnStart   bool // simulates a server that crashes right after starting
	kills         int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{containers: make(map[driver.Handle]domain.RuntimeStatus)}
}

func (f *fakeDriver) Provision(_ context.Context, spec driver.ProvisionSpec) (driver.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProvision {
		return "", &domain.DriverError{Op: "provision", Err: errors.New("daemon unreachable")}
	}
	h := driver.HandleFor(spec.Name)
	f.containers[h] = domain.StatusProvisioned
	f.lastSpec = spec
	return h, nil
}

func (f *fakeDriver) Start(_ context.Context, h driver.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exitOnStart {
		f.containers[h] = domain.StatusStopped
		return nil
	}
	f.containers[h] = domain.StatusRunning
	return nil
}

func (f *fakeDriver) Stop(_ context.Context, h driver.Handle, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ignoreStop {
		f.containers[h] = domain.StatusStopped
	}
	return nil
}

func (f *fakeDriver) Kill(_ context.Context, h driver.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kills++
	f.containers[h] = domain.StatusStopped
	return nil
}

func (f *fakeDriver) Remove(_ context.Context, h driver.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, h)
	return nil
}

func (f *fakeDriver) ExecInteractive(context.Context, driver.Handle, io.Reader, io.Writer) error {
	return nil
}

func (f *fakeDriver) StreamLogs(context.Context, driver.Handle, bool) (<-chan string, error) {
	ch := make(chan string)
	close(ch)
	return ch, nil
}

func (f *fakeDriver) Status(_ context.Context, h driver.Handle) (domain.RuntimeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.containers[h]
	if !ok {
		return domain.StatusAbsent, nil
	}
	return status, nil
}

// vanish drops a container without going through Remove, simulating external
// deletion behind the orchestrator's back.
func (f *fakeDriver) vanish(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, driver.HandleFor(name))
}

type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(_ context.Context, serverType domain.ServerType, tag string) (domain.ResolvedVersion, error) {
	if f.err != nil {
		return domain.ResolvedVersion{}, f.err
	}
	return domain.ResolvedVersion{
		Type:       serverType,
		Tag:        tag,
		Version:    "1.21.1",
		ResolvedAt: time.Now().UTC(),
	}, nil
}

type fakeBackups struct {
	backups  []string
	restores []string
}

func (f *fakeBackups) Backup(_ context.Context, serverName, dataPath string) (domain.BackupRecord, error) {
	f.backups = append(f.backups, serverName+":"+dataPath)
	return domain.BackupRecord{ID: "b1", ServerName: serverName, Path: dataPath + ".tar.gz"}, nil
}

func (f *fakeBackups) Restore(_ context.Context, serverName, dataPath, archivePath string) error {
	f.restores = append(f.restores, fmt.Sprintf("%s:%s:%s", serverName, dataPath, archivePath))
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		ServersPath:         filepath.Join(base, "servers"),
		BackupsPath:         filepath.Join(base, "backups"),
		RegistryPath:        filepath.Join(base, "servers.json"),
		CatalogPath:         filepath.Join(base, "catalog.db"),
		Image:               "itzg/minecraft-server",
		StopGraceTimeout:    config.Duration(10 * time.Millisecond),
		PollInitialInterval: config.Duration(time.Millisecond),
		PollMaxInterval:     config.Duration(2 * time.Millisecond),
		PollBudget:          config.Duration(100 * time.Millisecond),
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeDriver, *fakeBackups) {
	t.Helper()
	cfg := testConfig(t)
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		t.Fatal(err)
	}
	drv := newFakeDriver()
	backups := &fakeBackups{}
	log := slog.New(slog.DiscardHandler)
	return New(reg, &fakeResolver{}, drv, backups, cfg, log), drv, backups
}

func validRequest(name string) domain.ServerConfig {
	return domain.ServerConfig{
		Name:    name,
		Type:    domain.TypePaper,
		Version: domain.TagLatest,
		Memory:  "1G",
		Port:    25565,
		EULA:    true,
	}
}

func TestLifecycle(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	ctx := context.Background()

	created, resolved, err := o.Create(ctx, validRequest("alpha"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resolved.Version != "1.21.1" {
		t.Errorf("resolved version = %q, want 1.21.1", resolved.Version)
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if status, err := o.Status(ctx, "alpha"); err != nil || status != domain.StatusProvisioned {
		t.Fatalf("Status after create = %v, %v; want PROVISIONED", status, err)
	}

	if err := o.Start(ctx, "alpha"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status, _ := o.Status(ctx, "alpha"); status != domain.StatusRunning {
		t.Fatalf("Status after start = %v, want RUNNING", status)
	}

	// Starting a running server is an invalid transition.
	if err := o.Start(ctx, "alpha"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Start while running: got %v, want ErrInvalidTransition", err)
	}

	if err := o.Stop(ctx, "alpha", 0); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if status, _ := o.Status(ctx, "alpha"); status != domain.StatusStopped {
		t.Fatalf("Status after stop = %v, want STOPPED", status)
	}

	// Stopping again is a no-op.
	if err := o.Stop(ctx, "alpha", 0); err != nil {
		t.Errorf("Stop when stopped: %v", err)
	}

	if err := o.Remove(ctx, "alpha"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := o.Status(ctx, "alpha"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Status after remove: got %v, want ErrNotFound", err)
	}
	if len(drv.containers) != 0 {
		t.Errorf("containers left behind: %v", drv.containers)
	}
}

func TestStartRecordsLastStarted(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}

	cfg, err := o.registry.Get("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LastStarted == nil {
		t.Fatal("LastStarted not recorded")
	}
	if time.Since(*cfg.LastStarted) > time.Minute {
		t.Errorf("LastStarted = %v, not recent", *cfg.LastStarted)
	}
}

func TestStartFailsWhenContainerExits(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}
	drv.exitOnStart = true

	err := o.Start(ctx, "alpha")
	if err == nil {
		t.Fatal("Start succeeded despite the container exiting")
	}
	if !strings.Contains(err.Error(), "did not reach RUNNING") {
		t.Errorf("Start error = %v, want a startup confirmation failure", err)
	}
	if status, _ := o.Status(ctx, "alpha"); status != domain.StatusStopped {
		t.Errorf("status after failed start = %v, want STOPPED", status)
	}
}

func TestStartAllAndStopAll(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta"} {
		if _, _, err := o.Create(ctx, validRequest(name)); err != nil {
			t.Fatal(err)
		}
	}
	// alpha is already running; StartAll must skip it, not trip over it.
	if err := o.Start(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}

	started, err := o.StartAll(ctx)
	if err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if diff := cmp.Diff([]string{"beta"}, started); diff != "" {
		t.Errorf("started names mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"alpha", "beta"} {
		if status, _ := o.Status(ctx, name); status != domain.StatusRunning {
			t.Errorf("%s status = %v, want RUNNING", name, status)
		}
	}

	stopped, err := o.StopAll(ctx, 0)
	if err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "beta"}, stopped); diff != "" {
		t.Errorf("stopped names mismatch (-want +got):\n%s", diff)
	}

	if again, err := o.StopAll(ctx, 0); err != nil || len(again) != 0 {
		t.Errorf("StopAll with nothing running = %v, %v; want a no-op", again, err)
	}
}

func TestStartAllSurfacesInconsistentEntry(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta"} {
		if _, _, err := o.Create(ctx, validRequest(name)); err != nil {
			t.Fatal(err)
		}
	}
	drv.vanish("alpha")

	started, err := o.StartAll(ctx)
	if !errors.Is(err, domain.ErrInconsistentState) {
		t.Errorf("StartAll error = %v, want ErrInconsistentState", err)
	}
	if diff := cmp.Diff([]string{"beta"}, started); diff != "" {
		t.Errorf("started names mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateValidation(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*domain.ServerConfig)
		wantErr error
	}{
		{"bad name", func(c *domain.ServerConfig) { c.Name = "has spaces" }, domain.ErrInvalidName},
		{"bad type", func(c *domain.ServerConfig) { c.Type = "BUKKIT" }, domain.ErrInvalidConfig},
		{"eula not accepted", func(c *domain.ServerConfig) { c.EULA = false }, domain.ErrInvalidConfig},
		{"bad memory", func(c *domain.ServerConfig) { c.Memory = "lots" }, domain.ErrInvalidConfig},
		{"port out of range", func(c *domain.ServerConfig) { c.Port = 70000 }, domain.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest("alpha")
			tt.mutate(&req)
			_, _, err := o.Create(ctx, req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create: got %v, want %v", err, tt.wantErr)
			}
			if !domain.IsUserError(err) {
				t.Errorf("Create: %v not classified as a user error", err)
			}
		})
	}
}

func TestCreateDuplicateName(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}
	_, _, err := o.Create(ctx, validRequest("alpha"))
	if !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("duplicate Create: got %v, want ErrDuplicateName", err)
	}
}

func TestCreateUnknownVersion(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	o.resolver = &fakeResolver{err: fmt.Errorf("%w: 9.99.9", domain.ErrUnknownVersion)}
	ctx := context.Background()

	req := validRequest("alpha")
	req.Version = "9.99.9"
	_, _, err := o.Create(ctx, req)
	if !errors.Is(err, domain.ErrUnknownVersion) {
		t.Fatalf("Create: got %v, want ErrUnknownVersion", err)
	}
	if _, err := o.registry.Get("alpha"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("registry entry exists after failed resolution")
	}
}

func TestCreateRollsBackOnProvisionFailure(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	drv.failProvision = true
	ctx := context.Background()

	_, _, err := o.Create(ctx, validRequest("alpha"))
	if err == nil {
		t.Fatal("Create succeeded despite provision failure")
	}
	var derr *domain.DriverError
	if !errors.As(err, &derr) {
		t.Errorf("Create: got %T, want *domain.DriverError", err)
	}

	if _, err := o.registry.Get("alpha"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("registry entry survived rollback: %v", err)
	}
	if _, err := os.Stat(o.cfg.DataPath("alpha")); !os.IsNotExist(err) {
		t.Errorf("data directory survived rollback")
	}
}

func TestCreatePassesEnvironment(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	ctx := context.Background()

	req := validRequest("alpha")
	req.JVMArgs = "-XX:+UseG1GC"
	if _, _, err := o.Create(ctx, req); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"EULA=TRUE",
		"TYPE=PAPER",
		"MEMORY=1G",
		"VERSION=1.21.1",
		"JVM_OPTS=-XX:+UseG1GC",
	}
	if diff := cmp.Diff(want, drv.lastSpec.Env); diff != "" {
		t.Errorf("environment mismatch (-want +got):\n%s", diff)
	}
	if drv.lastSpec.Image != "itzg/minecraft-server" {
		t.Errorf("image = %q", drv.lastSpec.Image)
	}
}

func TestForgeVersionSplitsIntoEnvPair(t *testing.T) {
	cfg := domain.ServerConfig{Type: domain.TypeForge, Memory: "2G"}
	rv := domain.ResolvedVersion{Version: "1.20.1-47.2.0"}

	env := buildEnv(cfg, rv)
	var gotVersion, gotForge string
	for _, e := range env {
		switch {
		case len(e) > 8 && e[:8] == "VERSION=":
			gotVersion = e[8:]
		case len(e) > 14 && e[:14] == "FORGE_VERSION=":
			gotForge = e[14:]
		}
	}
	if gotVersion != "1.20.1" || gotForge != "47.2.0" {
		t.Errorf("VERSION=%q FORGE_VERSION=%q, want 1.20.1 and 47.2.0", gotVersion, gotForge)
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}

	drv.ignoreStop = true
	if err := o.Stop(ctx, "alpha", 5*time.Millisecond); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if drv.kills != 1 {
		t.Errorf("kills = %d, want 1", drv.kills)
	}
	if status, _ := o.Status(ctx, "alpha"); status != domain.StatusStopped {
		t.Errorf("status after forced stop = %v, want STOPPED", status)
	}
}

func TestRemoveRunningRefused(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}

	err := o.Remove(ctx, "alpha")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Remove while running: got %v, want ErrInvalidTransition", err)
	}
	if _, err := o.registry.Get("alpha"); err != nil {
		t.Errorf("registry entry lost after refused remove: %v", err)
	}
}

func TestRemoveInconsistentEntry(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}
	drv.vanish("alpha")

	// Status surfaces the inconsistency.
	if _, err := o.Status(ctx, "alpha"); !errors.Is(err, domain.ErrInconsistentState) {
		t.Fatalf("Status: got %v, want ErrInconsistentState", err)
	}

	// Remove is the operator's way out: it cleans the registry entry even
	// though there is no container to remove.
	if err := o.Remove(ctx, "alpha"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := o.registry.Get("alpha"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("registry entry survived remove: %v", err)
	}
}

func TestStartInconsistentEntry(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}
	drv.vanish("alpha")

	if err := o.Start(ctx, "alpha"); !errors.Is(err, domain.ErrInconsistentState) {
		t.Fatalf("Start: got %v, want ErrInconsistentState", err)
	}
}

func TestListCreationOrderAndStatus(t *testing.T) {
	o, drv, _ := newTestOrchestrator(t)
	ctx := context.Background()

	for _, name := range []string{"gamma", "alpha", "beta"} {
		req := validRequest(name)
		if _, _, err := o.Create(ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	if err := o.Start(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	drv.vanish("beta")

	states, err := o.List(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, s := range states {
		names = append(names, s.Config.Name)
	}
	if diff := cmp.Diff([]string{"gamma", "alpha", "beta"}, names); diff != "" {
		t.Errorf("list order (-want +got):\n%s", diff)
	}

	if states[0].Status != domain.StatusProvisioned {
		t.Errorf("gamma status = %v, want PROVISIONED", states[0].Status)
	}
	if states[1].Status != domain.StatusRunning {
		t.Errorf("alpha status = %v, want RUNNING", states[1].Status)
	}
	if !states[2].Inconsistent || states[2].Status != domain.StatusAbsent {
		t.Errorf("beta = %+v, want flagged inconsistent", states[2])
	}
}

func TestBackupAndRestoreDelegate(t *testing.T) {
	o, _, backups := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}

	rec, err := o.Backup(ctx, "alpha")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if rec.ServerName != "alpha" {
		t.Errorf("record server = %q", rec.ServerName)
	}
	if len(backups.backups) != 1 {
		t.Fatalf("engine backups = %v", backups.backups)
	}

	if err := o.Restore(ctx, "alpha", "/tmp/alpha.tar.gz"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	want := "alpha:" + o.cfg.DataPath("alpha") + ":/tmp/alpha.tar.gz"
	if backups.restores[0] != want {
		t.Errorf("restore call = %q, want %q", backups.restores[0], want)
	}
}

func TestBackupUnknownServer(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	_, err := o.Backup(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Backup: got %v, want ErrNotFound", err)
	}
}

func TestConsoleRequiresRunning(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatal(err)
	}
	err := o.Console(ctx, "alpha", nil, io.Discard)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Console on stopped server: got %v, want ErrInvalidTransition", err)
	}
}

// memCatalog backs the real backup engine in the end-to-end scenario.
type memCatalog struct {
	records []domain.BackupRecord
}

func (m *memCatalog) SaveBackup(rec *domain.BackupRecord) error {
	m.records = append(m.records, *rec)
	return nil
}

func (m *memCatalog) GetBackup(id string) (*domain.BackupRecord, error) {
	for _, r := range m.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) GetBackupByPath(path string) (*domain.BackupRecord, error) {
	for _, r := range m.records {
		if r.Path == path {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) ListBackups(string) ([]domain.BackupRecord, error) {
	return m.records, nil
}

func (m *memCatalog) DeleteBackup(string) error { return nil }

// TestFullScenario walks the whole lifecycle with the real backup engine:
// create, start, stop, backup, mangle the world, restore, compare.
func TestFullScenario(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		t.Fatal(err)
	}
	drv := newFakeDriver()
	log := slog.New(slog.DiscardHandler)

	statusFn := func(ctx context.Context, name string) (domain.RuntimeStatus, error) {
		return drv.Status(ctx, driver.HandleFor(name))
	}
	engine := backup.New(cfg.BackupsPath, &memCatalog{}, statusFn, log)
	o := New(reg, &fakeResolver{}, drv, engine, cfg, log)

	ctx := context.Background()
	if _, _, err := o.Create(ctx, validRequest("alpha")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if status, err := o.Status(ctx, "alpha"); err != nil || status != domain.StatusProvisioned {
		t.Fatalf("Status = %v, %v; want PROVISIONED", status, err)
	}

	// The world the server would have written.
	dataPath := cfg.DataPath("alpha")
	worldFile := filepath.Join(dataPath, "world", "level.dat")
	if err := os.MkdirAll(filepath.Dir(worldFile), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(worldFile, []byte("original world"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := o.Start(ctx, "alpha"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Backups of a running server are refused end to end.
	if _, err := o.Backup(ctx, "alpha"); !errors.Is(err, domain.ErrServerRunning) {
		t.Fatalf("Backup while running: got %v, want ErrServerRunning", err)
	}

	if err := o.Stop(ctx, "alpha", 0); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	rec, err := o.Backup(ctx, "alpha")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if rec.Checksum == "" {
		t.Fatal("backup record has no checksum")
	}

	if err := os.WriteFile(worldFile, []byte("corrupted save"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := o.Restore(ctx, "alpha", rec.Path); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored, err := os.ReadFile(worldFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != "original world" {
		t.Errorf("restored world = %q, want the pre-backup contents", restored)
	}
}
