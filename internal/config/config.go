package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"blockdock/internal/domain"
)

const (
	defaultConfigName  = "config.json"
	defaultServersDir  = "servers"
	defaultBackupsDir  = "backups"
	defaultRegistry    = "servers.json"
	defaultCatalogFile = "catalog.db"
	defaultImage       = "itzg/minecraft-server"

	// EnvBaseDir overrides the base directory (default ~/.blockdock).
	EnvBaseDir = "BLOCKDOCK_HOME"

	// EnvLogLevel overrides the configured log level.
	EnvLogLevel = "BLOCKDOCK_LOG_LEVEL"
)

// Config holds every tunable of the daemon-less CLI: filesystem layout,
// upstream manifest endpoints per server type, resolver cache staleness and
// the orchestrator's polling envelope.
type Config struct {
	ServersPath  string `json:"servers_path"`
	BackupsPath  string `json:"backups_path"`
	RegistryPath string `json:"registry_path"`
	CatalogPath  string `json:"catalog_path"`

	Image    string `json:"image"`
	LogLevel string `json:"log_level"`

	// ManifestEndpoints maps a server type to the base URL of its upstream
	// version manifest. Missing entries fall back to the public defaults.
	ManifestEndpoints map[domain.ServerType]string `json:"manifest_endpoints,omitempty"`

	// ResolverStaleness bounds how old a cached resolution may be and still
	// serve as a fallback when the upstream manifest is unreachable.
	ResolverStaleness Duration `json:"resolver_staleness"`

	// StopGraceTimeout is how long a graceful stop waits before the
	// orchestrator escalates to a forced kill.
	StopGraceTimeout Duration `json:"stop_grace_timeout"`

	// Health-poll envelope for start/stop confirmation.
	PollInitialInterval Duration `json:"poll_initial_interval"`
	PollMaxInterval     Duration `json:"poll_max_interval"`
	PollBudget          Duration `json:"poll_budget"`
}

// Duration marshals as a Go duration string ("30s", "24h") in the JSON file.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// BaseDir returns the root directory for registry, backups and server data:
// $BLOCKDOCK_HOME if set, otherwise ~/.blockdock.
func BaseDir() (string, error) {
	if dir := os.Getenv(EnvBaseDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".blockdock"), nil
}

// Load reads the config file under baseDir, creating it with defaults on
// first run. The base directory is created if missing.
func Load(baseDir string) (*Config, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(baseDir, defaultConfigName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath, baseDir)
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := defaults(baseDir)
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}

	return cfg, nil
}

func defaults(baseDir string) *Config {
	return &Config{
		ServersPath:         filepath.Join(baseDir, defaultServersDir),
		BackupsPath:         filepath.Join(baseDir, defaultBackupsDir),
		RegistryPath:        filepath.Join(baseDir, defaultRegistry),
		CatalogPath:         filepath.Join(baseDir, defaultCatalogFile),
		Image:               defaultImage,
		LogLevel:            "info",
		ResolverStaleness:   Duration(24 * time.Hour),
		StopGraceTimeout:    Duration(30 * time.Second),
		PollInitialInterval: Duration(250 * time.Millisecond),
		PollMaxInterval:     Duration(4 * time.Second),
		PollBudget:          Duration(60 * time.Second),
	}
}

func createDefaultConfig(configPath, baseDir string) (*Config, error) {
	cfg := defaults(baseDir)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return nil, err
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}

	return cfg, nil
}

// EnsureDirs creates the servers and backups directories if missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.ServersPath, c.BackupsPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// DataPath returns the persistent data directory for a named server.
func (c *Config) DataPath(name string) string {
	return filepath.Join(c.ServersPath, name)
}
