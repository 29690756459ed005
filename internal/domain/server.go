package domain

import "time"

// ServerType is the game-server distribution variant. It determines which
// upstream manifest the resolver queries and how the container is provisioned.
type ServerType string

const (
	TypeVanilla ServerType = "VANILLA"
	TypePaper   ServerType = "PAPER"
	TypeForge   ServerType = "FORGE"
	TypeFabric  ServerType = "FABRIC"
	TypeSpigot  ServerType = "SPIGOT"
	TypePurpur  ServerType = "PURPUR"
)

// ServerTypes lists every supported type in display order.
func ServerTypes() []ServerType {
	return []ServerType{TypeVanilla, TypePaper, TypeForge, TypeFabric, TypeSpigot, TypePurpur}
}

// ValidServerType reports whether t names a supported distribution.
func ValidServerType(t ServerType) bool {
	for _, known := range ServerTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Symbolic version tags resolved at provisioning time rather than naming an
// exact artifact.
const (
	TagLatest   = "LATEST"
	TagSnapshot = "SNAPSHOT"
)

// ServerConfig is the declared configuration of a managed server. The name is
// unique and immutable once created; it keys the container, the data
// directory and the backup catalog.
type ServerConfig struct {
	Name        string     `json:"name"`
	Type        ServerType `json:"type"`
	Version     string     `json:"version"`
	Memory      string     `json:"memory"`
	Port        int        `json:"port"`
	JVMArgs     string     `json:"jvm_args,omitempty"`
	EULA        bool       `json:"eula"`
	CreatedAt   time.Time  `json:"created_at"`
	LastStarted *time.Time `json:"last_started,omitempty"`
}

// RuntimeStatus is the live container state as reported by the driver. It is
// never persisted authoritatively; every decision re-queries the driver.
type RuntimeStatus string

const (
	StatusAbsent      RuntimeStatus = "ABSENT"
	StatusProvisioned RuntimeStatus = "PROVISIONED"
	StatusRunning     RuntimeStatus = "RUNNING"
	StatusStopped     RuntimeStatus = "STOPPED"
	StatusError       RuntimeStatus = "ERROR"
)

// ResolvedVersion is the concrete build a symbolic tag resolved to.
// Checksum is empty when the upstream does not publish one.
type ResolvedVersion struct {
	Type        ServerType `json:"type"`
	Tag         string     `json:"tag"`
	Version     string     `json:"version"`
	ArtifactURL string     `json:"artifact_url"`
	Checksum    string     `json:"checksum,omitempty"`
	ResolvedAt  time.Time  `json:"resolved_at"`
}

// BackupRecord describes one archived snapshot of a server's data directory.
// Records are immutable; they outlive the server they were taken from so a
// recreated server of the same name can be restored.
type BackupRecord struct {
	ID         string    `json:"id"`
	ServerName string    `json:"server_name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
}
