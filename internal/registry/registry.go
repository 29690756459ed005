// Package registry is the single source of truth for declared server
// configurations. The whole registry is one JSON document, read wholesale and
// atomically rewritten wholesale on every mutation (write-temp-then-rename),
// so a crash mid-write never corrupts the previous valid state.
//
// Access is serialized by a process-level mutex. Cross-process safety is out
// of scope: the tool assumes a single CLI invocation at a time.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"blockdock/internal/domain"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateName rejects names that cannot safely key a container, a directory
// and a backup file.
func ValidateName(name string) error {
	if name == "" || len(name) > 50 || !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (use letters, digits, '-' and '_')", domain.ErrInvalidName, name)
	}
	return nil
}

type document struct {
	Servers []domain.ServerConfig `json:"servers"`
}

// Registry is a file-backed store of ServerConfig entries in creation order.
type Registry struct {
	mu      sync.Mutex
	path    string
	servers []domain.ServerConfig
}

// Open loads the registry document at path, or starts empty if the file does
// not exist yet.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}
	r.servers = doc.Servers
	return r, nil
}

// Create appends a new config. Fails with ErrDuplicateName if the name is
// taken and ErrInvalidName if the name is unusable; nothing is persisted on
// failure.
func (r *Registry) Create(cfg domain.ServerConfig) error {
	if err := ValidateName(cfg.Name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(cfg.Name) >= 0 {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateName, cfg.Name)
	}

	r.servers = append(r.servers, cfg)
	if err := r.persist(); err != nil {
		r.servers = r.servers[:len(r.servers)-1]
		return err
	}
	return nil
}

// Get returns the config for name.
func (r *Registry) Get(name string) (domain.ServerConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(name)
	if i < 0 {
		return domain.ServerConfig{}, fmt.Errorf("server %q: %w", name, domain.ErrNotFound)
	}
	return r.servers[i], nil
}

// List returns all configs in creation order.
func (r *Registry) List() []domain.ServerConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ServerConfig, len(r.servers))
	copy(out, r.servers)
	return out
}

// Remove deletes the entry for name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(name)
	if i < 0 {
		return fmt.Errorf("server %q: %w", name, domain.ErrNotFound)
	}

	removed := r.servers[i]
	r.servers = append(r.servers[:i], r.servers[i+1:]...)
	if err := r.persist(); err != nil {
		// Reinsert at the original position so memory matches disk.
		r.servers = append(r.servers[:i], append([]domain.ServerConfig{removed}, r.servers[i:]...)...)
		return err
	}
	return nil
}

// Update applies mutate to the named config under the registry lock and
// persists the result. The name field is immutable; mutations to it are
// rejected.
func (r *Registry) Update(name string, mutate func(*domain.ServerConfig)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(name)
	if i < 0 {
		return fmt.Errorf("server %q: %w", name, domain.ErrNotFound)
	}

	updated := r.servers[i]
	mutate(&updated)
	if updated.Name != name {
		return fmt.Errorf("%w: name is immutable", domain.ErrInvalidName)
	}

	prev := r.servers[i]
	r.servers[i] = updated
	if err := r.persist(); err != nil {
		r.servers[i] = prev
		return err
	}
	return nil
}

func (r *Registry) indexOf(name string) int {
	for i, s := range r.servers {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// persist writes the whole document to a temp file in the same directory and
// renames it over the registry path. Callers must hold r.mu.
func (r *Registry) persist() error {
	data, err := json.MarshalIndent(document{Servers: r.servers}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if writeErr != nil || syncErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if writeErr != nil {
			return writeErr
		}
		if syncErr != nil {
			return syncErr
		}
		return closeErr
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
