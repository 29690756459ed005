// Package version resolves symbolic version tags ("LATEST", "SNAPSHOT") and
// explicit version strings to concrete downloadable builds, one upstream
// manifest per server type.
package version

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"blockdock/internal/domain"
)

// Cache stores successful resolutions so a later session can fall back to
// them while the upstream is unreachable. *store.Store satisfies it.
type Cache interface {
	GetResolution(serverType domain.ServerType, tag string) (*domain.ResolvedVersion, error)
	SaveResolution(rv domain.ResolvedVersion) error
}

// Resolver maps (server type, tag) pairs to concrete builds.
//
// Symbolic tags are re-resolved on every provisioning request, but at most
// once per day within a session: a same-day resolution is served from memory
// without another upstream call. When the upstream manifest cannot be
// fetched, the most recent cached resolution is used instead, provided it is
// younger than the configured staleness window.
type Resolver struct {
	sources   map[domain.ServerType]source
	cache     Cache
	staleness time.Duration
	log       *slog.Logger

	now func() time.Time

	mu      sync.Mutex
	session map[string]domain.ResolvedVersion
}

// New builds a resolver. endpoints overrides the default manifest URL per
// server type; cache may be nil, in which case there is no cross-session
// fallback.
func New(endpoints map[domain.ServerType]string, cache Cache, staleness time.Duration, log *slog.Logger) *Resolver {
	client := &http.Client{Timeout: 30 * time.Second}

	endpoint := func(t domain.ServerType, fallback string) string {
		if url, ok := endpoints[t]; ok && url != "" {
			return strings.TrimRight(url, "/")
		}
		return fallback
	}

	vanillaURL := endpoint(domain.TypeVanilla, DefaultVanillaManifestURL)

	return &Resolver{
		sources: map[domain.ServerType]source{
			domain.TypeVanilla: &vanillaSource{manifestURL: vanillaURL, client: client},
			domain.TypePaper:   &paperSource{baseURL: endpoint(domain.TypePaper, DefaultPaperAPIURL), client: client, project: "paper"},
			domain.TypePurpur:  &purpurSource{baseURL: endpoint(domain.TypePurpur, DefaultPurpurAPIURL), client: client},
			domain.TypeFabric:  &fabricSource{baseURL: endpoint(domain.TypeFabric, DefaultFabricMetaURL), client: client},
			domain.TypeForge:   &forgeSource{mavenURL: endpoint(domain.TypeForge, DefaultForgeMavenURL), client: client},
			domain.TypeSpigot: &spigotSource{
				manifestURL: vanillaURL,
				hubURL:      endpoint(domain.TypeSpigot, DefaultSpigotHubURL),
				client:      client,
			},
		},
		cache:     cache,
		staleness: staleness,
		log:       log,
		now:       time.Now,
		session:   make(map[string]domain.ResolvedVersion),
	}
}

// Resolve maps tag to a concrete build for serverType.
//
// An explicit version absent from the manifest fails with ErrUnknownVersion;
// it never falls back to LATEST. A manifest fetch failure falls back to the
// cached resolution for the same (type, tag) if fresh enough, otherwise fails
// with ErrManifestUnavailable carrying the underlying cause.
func (r *Resolver) Resolve(ctx context.Context, serverType domain.ServerType, tag string) (domain.ResolvedVersion, error) {
	if !domain.ValidServerType(serverType) {
		return domain.ResolvedVersion{}, fmt.Errorf("unsupported server type %q: %w", serverType, domain.ErrUnknownVersion)
	}
	src := r.sources[serverType]

	tag = normalizeTag(tag)
	now := r.now()
	key := sessionKey(serverType, tag, now)

	r.mu.Lock()
	if hit, ok := r.session[key]; ok {
		r.mu.Unlock()
		return hit, nil
	}
	r.mu.Unlock()

	resolved, err := src.Resolve(ctx, tag)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownVersion) {
			return domain.ResolvedVersion{}, err
		}
		return r.fallback(serverType, tag, now, err)
	}

	rv := domain.ResolvedVersion{
		Type:        serverType,
		Tag:         tag,
		Version:     resolved.Version,
		ArtifactURL: resolved.ArtifactURL,
		Checksum:    resolved.Checksum,
		ResolvedAt:  now,
	}

	r.mu.Lock()
	r.session[key] = rv
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.SaveResolution(rv); err != nil {
			r.log.Warn("could not persist resolution cache", "type", serverType, "tag", tag, "error", err)
		}
	}

	return rv, nil
}

// fallback serves the most recent cached resolution when the upstream is
// unreachable, bounded by the staleness window.
func (r *Resolver) fallback(serverType domain.ServerType, tag string, now time.Time, cause error) (domain.ResolvedVersion, error) {
	if r.cache != nil {
		cached, err := r.cache.GetResolution(serverType, tag)
		if err != nil {
			r.log.Warn("resolution cache lookup failed", "type", serverType, "tag", tag, "error", err)
		} else if cached != nil && now.Sub(cached.ResolvedAt) < r.staleness {
			r.log.Warn("manifest unreachable, using cached resolution",
				"type", serverType, "tag", tag,
				"version", cached.Version, "resolved_at", cached.ResolvedAt)
			return *cached, nil
		}
	}
	return domain.ResolvedVersion{}, fmt.Errorf("%w for %s %q: %v", domain.ErrManifestUnavailable, serverType, tag, cause)
}

// normalizeTag upper-cases the symbolic tags; explicit versions pass through.
func normalizeTag(tag string) string {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case domain.TagLatest, "":
		return domain.TagLatest
	case domain.TagSnapshot:
		return domain.TagSnapshot
	default:
		return strings.TrimSpace(tag)
	}
}

func sessionKey(serverType domain.ServerType, tag string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s", serverType, tag, now.Format("2006-01-02"))
}
