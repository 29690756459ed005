package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"blockdock/internal/domain"
)

// Public manifest endpoints, overridable through config for mirrors and tests.
const (
	DefaultVanillaManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
	DefaultPaperAPIURL        = "https://api.papermc.io"
	DefaultPurpurAPIURL       = "https://api.purpurmc.org"
	DefaultFabricMetaURL      = "https://meta.fabricmc.net"
	DefaultForgeMavenURL      = "https://maven.minecraftforge.net"
	DefaultSpigotHubURL       = "https://hub.spigotmc.org"
)

// build is what a source reports back to the resolver: the concrete version
// plus where to fetch it and, when the upstream publishes one, a checksum.
type build struct {
	Version     string
	ArtifactURL string
	Checksum    string
}

// source resolves a symbolic or explicit tag against one upstream channel.
// Implementations return domain.ErrUnknownVersion when an explicit tag is not
// in the manifest; any other failure is treated as the manifest being
// unreachable.
type source interface {
	Resolve(ctx context.Context, tag string) (build, error)
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s responded with status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- Vanilla (Mojang piston-meta) ---

type vanillaManifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"versions"`
}

type vanillaVersionDetails struct {
	Downloads struct {
		Server struct {
			URL  string `json:"url"`
			SHA1 string `json:"sha1"`
		} `json:"server"`
	} `json:"downloads"`
}

type vanillaSource struct {
	manifestURL string
	client      *http.Client
}

func (s *vanillaSource) Resolve(ctx context.Context, tag string) (build, error) {
	var manifest vanillaManifest
	if err := getJSON(ctx, s.client, s.manifestURL, &manifest); err != nil {
		return build{}, fmt.Errorf("could not get version manifest: %w", err)
	}

	target := tag
	switch tag {
	case domain.TagLatest:
		target = manifest.Latest.Release
	case domain.TagSnapshot:
		target = manifest.Latest.Snapshot
	}

	var detailsURL string
	for _, v := range manifest.Versions {
		if v.ID == target {
			detailsURL = v.URL
			break
		}
	}
	if detailsURL == "" {
		return build{}, fmt.Errorf("version %s not found in Mojang manifest: %w", target, domain.ErrUnknownVersion)
	}

	var details vanillaVersionDetails
	if err := getJSON(ctx, s.client, detailsURL, &details); err != nil {
		return build{}, fmt.Errorf("could not get version details: %w", err)
	}
	if details.Downloads.Server.URL == "" {
		return build{}, fmt.Errorf("version %s has no server download: %w", target, domain.ErrUnknownVersion)
	}

	return build{
		Version:     target,
		ArtifactURL: details.Downloads.Server.URL,
		Checksum:    "sha1:" + details.Downloads.Server.SHA1,
	}, nil
}

// --- Paper (PaperMC API) ---

type paperSource struct {
	baseURL string
	client  *http.Client
	project string
}

type paperVersionsResponse struct {
	Versions []string `json:"versions"`
}

type paperBuildsResponse struct {
	Builds []int `json:"builds"`
}

type paperBuildDetails struct {
	Downloads struct {
		Application struct {
			Name   string `json:"name"`
			SHA256 string `json:"sha256"`
		} `json:"application"`
	} `json:"downloads"`
}

func (s *paperSource) Resolve(ctx context.Context, tag string) (build, error) {
	var versionsResp paperVersionsResponse
	url := fmt.Sprintf("%s/v2/projects/%s", s.baseURL, s.project)
	if err := getJSON(ctx, s.client, url, &versionsResp); err != nil {
		return build{}, fmt.Errorf("error getting %s versions: %w", s.project, err)
	}

	target, err := pickFromList(versionsResp.Versions, tag, s.project)
	if err != nil {
		return build{}, err
	}

	var buildsResp paperBuildsResponse
	url = fmt.Sprintf("%s/v2/projects/%s/versions/%s", s.baseURL, s.project, target)
	if err := getJSON(ctx, s.client, url, &buildsResp); err != nil {
		return build{}, fmt.Errorf("error getting builds: %w", err)
	}
	if len(buildsResp.Builds) == 0 {
		return build{}, fmt.Errorf("no builds found for version %s: %w", target, domain.ErrUnknownVersion)
	}
	latestBuild := buildsResp.Builds[len(buildsResp.Builds)-1]

	var details paperBuildDetails
	url = fmt.Sprintf("%s/v2/projects/%s/versions/%s/builds/%d", s.baseURL, s.project, target, latestBuild)
	if err := getJSON(ctx, s.client, url, &details); err != nil {
		return build{}, fmt.Errorf("error getting build details: %w", err)
	}

	name := details.Downloads.Application.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s-%d.jar", s.project, target, latestBuild)
	}

	return build{
		Version: target,
		ArtifactURL: fmt.Sprintf("%s/v2/projects/%s/versions/%s/builds/%d/downloads/%s",
			s.baseURL, s.project, target, latestBuild, name),
		Checksum: "sha256:" + details.Downloads.Application.SHA256,
	}, nil
}

// pickFromList maps a tag over an ascending upstream version list. Entries
// containing '-' are pre-releases: LATEST skips them, SNAPSHOT does not.
func pickFromList(versions []string, tag, upstream string) (string, error) {
	switch tag {
	case domain.TagLatest, domain.TagSnapshot:
		candidates := make([]string, 0, len(versions))
		for _, v := range versions {
			if tag == domain.TagSnapshot || !strings.Contains(v, "-") {
				candidates = append(candidates, v)
			}
		}
		if len(candidates) == 0 {
			return "", fmt.Errorf("no versions published by %s: %w", upstream, domain.ErrUnknownVersion)
		}
		sortVersionsDescending(candidates)
		return candidates[0], nil
	default:
		for _, v := range versions {
			if v == tag {
				return tag, nil
			}
		}
		return "", fmt.Errorf("version %s not found in %s: %w", tag, upstream, domain.ErrUnknownVersion)
	}
}

// --- Purpur ---

type purpurSource struct {
	baseURL string
	client  *http.Client
}

type purpurVersionsResponse struct {
	Versions []string `json:"versions"`
}

type purpurBuildResponse struct {
	Build string `json:"build"`
	MD5   string `json:"md5"`
}

func (s *purpurSource) Resolve(ctx context.Context, tag string) (build, error) {
	var versionsResp purpurVersionsResponse
	if err := getJSON(ctx, s.client, s.baseURL+"/v2/purpur", &versionsResp); err != nil {
		return build{}, fmt.Errorf("error getting Purpur versions: %w", err)
	}

	target, err := pickFromList(versionsResp.Versions, tag, "Purpur")
	if err != nil {
		return build{}, err
	}

	var latest purpurBuildResponse
	url := fmt.Sprintf("%s/v2/purpur/%s/latest", s.baseURL, target)
	if err := getJSON(ctx, s.client, url, &latest); err != nil {
		return build{}, fmt.Errorf("error getting latest Purpur build: %w", err)
	}

	return build{
		Version:     target,
		ArtifactURL: fmt.Sprintf("%s/v2/purpur/%s/%s/download", s.baseURL, target, latest.Build),
		Checksum:    "md5:" + latest.MD5,
	}, nil
}

// --- Fabric ---

type fabricSource struct {
	baseURL string
	client  *http.Client
}

type fabricVersionEntry struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

func (s *fabricSource) Resolve(ctx context.Context, tag string) (build, error) {
	var games []fabricVersionEntry
	if err := getJSON(ctx, s.client, s.baseURL+"/v2/versions/game", &games); err != nil {
		return build{}, fmt.Errorf("error getting Fabric versions: %w", err)
	}

	// The game list is newest-first; the first stable entry is the latest
	// release and the first entry overall is the latest snapshot.
	var target string
	switch tag {
	case domain.TagLatest:
		for _, g := range games {
			if g.Stable {
				target = g.Version
				break
			}
		}
	case domain.TagSnapshot:
		if len(games) > 0 {
			target = games[0].Version
		}
	default:
		for _, g := range games {
			if g.Version == tag {
				target = tag
				break
			}
		}
		if target == "" {
			return build{}, fmt.Errorf("version %s not found in Fabric: %w", tag, domain.ErrUnknownVersion)
		}
	}
	if target == "" {
		return build{}, fmt.Errorf("no matching Fabric game version: %w", domain.ErrUnknownVersion)
	}

	loaderVer, err := s.firstStable(ctx, "/v2/versions/loader")
	if err != nil {
		return build{}, fmt.Errorf("error getting Fabric loader version: %w", err)
	}
	installerVer, err := s.firstStable(ctx, "/v2/versions/installer")
	if err != nil {
		return build{}, fmt.Errorf("error getting Fabric installer version: %w", err)
	}

	return build{
		Version: target,
		ArtifactURL: fmt.Sprintf("%s/v2/versions/loader/%s/%s/%s/server/jar",
			s.baseURL, target, loaderVer, installerVer),
	}, nil
}

func (s *fabricSource) firstStable(ctx context.Context, path string) (string, error) {
	var entries []fabricVersionEntry
	if err := getJSON(ctx, s.client, s.baseURL+path, &entries); err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Stable {
			return e.Version, nil
		}
	}
	if len(entries) > 0 {
		return entries[0].Version, nil
	}
	return "", fmt.Errorf("empty version list at %s", path)
}

// --- Forge ---

type forgeSource struct {
	mavenURL string
	client   *http.Client
}

type forgePromotions struct {
	Promos map[string]string `json:"promos"`
}

func (s *forgeSource) Resolve(ctx context.Context, tag string) (build, error) {
	var promotions forgePromotions
	url := s.mavenURL + "/net/minecraftforge/forge/promotions_slim.json"
	if err := getJSON(ctx, s.client, url, &promotions); err != nil {
		return build{}, fmt.Errorf("error getting Forge promotions: %w", err)
	}

	// Promo keys look like "1.21.1-recommended" / "1.21.1-latest".
	mcForChannel := func(channel string) []string {
		var out []string
		for key := range promotions.Promos {
			if mc, ok := strings.CutSuffix(key, "-"+channel); ok {
				out = append(out, mc)
			}
		}
		sortVersionsDescending(out)
		return out
	}

	var mcVersion, forgeVersion string
	switch tag {
	case domain.TagLatest:
		if recommended := mcForChannel("recommended"); len(recommended) > 0 {
			mcVersion = recommended[0]
			forgeVersion = promotions.Promos[mcVersion+"-recommended"]
		} else if latest := mcForChannel("latest"); len(latest) > 0 {
			mcVersion = latest[0]
			forgeVersion = promotions.Promos[mcVersion+"-latest"]
		}
	case domain.TagSnapshot:
		if latest := mcForChannel("latest"); len(latest) > 0 {
			mcVersion = latest[0]
			forgeVersion = promotions.Promos[mcVersion+"-latest"]
		}
	default:
		mcVersion = tag
		if v, ok := promotions.Promos[tag+"-recommended"]; ok {
			forgeVersion = v
		} else if v, ok := promotions.Promos[tag+"-latest"]; ok {
			forgeVersion = v
		} else {
			return build{}, fmt.Errorf("version %s not found in Forge promotions: %w", tag, domain.ErrUnknownVersion)
		}
	}
	if mcVersion == "" || forgeVersion == "" {
		return build{}, fmt.Errorf("no Forge promotion available: %w", domain.ErrUnknownVersion)
	}

	pair := fmt.Sprintf("%s-%s", mcVersion, forgeVersion)
	return build{
		Version: pair,
		ArtifactURL: fmt.Sprintf("%s/net/minecraftforge/forge/%s/forge-%s-installer.jar",
			s.mavenURL, pair, pair),
	}, nil
}

// --- Spigot ---

// Spigot publishes no downloadable server artifact; builds are produced by
// BuildTools inside the container at first start. Versions track vanilla
// releases, so the vanilla manifest is used for validation and the SpigotMC
// hub metadata URL stands in as the artifact reference.
type spigotSource struct {
	manifestURL string
	hubURL      string
	client      *http.Client
}

func (s *spigotSource) Resolve(ctx context.Context, tag string) (build, error) {
	var manifest vanillaManifest
	if err := getJSON(ctx, s.client, s.manifestURL, &manifest); err != nil {
		return build{}, fmt.Errorf("could not get version manifest: %w", err)
	}

	// Spigot has no snapshot channel; SNAPSHOT resolves to the newest release.
	target := tag
	if tag == domain.TagLatest || tag == domain.TagSnapshot {
		target = manifest.Latest.Release
	}

	found := false
	for _, v := range manifest.Versions {
		if v.ID == target && v.Type == "release" {
			found = true
			break
		}
	}
	if !found {
		return build{}, fmt.Errorf("version %s not found for Spigot: %w", target, domain.ErrUnknownVersion)
	}

	return build{
		Version:     target,
		ArtifactURL: fmt.Sprintf("%s/versions/%s.json", s.hubURL, target),
	}, nil
}
