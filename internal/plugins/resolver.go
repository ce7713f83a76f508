package plugins

import (
	"fmt"
	neturl "net/url"
	"sort"
	"strings"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/checksumurl"
	"bvm/internal/registry"
)

// ResolveInstalled implements the local name-selector resolution algorithm
// (§4.6, first list): filter the manifest by name, require a single owner,
// filter by version, and take the greatest match.
func ResolveInstalled(manifest *PluginsManifest, selector bvmtypes.NameSelector, versionSelector *bvmtypes.VersionSelector) (BinaryManifestItem, error) {
	matches := manifest.GetBinariesMatchingName(selector)
	if len(matches) == 0 {
		return BinaryManifestItem{}, fmt.Errorf("no installed binary matches %q (NoInstalledBinary)", selector)
	}
	if _, ok := distinctOwner(matches); !ok {
		return BinaryManifestItem{}, ambiguousOwnerError(selector, matches)
	}

	filtered := matches
	if versionSelector != nil {
		filtered = nil
		for _, m := range matches {
			if versionSelector.Matches(m.Version) {
				filtered = append(filtered, m)
			}
		}
	}
	if len(filtered) == 0 {
		return BinaryManifestItem{}, fmt.Errorf("no installed version of %q matches %s (NoMatchingVersion)", selector, versionSelector)
	}
	return filtered[len(filtered)-1], nil
}

func distinctOwner(items []BinaryManifestItem) (string, bool) {
	owner, seen := "", false
	for _, it := range items {
		if !seen {
			owner, seen = it.Name.Owner, true
			continue
		}
		if it.Name.Owner != owner {
			return "", false
		}
	}
	return owner, seen
}

// distinctCandidateOwner reports the single owner shared by every candidate,
// or false if candidates span more than one owner.
func distinctCandidateOwner(candidates []registryCandidate) (string, bool) {
	owner, seen := "", false
	for _, c := range candidates {
		if !seen {
			owner, seen = c.binaryName.Owner, true
			continue
		}
		if c.binaryName.Owner != owner {
			return "", false
		}
	}
	return owner, seen
}

func ambiguousOwnerError(selector bvmtypes.NameSelector, items []BinaryManifestItem) error {
	names := make([]bvmtypes.BinaryName, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return ambiguousOwnerErrorNames(selector, names)
}

// ambiguousOwnerErrorNames builds the deterministic "multiple owners" error
// (§4.6 C7, §8 property 8): every distinct owner/name pairing matching
// selector, sorted lexicographically, telling the caller to qualify by owner.
func ambiguousOwnerErrorNames(selector bvmtypes.NameSelector, names []bvmtypes.BinaryName) error {
	seen := map[string]bool{}
	var texts []string
	for _, n := range names {
		s := n.String()
		if !seen[s] {
			seen[s] = true
			texts = append(texts, s)
		}
	}
	sort.Strings(texts)
	return fmt.Errorf("there were multiple binaries with the name %q; please include the owner in the name: %s (AmbiguousOwner)", selector, strings.Join(texts, ", "))
}

// registryCandidate is one version row seen while scanning every registry URL
// mapped to a name, carrying the base URL needed to resolve its relative path.
type registryCandidate struct {
	binaryName bvmtypes.BinaryName
	version    bvmtypes.Version
	info       registry.RegistryVersionInfo
	base       *neturl.URL
}

// ResolveAcrossRegistries implements the second resolution algorithm in
// §4.6: fetch every registry URL associated with selector, collect every
// version row any of them declare, and pick one per versionSelector (or the
// greatest release, falling back to the greatest prerelease if no release
// exists).
func ResolveAcrossRegistries(env bvmenv.Environment, reg *registry.Registry, selector bvmtypes.NameSelector, versionSelector *bvmtypes.VersionSelector) (bvmtypes.BinaryName, checksumurl.ChecksumUrl, error) {
	urls := reg.GetURLs(selector)
	if len(urls) == 0 {
		return bvmtypes.BinaryName{}, checksumurl.ChecksumUrl{}, fmt.Errorf("no registry entry for %q", selector)
	}

	var candidates []registryCandidate
	for _, url := range urls {
		file, err := registry.DownloadRegistryFile(env, url)
		if err != nil {
			env.LogError(fmt.Sprintf("skipping registry %s: %v", url, err))
			continue
		}
		base, err := neturl.Parse(url)
		if err != nil {
			continue
		}
		for _, binary := range file.BinariesWithName(selector.Owner, selector.Name) {
			binaryName, err := binary.BinaryName()
			if err != nil {
				continue
			}
			for _, row := range binary.Versions {
				version, err := bvmtypes.ParseVersion(row.Version)
				if err != nil {
					continue
				}
				candidates = append(candidates, registryCandidate{binaryName: binaryName, version: version, info: row, base: base})
			}
		}
	}
	if len(candidates) == 0 {
		return bvmtypes.BinaryName{}, checksumurl.ChecksumUrl{}, fmt.Errorf("no registry declares a version of %q (NoMatchingVersion)", selector)
	}

	if selector.Owner == "" {
		if _, ok := distinctCandidateOwner(candidates); !ok {
			names := make([]bvmtypes.BinaryName, len(candidates))
			for i, c := range candidates {
				names[i] = c.binaryName
			}
			return bvmtypes.BinaryName{}, checksumurl.ChecksumUrl{}, ambiguousOwnerErrorNames(selector, names)
		}
	}

	chosen, ok := pickCandidate(candidates, versionSelector)
	if !ok {
		return bvmtypes.BinaryName{}, checksumurl.ChecksumUrl{}, fmt.Errorf("no version of %q matches %s (NoMatchingVersion)", selector, versionSelector)
	}
	url, err := chosen.info.URL(chosen.base)
	if err != nil {
		return bvmtypes.BinaryName{}, checksumurl.ChecksumUrl{}, err
	}
	return chosen.binaryName, url, nil
}

func pickCandidate(candidates []registryCandidate, versionSelector *bvmtypes.VersionSelector) (registryCandidate, bool) {
	if versionSelector != nil {
		var best registryCandidate
		found := false
		for _, c := range candidates {
			if !versionSelector.Matches(c.version) {
				continue
			}
			if !found || c.version.Compare(best.version) > 0 {
				best, found = c, true
			}
		}
		return best, found
	}

	var bestRelease, bestPrerelease registryCandidate
	haveRelease, havePrerelease := false, false
	for _, c := range candidates {
		if c.version.IsPrerelease() {
			if !havePrerelease || c.version.Compare(bestPrerelease.version) > 0 {
				bestPrerelease, havePrerelease = c, true
			}
			continue
		}
		if !haveRelease || c.version.Compare(bestRelease.version) > 0 {
			bestRelease, haveRelease = c, true
		}
	}
	if haveRelease {
		return bestRelease, true
	}
	return bestPrerelease, havePrerelease
}
