// Package registry implements the registry index (C6): a persisted mapping
// from a binary's short name to the registry URLs that describe it, plus the
// schema for the registry documents those URLs serve.
package registry

import (
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/google/renameio/v2"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Registry maps a binary's short name (no owner) to the list of registry URLs
// that mention it.
type Registry struct {
	NameToURLs map[string][]string `json:"nameToUrls"`
}

// Item is one flattened (name, url) association, for listing.
type Item struct {
	Name bvmtypes.BinaryName
	URL  string
}

// Load reads the registry file, returning an empty Registry (logging the
// failure) if it is missing or fails to deserialize — the registry, like the
// plugins manifest, must never prevent bvm from running.
func Load(env bvmenv.Environment) (*Registry, error) {
	path, err := registryFilePath(env)
	if err != nil {
		return nil, err
	}
	if !env.PathExists(path) {
		return &Registry{NameToURLs: map[string][]string{}}, nil
	}
	data, err := env.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		env.LogError("registry.json could not be parsed; starting from an empty registry: " + err.Error())
		return &Registry{NameToURLs: map[string][]string{}}, nil
	}
	if reg.NameToURLs == nil {
		reg.NameToURLs = map[string][]string{}
	}
	return &reg, nil
}

// Save atomically replaces the registry file on disk (§5 last-writer-wins).
func (r *Registry) Save(env bvmenv.Environment) error {
	path, err := registryFilePath(env)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if env.IsRealNetwork() {
		return renameio.WriteFile(path, data, 0644)
	}
	return env.WriteFile(path, data)
}

func registryFilePath(env bvmenv.Environment) (string, error) {
	dir, err := env.UserDataDir()
	if err != nil {
		return "", err
	}
	return dir + "/registry.json", nil
}

// GetURLs returns every registry URL associated with any name matching selector.
func (r *Registry) GetURLs(selector bvmtypes.NameSelector) []string {
	var out []string
	for _, url := range r.NameToURLs[selector.Name] {
		out = append(out, url)
	}
	if selector.Owner != "" {
		// name-to-url entries are keyed by bare name only; owner disambiguation
		// happens later against the fetched RegistryFile contents (C7).
		return out
	}
	return out
}

// AddURL associates url with name, de-duplicating.
func (r *Registry) AddURL(name string, url string) {
	for _, existing := range r.NameToURLs[name] {
		if existing == url {
			return
		}
	}
	r.NameToURLs[name] = append(r.NameToURLs[name], url)
}

// RemoveURL strips url from every name's association list, pruning empty entries.
func (r *Registry) RemoveURL(url string) {
	for name, urls := range r.NameToURLs {
		filtered := urls[:0]
		for _, existing := range urls {
			if existing != url {
				filtered = append(filtered, existing)
			}
		}
		if len(filtered) == 0 {
			delete(r.NameToURLs, name)
		} else {
			r.NameToURLs[name] = filtered
		}
	}
}

// Items flattens the registry into a sorted list of (name, url) pairs.
func (r *Registry) Items() []Item {
	var items []Item
	for name, urls := range r.NameToURLs {
		for _, url := range urls {
			items = append(items, Item{Name: bvmtypes.BinaryName{Name: name}, URL: url})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name.Name != items[j].Name.Name {
			return items[i].Name.Name < items[j].Name.Name
		}
		return items[i].URL < items[j].URL
	})
	return items
}
