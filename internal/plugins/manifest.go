// Package plugins implements the plugin manifest (C2), the installer (C5),
// the shim generator (C9), the pending environment change set (C10), and the
// exec dispatcher (C11) — the persistent record of every installed binary
// and the machinery that decides, installs, and resolves them.
package plugins

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/google/renameio/v2"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BinaryIdentifier is the manifest's primary key: owner, name, and version
// joined by "||", matching the on-disk encoding used for JSON map keys.
type BinaryIdentifier string

// NewBinaryIdentifier builds the canonical identifier for a name+version pair.
func NewBinaryIdentifier(name bvmtypes.BinaryName, version bvmtypes.Version) BinaryIdentifier {
	return BinaryIdentifier(fmt.Sprintf("%s||%s||%s", name.Owner, name.Name, version.Text))
}

// BinaryName recovers the owner/name half of the identifier.
func (id BinaryIdentifier) BinaryName() bvmtypes.BinaryName {
	parts := strings.Split(string(id), "||")
	if len(parts) != 3 {
		return bvmtypes.BinaryName{}
	}
	return bvmtypes.BinaryName{Owner: parts[0], Name: parts[1]}
}

// Version recovers the version half of the identifier.
func (id BinaryIdentifier) Version() (bvmtypes.Version, error) {
	parts := strings.Split(string(id), "||")
	if len(parts) != 3 {
		return bvmtypes.Version{}, fmt.Errorf("malformed binary identifier %q", id)
	}
	return bvmtypes.ParseVersion(parts[2])
}

// Command is one entry point of an installed binary.
type Command struct {
	Name bvmtypes.CommandName `json:"name"`
	Path string               `json:"path"` // relative to the binary's installed directory
}

// BinaryEnvironment is the unresolved (installed_dir-relative, or
// containing the $BVM_CURRENT_BINARY_DIR token) form of environment extensions.
type BinaryEnvironment struct {
	Paths     []string          `json:"paths,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

// ManifestItemSource records where an installed binary's plugin file came from.
type ManifestItemSource struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// BinaryManifestItem is a single installed binary: created once by the
// installer, never mutated afterward, destroyed by uninstall.
type BinaryManifestItem struct {
	Name            bvmtypes.BinaryName `json:"name"`
	Version         bvmtypes.Version    `json:"version"`
	CreatedTimeSecs uint64              `json:"createdTime"`
	Commands        []Command           `json:"commands"`
	Source          ManifestItemSource  `json:"source"`
	Environment     *BinaryEnvironment  `json:"environment,omitempty"`
}

// GetIdentifier returns this item's manifest key.
func (b BinaryManifestItem) GetIdentifier() BinaryIdentifier {
	return NewBinaryIdentifier(b.Name, b.Version)
}

// Matches reports whether the item's name satisfies a NameSelector.
func (b BinaryManifestItem) Matches(selector bvmtypes.NameSelector) bool {
	return selector.Matches(b.Name)
}

// GetCommandNames lists every command this binary exposes.
func (b BinaryManifestItem) GetCommandNames() []bvmtypes.CommandName {
	names := make([]bvmtypes.CommandName, len(b.Commands))
	for i, c := range b.Commands {
		names[i] = c.Name
	}
	return names
}

// HasCommand reports whether this binary exposes the named command.
func (b BinaryManifestItem) HasCommand(name bvmtypes.CommandName) bool {
	for _, c := range b.Commands {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CommandPath returns the relative path declared for the named command.
func (b BinaryManifestItem) CommandPath(name bvmtypes.CommandName) (string, bool) {
	for _, c := range b.Commands {
		if c.Name == name {
			return c.Path, true
		}
	}
	return "", false
}

// GetEnvPaths returns the declared (unresolved) env-path contributions, or nil.
func (b BinaryManifestItem) GetEnvPaths() []string {
	if b.Environment == nil {
		return nil
	}
	return b.Environment.Paths
}

// GetResolvedEnvPaths joins relative declared paths beneath binDir and
// expands the $BVM_CURRENT_BINARY_DIR token, leaving absolute paths as-is.
func (b BinaryManifestItem) GetResolvedEnvPaths(binDir string) []string {
	raw := b.GetEnvPaths()
	out := make([]string, len(raw))
	for i, p := range raw {
		resolved := resolveEnvValue(p, binDir)
		if !filepath.IsAbs(resolved) && !path.IsAbs(resolved) {
			resolved = path.Join(binDir, resolved)
		}
		out[i] = resolved
	}
	return out
}

// GetEnvVariables returns the declared environment variables with
// $BVM_CURRENT_BINARY_DIR/%BVM_CURRENT_BINARY_DIR% expanded against binDir.
func (b BinaryManifestItem) GetEnvVariables(binDir string) map[string]string {
	if b.Environment == nil {
		return nil
	}
	out := make(map[string]string, len(b.Environment.Variables))
	for k, v := range b.Environment.Variables {
		out[k] = resolveEnvValue(v, binDir)
	}
	return out
}

// resolveEnvValue performs the literal textual substitution described in
// spec.md §9: no shell expansion, just a direct string replace of the
// current-binary-directory token. Both the Unix ($...) and Windows (%...%)
// forms are replaced, whatever the platform.
func resolveEnvValue(value, binDir string) string {
	value = strings.ReplaceAll(value, "$BVM_CURRENT_BINARY_DIR", binDir)
	value = strings.ReplaceAll(value, "%BVM_CURRENT_BINARY_DIR%", binDir)
	return value
}

// GlobalBinaryLocation is the persistent choice for a command name: defer to
// the OS PATH, or run a specific installed binary.
type GlobalBinaryLocation struct {
	IsPath     bool
	Identifier BinaryIdentifier
}

// PathLocation is the "defer to OS PATH" variant.
func PathLocation() GlobalBinaryLocation { return GlobalBinaryLocation{IsPath: true} }

// BvmLocation is the "run this installed binary" variant.
func BvmLocation(id BinaryIdentifier) GlobalBinaryLocation {
	return GlobalBinaryLocation{Identifier: id}
}

// ToIdentifierOption returns the identifier and true, or ("", false) for Path.
func (l GlobalBinaryLocation) ToIdentifierOption() (BinaryIdentifier, bool) {
	if l.IsPath {
		return "", false
	}
	return l.Identifier, true
}

// pathGlobalVersionValue and identifierGlobalPrefix define the tagged-union
// encoding of a GlobalBinaryLocation on disk: the literal string "path", or
// "identifier:<id>".
const pathGlobalVersionValue = "path"
const identifierGlobalPrefix = "identifier:"

func (l GlobalBinaryLocation) MarshalText() ([]byte, error) {
	if l.IsPath {
		return []byte(pathGlobalVersionValue), nil
	}
	return []byte(identifierGlobalPrefix + string(l.Identifier)), nil
}

func (l *GlobalBinaryLocation) UnmarshalText(text []byte) error {
	s := string(text)
	if s == pathGlobalVersionValue {
		*l = GlobalBinaryLocation{IsPath: true}
		return nil
	}
	if rest, ok := strings.CutPrefix(s, identifierGlobalPrefix); ok {
		*l = GlobalBinaryLocation{Identifier: BinaryIdentifier(rest)}
		return nil
	}
	return fmt.Errorf("unrecognized global version value %q", s)
}

// PendingEnvironmentChanges tracks which installed binaries' environment
// contributions must be added to, or removed from, the next live shell that
// wakes up and asks (C10).
type PendingEnvironmentChanges struct {
	Added   map[BinaryIdentifier]bool `json:"added"`
	Removed map[BinaryIdentifier]bool `json:"removed"`
}

func newPendingEnvironmentChanges() PendingEnvironmentChanges {
	return PendingEnvironmentChanges{Added: map[BinaryIdentifier]bool{}, Removed: map[BinaryIdentifier]bool{}}
}

// MarkForAdding records that id's contributions must appear in the next
// shell. It deliberately does NOT clear id from Removed — retaining both
// lets the emitter recover "switched away then back" as a net no-op.
func (p *PendingEnvironmentChanges) MarkForAdding(id BinaryIdentifier) {
	p.Added[id] = true
}

// MarkForRemoval records that id's contributions must disappear. Unlike
// MarkForAdding, this clears id from Added first, since an add that's
// immediately reverted has no net effect to emit.
func (p *PendingEnvironmentChanges) MarkForRemoval(id BinaryIdentifier) {
	delete(p.Added, id)
	p.Removed[id] = true
}

// Any reports whether there is anything pending at all.
func (p PendingEnvironmentChanges) Any() bool {
	return len(p.Added) > 0 || len(p.Removed) > 0
}

// Clear empties both sets.
func (p *PendingEnvironmentChanges) Clear() {
	p.Added = map[BinaryIdentifier]bool{}
	p.Removed = map[BinaryIdentifier]bool{}
}

// PluginsManifest is the full persisted record of installed binaries,
// global selections, URL cache, and pending environment changes (§3).
type PluginsManifest struct {
	URLsToIdentifier  map[string]BinaryIdentifier             `json:"urlsToIdentifier"`
	GlobalVersions    map[bvmtypes.CommandName]GlobalBinaryLocation `json:"globalVersions"`
	Binaries          map[BinaryIdentifier]BinaryManifestItem `json:"binaries"`
	PendingEnvChanges PendingEnvironmentChanges               `json:"pendingEnvironmentChanges"`
}

// NewManifest builds an empty manifest.
func NewManifest() *PluginsManifest {
	return &PluginsManifest{
		URLsToIdentifier: map[string]BinaryIdentifier{},
		GlobalVersions:   map[bvmtypes.CommandName]GlobalBinaryLocation{},
		Binaries:         map[BinaryIdentifier]BinaryManifestItem{},
		PendingEnvChanges: newPendingEnvironmentChanges(),
	}
}

func manifestFilePath(env bvmenv.Environment) (string, error) {
	dir, err := env.UserDataDir()
	if err != nil {
		return "", err
	}
	return dir + "/binaries-manifest.json", nil
}

// LoadManifest reads the manifest from disk. A missing file, or one that
// fails to deserialize, yields a fresh empty manifest rather than an error —
// bvm must still be runnable so the user can recover (§7).
func LoadManifest(env bvmenv.Environment) (*PluginsManifest, error) {
	path, err := manifestFilePath(env)
	if err != nil {
		return nil, err
	}
	if !env.PathExists(path) {
		return NewManifest(), nil
	}
	data, err := env.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := NewManifest()
	if err := json.Unmarshal(data, m); err != nil {
		env.LogError("binaries-manifest.json could not be parsed; starting from an empty manifest: " + err.Error())
		return NewManifest(), nil
	}
	if m.URLsToIdentifier == nil {
		m.URLsToIdentifier = map[string]BinaryIdentifier{}
	}
	if m.GlobalVersions == nil {
		m.GlobalVersions = map[bvmtypes.CommandName]GlobalBinaryLocation{}
	}
	if m.Binaries == nil {
		m.Binaries = map[BinaryIdentifier]BinaryManifestItem{}
	}
	if m.PendingEnvChanges.Added == nil || m.PendingEnvChanges.Removed == nil {
		m.PendingEnvChanges = newPendingEnvironmentChanges()
	}
	return m, nil
}

// saveManifest atomically rewrites the whole manifest file (§5).
func saveManifest(env bvmenv.Environment, m *PluginsManifest) error {
	path, err := manifestFilePath(env)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if env.IsRealNetwork() {
		return renameio.WriteFile(path, data, 0644)
	}
	return env.WriteFile(path, data)
}

// HasBinary reports whether id is installed.
func (m *PluginsManifest) HasBinary(id BinaryIdentifier) bool {
	_, ok := m.Binaries[id]
	return ok
}

// BinariesList returns every installed binary, order unspecified.
func (m *PluginsManifest) BinariesList() []BinaryManifestItem {
	out := make([]BinaryManifestItem, 0, len(m.Binaries))
	for _, b := range m.Binaries {
		out = append(out, b)
	}
	return out
}

// HasBinaryWithCommand reports whether any installed binary exposes command.
func (m *PluginsManifest) HasBinaryWithCommand(command bvmtypes.CommandName) bool {
	for _, b := range m.Binaries {
		if b.HasCommand(command) {
			return true
		}
	}
	return false
}

// BinaryNameHasSameOwner reports whether every installed binary matching
// name.Name shares a single owner, returning that owner if so.
func (m *PluginsManifest) BinaryNameHasSameOwner(name string) (string, bool) {
	owner := ""
	seen := false
	for _, b := range m.Binaries {
		if b.Name.Name != name {
			continue
		}
		if !seen {
			owner, seen = b.Name.Owner, true
			continue
		}
		if b.Name.Owner != owner {
			return "", false
		}
	}
	return owner, seen
}

// GetBinariesMatchingName returns every installed binary matching selector,
// sorted by (name, version) ascending.
func (m *PluginsManifest) GetBinariesMatchingName(selector bvmtypes.NameSelector) []BinaryManifestItem {
	var out []BinaryManifestItem
	for _, b := range m.Binaries {
		if b.Matches(selector) {
			out = append(out, b)
		}
	}
	sortBinaries(out)
	return out
}

// GetBinariesMatchingNameAndVersion filters further by a version selector.
func (m *PluginsManifest) GetBinariesMatchingNameAndVersion(selector bvmtypes.NameSelector, version bvmtypes.VersionSelector) []BinaryManifestItem {
	var out []BinaryManifestItem
	for _, b := range m.GetBinariesMatchingName(selector) {
		if version.Matches(b.Version) {
			out = append(out, b)
		}
	}
	return out
}

// GetBinariesWithCommand returns every installed binary exposing command.
func (m *PluginsManifest) GetBinariesWithCommand(command bvmtypes.CommandName) []BinaryManifestItem {
	var out []BinaryManifestItem
	for _, b := range m.Binaries {
		if b.HasCommand(command) {
			out = append(out, b)
		}
	}
	sortBinaries(out)
	return out
}

// GetLatestBinaryWithName returns the greatest-versioned installed binary matching selector.
func (m *PluginsManifest) GetLatestBinaryWithName(selector bvmtypes.NameSelector) (BinaryManifestItem, bool) {
	matches := m.GetBinariesMatchingName(selector)
	if len(matches) == 0 {
		return BinaryManifestItem{}, false
	}
	return matches[len(matches)-1], true
}

// GetLatestBinaryWithCommand returns the greatest-versioned installed binary exposing command.
func (m *PluginsManifest) GetLatestBinaryWithCommand(command bvmtypes.CommandName) (BinaryManifestItem, bool) {
	matches := m.GetBinariesWithCommand(command)
	if len(matches) == 0 {
		return BinaryManifestItem{}, false
	}
	return matches[len(matches)-1], true
}

func sortBinaries(items []BinaryManifestItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name.String() != items[j].Name.String() {
			return items[i].Name.String() < items[j].Name.String()
		}
		return items[i].Version.Compare(items[j].Version) < 0
	})
}

// GetGlobalBinaryLocation returns the persistent selection for command, if any.
func (m *PluginsManifest) GetGlobalBinaryLocation(command bvmtypes.CommandName) (GlobalBinaryLocation, bool) {
	loc, ok := m.GlobalVersions[command]
	return loc, ok
}

// IsGlobalVersion reports whether id is the current global selection for any of its own commands.
func (m *PluginsManifest) IsGlobalVersion(id BinaryIdentifier) bool {
	for _, loc := range m.GlobalVersions {
		if identifier, ok := loc.ToIdentifierOption(); ok && identifier == id {
			return true
		}
	}
	return false
}

// HasAnyGlobalCommand reports whether id is the global selection for at least one command name.
func (m *PluginsManifest) HasAnyGlobalCommand(id BinaryIdentifier) bool {
	return m.IsGlobalVersion(id)
}

// HasEnvironmentChanges reports whether id declares any env paths or variables.
func (m *PluginsManifest) HasEnvironmentChanges(id BinaryIdentifier) bool {
	b, ok := m.Binaries[id]
	if !ok || b.Environment == nil {
		return false
	}
	return len(b.Environment.Paths) > 0 || len(b.Environment.Variables) > 0
}

// GetGlobalCommandNames returns the command names for which id is the current global selection.
func (m *PluginsManifest) GetGlobalCommandNames(id BinaryIdentifier) []bvmtypes.CommandName {
	var out []bvmtypes.CommandName
	for command, loc := range m.GlobalVersions {
		if identifier, ok := loc.ToIdentifierOption(); ok && identifier == id {
			out = append(out, command)
		}
	}
	return out
}

// GetAllCommandNames returns every distinct command name exposed by any installed binary.
func (m *PluginsManifest) GetAllCommandNames() []bvmtypes.CommandName {
	seen := map[bvmtypes.CommandName]bool{}
	for _, b := range m.Binaries {
		for _, c := range b.Commands {
			seen[c.Name] = true
		}
	}
	out := make([]bvmtypes.CommandName, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a manifest sharing its installed-binaries and URL cache with
// m (neither is ever mutated by a simulated "use") but with independent
// GlobalVersions and PendingEnvChanges maps, so a simulated selection can be
// applied and discarded without touching m (§4.10's "must not leak back to
// the manifest on disk" rule).
func (m *PluginsManifest) Clone() *PluginsManifest {
	clone := &PluginsManifest{
		URLsToIdentifier:  m.URLsToIdentifier,
		Binaries:          m.Binaries,
		GlobalVersions:    make(map[bvmtypes.CommandName]GlobalBinaryLocation, len(m.GlobalVersions)),
		PendingEnvChanges: newPendingEnvironmentChanges(),
	}
	for k, v := range m.GlobalVersions {
		clone.GlobalVersions[k] = v
	}
	for id := range m.PendingEnvChanges.Added {
		clone.PendingEnvChanges.Added[id] = true
	}
	for id := range m.PendingEnvChanges.Removed {
		clone.PendingEnvChanges.Removed[id] = true
	}
	return clone
}

// GetIdentifierFromURL answers "what is this URL?" purely from the cache,
// without any network access — the open-question contract in spec.md §9.
func (m *PluginsManifest) GetIdentifierFromURL(url string) (BinaryIdentifier, bool) {
	id, ok := m.URLsToIdentifier[url]
	return id, ok
}
