package plugins

import (
	"fmt"
	"runtime"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
)

// PluginsMut is the single mediator through which the manifest is ever
// mutated (spec.md §9, "global mutable state"). Read paths (the exec
// dispatcher, `bvm list`) go straight to a *PluginsManifest; anything that
// writes goes through here so every write ends at exactly one Save call.
//
// allowWrite gates Save: the simulated, non-persisting "use" evaluated on the
// resolve hot path (§4.10 step 2) builds a PluginsMut with allowWrite=false
// so a bug there can never silently persist.
type PluginsMut struct {
	env        bvmenv.Environment
	manifest   *PluginsManifest
	allowWrite bool
}

// NewPluginsMut wraps manifest for mutation. Pass allowWrite=false for
// evaluate-only use (the in-memory simulated "use" the resolver performs).
func NewPluginsMut(env bvmenv.Environment, manifest *PluginsManifest, allowWrite bool) *PluginsMut {
	return &PluginsMut{env: env, manifest: manifest, allowWrite: allowWrite}
}

// Manifest exposes the underlying manifest for read-only queries.
func (m *PluginsMut) Manifest() *PluginsManifest { return m.manifest }

// UrlInstallAction is the outcome of checking whether a plugin URL has
// already been installed (§4.6's install-idempotency rule).
type UrlInstallAction struct {
	AlreadyInstalled bool
	Identifier       BinaryIdentifier
}

// GetUrlInstallAction answers "does installing this URL require any work?"
// purely from the manifest's url-to-identifier cache, with no network
// access — a previously installed URL is a no-op unless its identifier has
// since been uninstalled out from under it.
func (m *PluginsMut) GetUrlInstallAction(url string) UrlInstallAction {
	id, ok := m.manifest.GetIdentifierFromURL(url)
	if !ok {
		return UrlInstallAction{}
	}
	if !m.manifest.HasBinary(id) {
		return UrlInstallAction{}
	}
	return UrlInstallAction{AlreadyInstalled: true, Identifier: id}
}

// SetupPlugin records a freshly installed binary (§4.4 step 8): inserts it
// into the manifest and remembers the plugin file URL it came from, so a
// repeat install of the same URL is recognized as already-satisfied.
func (m *PluginsMut) SetupPlugin(item BinaryManifestItem, pluginFileURL string) BinaryIdentifier {
	id := item.GetIdentifier()
	m.manifest.Binaries[id] = item
	if pluginFileURL != "" {
		m.manifest.URLsToIdentifier[pluginFileURL] = id
	}
	return id
}

// SetGlobalBinaryIfNotSet establishes command's global selection only if it
// has none yet — used right after a first-ever install of a binary exposing
// a command nobody has claimed, so the brand new binary becomes usable
// without an explicit `bvm use`.
func (m *PluginsMut) SetGlobalBinaryIfNotSet(command bvmtypes.CommandName, id BinaryIdentifier) {
	m.SetGlobalLocationIfNotSet(command, BvmLocation(id))
}

// SetGlobalLocationIfNotSet establishes command's global selection to
// location only if it has none yet. Used by the installer's "not currently
// on PATH" auto-selection: a command already resolvable on the OS PATH gets
// an explicit Path selection instead of silently losing to a new install.
func (m *PluginsMut) SetGlobalLocationIfNotSet(command bvmtypes.CommandName, location GlobalBinaryLocation) {
	if _, ok := m.manifest.GetGlobalBinaryLocation(command); ok {
		return
	}
	m.setGlobalLocation(command, location)
}

// UseGlobalVersion persistently selects item as the global binary for every
// command it exposes (location.IsPath selects "defer to PATH" instead). Any
// identifier that loses its last global command is marked for environment
// removal; the newly selected identifier (if not Path) is marked for
// addition. Shims are recreated so `command` on PATH dispatches correctly
// even without shell-integration support.
func (m *PluginsMut) UseGlobalVersion(item BinaryManifestItem, isPath bool) error {
	id := item.GetIdentifier()
	location := BvmLocation(id)
	if isPath {
		location = PathLocation()
	}

	displaced := map[BinaryIdentifier]bool{}
	for _, command := range item.GetCommandNames() {
		if prior, ok := m.manifest.GetGlobalBinaryLocation(command); ok {
			if priorID, ok := prior.ToIdentifierOption(); ok && priorID != id {
				displaced[priorID] = true
			}
		}
		m.setGlobalLocation(command, location)
	}

	if !isPath {
		m.manifest.PendingEnvChanges.MarkForAdding(id)
	} else {
		m.manifest.PendingEnvChanges.MarkForRemoval(id)
	}
	for priorID := range displaced {
		if !m.manifest.IsGlobalVersion(priorID) {
			m.manifest.PendingEnvChanges.MarkForRemoval(priorID)
		}
	}

	return RecreateShims(m.env, m.manifest)
}

func (m *PluginsMut) setGlobalLocation(command bvmtypes.CommandName, location GlobalBinaryLocation) {
	m.manifest.GlobalVersions[command] = location
}

// RemoveBinary deletes an installed binary from the manifest (§4.5's
// uninstall). Any command for which it was the global selection falls back
// to the next-latest installed binary sharing its name, or to "path" if none
// remains. The removed identifier is always marked for environment removal.
func (m *PluginsMut) RemoveBinary(id BinaryIdentifier) error {
	item, ok := m.manifest.Binaries[id]
	if !ok {
		return fmt.Errorf("binary %q is not installed", id)
	}

	globalCommands := m.manifest.GetGlobalCommandNames(id)
	delete(m.manifest.Binaries, id)
	m.manifest.PendingEnvChanges.MarkForRemoval(id)

	if len(globalCommands) == 0 {
		return RecreateShims(m.env, m.manifest)
	}

	selector := bvmtypes.NameSelector{Owner: item.Name.Owner, Name: item.Name.Name}
	fallback, hasFallback := m.manifest.GetLatestBinaryWithName(selector)
	for _, command := range globalCommands {
		if hasFallback {
			m.setGlobalLocation(command, BvmLocation(fallback.GetIdentifier()))
		} else {
			m.setGlobalLocation(command, PathLocation())
		}
	}
	if hasFallback {
		m.manifest.PendingEnvChanges.MarkForAdding(fallback.GetIdentifier())
	}

	return RecreateShims(m.env, m.manifest)
}

// RemoveIfGlobalBinary clears id's global selections without uninstalling
// it: each command it was selected for is set to "path" (unlike
// RemoveBinary, no next-latest binary is chosen). Used when a `use`
// switches a command away from id entirely (not just to a different
// version of the same binary).
func (m *PluginsMut) RemoveIfGlobalBinary(id BinaryIdentifier) error {
	if !m.manifest.IsGlobalVersion(id) {
		return nil
	}
	for _, command := range m.manifest.GetGlobalCommandNames(id) {
		m.setGlobalLocation(command, PathLocation())
	}
	m.manifest.PendingEnvChanges.MarkForRemoval(id)
	return RecreateShims(m.env, m.manifest)
}

// Save persists the manifest. On Windows it also applies any pending
// environment changes directly to the persistent user environment (there is
// no shell-integration hook to defer to), clearing them once applied.
// Calling Save on a read-only (simulated) PluginsMut is a programming error.
func (m *PluginsMut) Save() error {
	if !m.allowWrite {
		return fmt.Errorf("refusing to save: this PluginsMut is read-only (simulated use)")
	}
	if runtime.GOOS == "windows" {
		if err := m.applyWindowsPendingChanges(); err != nil {
			return err
		}
	}
	return saveManifest(m.env, m.manifest)
}

func (m *PluginsMut) applyWindowsPendingChanges() error {
	for id := range m.manifest.PendingEnvChanges.Removed {
		item, ok := m.manifest.Binaries[id]
		if !ok {
			continue
		}
		binDir, err := InstalledDir(m.env, item.Name, item.Version)
		if err != nil {
			return err
		}
		for k := range item.GetEnvVariables(binDir) {
			if err := m.env.RemovePersistentEnvVar(k); err != nil {
				return err
			}
		}
		for _, p := range item.GetResolvedEnvPaths(binDir) {
			if err := m.env.RemoveSystemPath(p); err != nil {
				return err
			}
		}
	}
	for id := range m.manifest.PendingEnvChanges.Added {
		item, ok := m.manifest.Binaries[id]
		if !ok {
			continue
		}
		binDir, err := InstalledDir(m.env, item.Name, item.Version)
		if err != nil {
			return err
		}
		for k, v := range item.GetEnvVariables(binDir) {
			if err := m.env.SetPersistentEnvVar(k, v); err != nil {
				return err
			}
		}
		for _, p := range item.GetResolvedEnvPaths(binDir) {
			if err := m.env.EnsureSystemPath(p); err != nil {
				return err
			}
		}
	}
	m.manifest.PendingEnvChanges.Clear()
	return nil
}
