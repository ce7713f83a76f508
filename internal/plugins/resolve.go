package plugins

import (
	"fmt"
	"path"
	"strings"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/checksumurl"
	"bvm/internal/configuration"
)

// configMatch is what step 1 of ResolveCommand finds for one config-file binary.
type configMatch struct {
	item         BinaryManifestItem
	commandPath  string
}

// resolveConfigBinaries walks a project's config file (if any), matching
// command against each declared binary's commands in file order (§4.10 step 1).
func resolveConfigBinaries(env bvmenv.Environment, manifest *PluginsManifest, command bvmtypes.CommandName) (match *configMatch, hadUninstalled bool, err error) {
	configPath, found := configuration.FindConfigFile(env)
	if !found {
		return nil, false, nil
	}
	text, err := env.ReadFile(configPath)
	if err != nil {
		return nil, false, err
	}
	base, err := checksumurl.FromDirectory(path.Dir(configPath))
	if err != nil {
		return nil, false, err
	}
	cfg, err := configuration.ReadConfigFile(string(text), base, configPath)
	if err != nil {
		return nil, false, err
	}

	for _, binary := range cfg.Binaries {
		id, ok := manifest.GetIdentifierFromURL(binary.URL.URL.String())
		if !ok {
			fetched, err := GetPluginFile(env, binary.URL)
			if err != nil {
				hadUninstalled = true
				continue
			}
			name, err := fetched.File.BinaryName()
			if err != nil {
				hadUninstalled = true
				continue
			}
			platform, err := fetched.File.Platform()
			if err != nil {
				hadUninstalled = true
				continue
			}
			version, err := bvmtypes.ParseVersion(fetched.File.Version)
			if err != nil {
				hadUninstalled = true
				continue
			}
			_ = platform
			id = NewBinaryIdentifier(name, version)
		}

		item, ok := manifest.Binaries[id]
		if !ok {
			hadUninstalled = true
			continue
		}
		if commandPath, ok := item.CommandPath(command); ok {
			return &configMatch{item: item, commandPath: commandPath}, hadUninstalled, nil
		}
	}
	return nil, hadUninstalled, nil
}

// ResolveCommand implements `hidden resolve-command <c>` (§4.10): it returns
// the full line-protocol emission (zero or more env-change lines followed by
// EXEC\n<path>), or an error if c could not be resolved anywhere.
func ResolveCommand(env bvmenv.Environment, manifest *PluginsManifest, command bvmtypes.CommandName) (string, error) {
	var b strings.Builder

	match, hadUninstalled, err := resolveConfigBinaries(env, manifest, command)
	if err != nil {
		return "", err
	}
	if match != nil {
		// Step 2: a purely in-memory simulated "use" — the clone is discarded
		// after this call, never saved.
		simulated := NewPluginsMut(env, manifest.Clone(), false)
		if err := simulated.UseGlobalVersion(match.item, false); err != nil {
			return "", err
		}
		lines, err := GetPendingEnvChangeLines(env, simulated.Manifest())
		if err != nil {
			return "", err
		}
		b.WriteString(lines)
		binDir, err := InstalledDir(env, match.item.Name, match.item.Version)
		if err != nil {
			return "", err
		}
		emitExec(&b, path.Join(binDir, match.commandPath))
		return b.String(), nil
	}

	if hadUninstalled {
		env.LogError(fmt.Sprintf("%s is declared in this project's config file but not installed; run `bvm install` first", command))
	}

	// Step 4: persistent global selection, falling back to the OS PATH.
	execPath, err := resolveGlobalOrPath(env, manifest, command)
	if err != nil {
		return "", err
	}
	emitExec(&b, execPath)
	return b.String(), nil
}

// resolveGlobalOrPath is step 4 of the algorithm: the persistent global
// selection, else the OS PATH.
func resolveGlobalOrPath(env bvmenv.Environment, manifest *PluginsManifest, command bvmtypes.CommandName) (string, error) {
	if loc, ok := manifest.GetGlobalBinaryLocation(command); ok {
		if id, isBvm := loc.ToIdentifierOption(); isBvm {
			item, ok := manifest.Binaries[id]
			if !ok {
				return "", fmt.Errorf("global selection for %q refers to an uninstalled binary", command)
			}
			commandPath, ok := item.CommandPath(command)
			if !ok {
				return "", fmt.Errorf("%s no longer exposes command %q", item.Name, command)
			}
			binDir, err := InstalledDir(env, item.Name, item.Version)
			if err != nil {
				return "", err
			}
			return path.Join(binDir, commandPath), nil
		}
	}
	if found, ok := findOnOSPath(env, command); ok {
		return found, nil
	}
	return "", fmt.Errorf("no installed or system %q was found", command)
}

// FindOnPath reports whether command resolves on the OS PATH, outside bvm's
// own shim directory — used by the installer's "not currently on PATH"
// auto-global-selection decision.
func FindOnPath(env bvmenv.Environment, command bvmtypes.CommandName) (string, bool) {
	return findOnOSPath(env, command)
}

// findOnOSPath searches PATH for command, skipping the shim directory itself
// so a shim never recursively resolves to its own wrapper.
func findOnOSPath(env bvmenv.Environment, command bvmtypes.CommandName) (string, bool) {
	shims, err := shimDir(env)
	if err != nil {
		shims = ""
	}
	sep := env.PathSeparator()
	for _, dir := range strings.Split(env.GetEnvPath(), sep) {
		if dir == "" || dir == shims {
			continue
		}
		candidate := path.Join(dir, string(command))
		if env.PathExists(candidate) {
			return candidate, true
		}
		if isWindows() {
			candidateExe := candidate + ".exe"
			if env.PathExists(candidateExe) {
				return candidateExe, true
			}
		}
	}
	return "", false
}

// GetExecEnvChanges implements `hidden get-exec-env-changes <name>
// <version|path>`: like ResolveCommand but for a binary already identified
// by name+version rather than by command, and without the EXEC terminator.
func GetExecEnvChanges(env bvmenv.Environment, manifest *PluginsManifest, item BinaryManifestItem, isPath bool) (string, error) {
	simulated := NewPluginsMut(env, manifest.Clone(), false)
	if err := simulated.UseGlobalVersion(item, isPath); err != nil {
		return "", err
	}
	return GetPendingEnvChangeLines(env, simulated.Manifest())
}

// GetExecCommandPath implements `hidden get-exec-command-path <name>
// <version|path> <command>`.
func GetExecCommandPath(env bvmenv.Environment, item BinaryManifestItem, command bvmtypes.CommandName) (string, error) {
	commandPath, ok := item.CommandPath(command)
	if !ok {
		return "", fmt.Errorf("%s does not expose command %q", item.Name, command)
	}
	binDir, err := InstalledDir(env, item.Name, item.Version)
	if err != nil {
		return "", err
	}
	return path.Join(binDir, commandPath), nil
}

// HasCommand implements `hidden has-command <name> <version|path> <command>`.
func HasCommand(item BinaryManifestItem, command bvmtypes.CommandName) bool {
	return item.HasCommand(command)
}
