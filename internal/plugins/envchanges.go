package plugins

import (
	"strings"

	"bvm/internal/bvmenv"
)

// The environment-change line protocol (§6): Windows speaks `SET key=value`
// / `SET key=` / `SET PATH=<new>`; Unix speaks `ADD\nkey\nvalue` /
// `REMOVE\nkey`, with PATH handled through the same two verbs under the key
// "PATH". A resolve emission is terminated by `EXEC\n<path>`.

func emitSetVar(b *strings.Builder, key, value string) {
	if isWindows() {
		b.WriteString("SET " + key + "=" + value + "\n")
		return
	}
	b.WriteString("ADD\n" + key + "\n" + value + "\n")
}

func emitUnsetVar(b *strings.Builder, key string) {
	if isWindows() {
		b.WriteString("SET " + key + "=\n")
		return
	}
	b.WriteString("REMOVE\n" + key + "\n")
}

// emitAddPath appends dir to the current OS PATH and emits the result.
// Windows emits the whole rebuilt PATH; Unix emits just the one directory
// under the PATH key, leaving concatenation to the shell-integration script.
func emitAddPath(b *strings.Builder, env bvmenv.Environment, dir string) {
	if isWindows() {
		emitSetVar(b, "PATH", appendPath(env, dir))
		return
	}
	emitSetVar(b, "PATH", dir)
}

func emitRemovePath(b *strings.Builder, env bvmenv.Environment, dir string) {
	if isWindows() {
		emitSetVar(b, "PATH", removeFromPath(env, dir))
		return
	}
	emitUnsetVar(b, "PATH")
}

func appendPath(env bvmenv.Environment, dir string) string {
	sep := env.PathSeparator()
	current := env.GetEnvPath()
	if current == "" {
		return dir
	}
	return current + sep + dir
}

func removeFromPath(env bvmenv.Environment, dir string) string {
	sep := env.PathSeparator()
	parts := strings.Split(env.GetEnvPath(), sep)
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != dir && p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// emitExec writes the terminal EXEC line of a resolve emission.
func emitExec(b *strings.Builder, path string) {
	b.WriteString("EXEC\n" + path + "\n")
}

// emitIdentifierAdded writes the env-var and path lines contributed by id
// becoming visible (its binary's declared paths/variables, resolved against
// its installed directory).
func emitIdentifierAdded(b *strings.Builder, env bvmenv.Environment, manifest *PluginsManifest, id BinaryIdentifier) error {
	item, ok := manifest.Binaries[id]
	if !ok {
		return nil
	}
	binDir, err := InstalledDir(env, item.Name, item.Version)
	if err != nil {
		return err
	}
	for k, v := range item.GetEnvVariables(binDir) {
		emitSetVar(b, k, v)
	}
	for _, p := range item.GetResolvedEnvPaths(binDir) {
		emitAddPath(b, env, p)
	}
	return nil
}

// emitIdentifierRemoved writes the env-var and path lines that undo id's
// contributions.
func emitIdentifierRemoved(b *strings.Builder, env bvmenv.Environment, manifest *PluginsManifest, id BinaryIdentifier) error {
	item, ok := manifest.Binaries[id]
	if !ok {
		return nil
	}
	binDir, err := InstalledDir(env, item.Name, item.Version)
	if err != nil {
		return err
	}
	for k := range item.GetEnvVariables(binDir) {
		emitUnsetVar(b, k)
	}
	for _, p := range item.GetResolvedEnvPaths(binDir) {
		emitRemovePath(b, env, p)
	}
	return nil
}

// GetPendingEnvChangeLines renders the manifest's pending added/removed sets
// as the line protocol, for `hidden get-pending-env-changes`.
func GetPendingEnvChangeLines(env bvmenv.Environment, manifest *PluginsManifest) (string, error) {
	var b strings.Builder
	for id := range manifest.PendingEnvChanges.Removed {
		if err := emitIdentifierRemoved(&b, env, manifest, id); err != nil {
			return "", err
		}
	}
	for id := range manifest.PendingEnvChanges.Added {
		if err := emitIdentifierAdded(&b, env, manifest, id); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// GetGlobalPathLines renders `hidden get-paths`: every env-path contribution
// from currently globally-selected binaries, joined by the OS path delimiter.
func GetGlobalPathLines(env bvmenv.Environment, manifest *PluginsManifest) (string, error) {
	var dirs []string
	for _, id := range globallySelectedIdentifiers(manifest) {
		item, ok := manifest.Binaries[id]
		if !ok {
			continue
		}
		binDir, err := InstalledDir(env, item.Name, item.Version)
		if err != nil {
			return "", err
		}
		dirs = append(dirs, item.GetResolvedEnvPaths(binDir)...)
	}
	return strings.Join(dirs, env.PathSeparator()), nil
}

// GetGlobalEnvVarLines renders `hidden get-env-vars`: the set-line format for
// every variable declared by a currently globally-selected binary.
func GetGlobalEnvVarLines(env bvmenv.Environment, manifest *PluginsManifest) (string, error) {
	var b strings.Builder
	for _, id := range globallySelectedIdentifiers(manifest) {
		item, ok := manifest.Binaries[id]
		if !ok {
			continue
		}
		binDir, err := InstalledDir(env, item.Name, item.Version)
		if err != nil {
			return "", err
		}
		for k, v := range item.GetEnvVariables(binDir) {
			emitSetVar(&b, k, v)
		}
	}
	return b.String(), nil
}

func globallySelectedIdentifiers(manifest *PluginsManifest) []BinaryIdentifier {
	seen := map[BinaryIdentifier]bool{}
	var out []BinaryIdentifier
	for _, loc := range manifest.GlobalVersions {
		if id, ok := loc.ToIdentifierOption(); ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
