package plugins

import (
	"fmt"
	"path"
	"runtime"
	"strings"

	"bvm/internal/bvmenv"
)

func isWindows() bool { return runtime.GOOS == "windows" }

// unixShimTemplate and windowsShimTemplate are the launcher bodies (§4.9).
// Neither hardcodes a resolved path: every invocation calls `bvm hidden
// resolve-command`, which resolves the command fresh against the current
// working directory's config file, the simulated in-memory "use", and
// finally the persistent global selection — so a shim never goes stale when
// `use` changes things. The shim itself interprets the line protocol (§6)
// rather than bvm doing it, since resolve-command's output is consumed by
// whatever shell is running the shim, not by another bvm process.
const unixShimTemplate = `#!/bin/sh
out="$(bvm hidden resolve-command %s)" || exit 1
exec_path=""
while IFS= read -r directive; do
  case "$directive" in
    ADD)
      IFS= read -r key
      IFS= read -r value
      if [ "$key" = "PATH" ]; then
        PATH="$value:$PATH"
        export PATH
      else
        export "$key=$value"
      fi
      ;;
    REMOVE)
      IFS= read -r key
      if [ "$key" != "PATH" ]; then
        unset "$key"
      fi
      ;;
    EXEC)
      IFS= read -r exec_path
      ;;
  esac
done <<BVMRESOLVE
$out
BVMRESOLVE
exec "$exec_path" "$@"
`

const windowsShimTemplate = `@echo off
setlocal enabledelayedexpansion
set "BVM_EXEC_PATH="
for /f "usebackq delims=" %%L in (` + "`bvm hidden resolve-command %s`" + `) do (
  if "!BVM_NEXT!"=="exec" (
    set "BVM_EXEC_PATH=%%L"
    set "BVM_NEXT="
  ) else if "%%L"=="EXEC" (
    set "BVM_NEXT=exec"
  ) else (
    echo %%L | findstr /b "SET " >nul && call set "%%L"
  )
)
if "!BVM_EXEC_PATH!"=="" exit /b 1
"!BVM_EXEC_PATH!" %*
`

// ShimDirName is the subdirectory of the user-data dir holding shims (§6).
const ShimDirName = "shims"

// shimDir is the directory bvm puts shims in and expects callers to have on PATH.
func shimDir(env bvmenv.Environment) (string, error) {
	dir, err := env.UserDataDir()
	if err != nil {
		return "", err
	}
	return path.Join(dir, ShimDirName), nil
}

// ShimDir exposes the shim directory for the hidden Windows install/uninstall
// hooks, which must put it at the head of the user PATH.
func ShimDir(env bvmenv.Environment) (string, error) {
	return shimDir(env)
}

func shimPath(binDir, command string) string {
	if isWindows() {
		return path.Join(binDir, command+".bat")
	}
	return path.Join(binDir, command)
}

// RecreateShims rewrites every shim on disk to match the manifest's current
// set of known command names (every command any installed binary exposes,
// whether or not it currently has a global selection — a config-file-only
// command still needs a shim to be reachable from PATH at all).
func RecreateShims(env bvmenv.Environment, manifest *PluginsManifest) error {
	binDir, err := shimDir(env)
	if err != nil {
		return err
	}
	if err := env.MkdirAll(binDir); err != nil {
		return err
	}

	wanted := map[string]bool{}
	for _, name := range manifest.GetAllCommandNames() {
		wanted[string(name)] = true
	}

	existing, err := existingShimNames(env, binDir)
	if err != nil {
		return err
	}
	for _, name := range existing {
		if !wanted[name] {
			if err := env.RemoveFile(shimPath(binDir, name)); err != nil {
				return err
			}
		}
	}
	for name := range wanted {
		if err := writeShim(env, binDir, name); err != nil {
			return err
		}
	}
	return nil
}

func writeShim(env bvmenv.Environment, binDir, command string) error {
	target := shimPath(binDir, command)
	var body string
	if isWindows() {
		body = fmt.Sprintf(windowsShimTemplate, command)
	} else {
		body = fmt.Sprintf(unixShimTemplate, command)
	}
	if err := env.WriteFile(target, []byte(body)); err != nil {
		return err
	}
	if !isWindows() {
		if err := env.Chmod(target, true); err != nil {
			return err
		}
	}
	return nil
}

func existingShimNames(env bvmenv.Environment, binDir string) ([]string, error) {
	entries, err := env.ReadDir(binDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e, ".bat"))
	}
	return names, nil
}
