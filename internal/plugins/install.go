package plugins

import (
	"fmt"
	"path"
	"strings"

	"bvm/internal/archive"
	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
)

// InstalledDir computes the content-addressed installation directory for a
// binary: <local-user-data>/binaries/<owner>/<name>/<version>.
func InstalledDir(env bvmenv.Environment, name bvmtypes.BinaryName, version bvmtypes.Version) (string, error) {
	base, err := env.LocalUserDataDir()
	if err != nil {
		return "", err
	}
	return path.Join(base, "binaries", name.Owner, name.Name, version.Text), nil
}

// validateRelativePath enforces §3's Command.relative_path invariant: never
// absolute, never traversing upward out of the installed directory.
func validateRelativePath(label, p string) error {
	if p == "" {
		return fmt.Errorf("%s must not be empty", label)
	}
	normalized := strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(normalized, "/") || strings.Contains(normalized, ":") {
		return fmt.Errorf("%s %q must be a relative path", label, p)
	}
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return fmt.Errorf("%s %q must not traverse outside the installed directory", label, p)
		}
	}
	return nil
}

// Install performs the ordered installer steps (§4.4) for a validated plugin
// file, returning the constructed manifest item. It does not mutate the
// manifest itself — callers insert the returned item via (*PluginsMut).SetupPlugin.
func Install(env bvmenv.Environment, name bvmtypes.BinaryName, version bvmtypes.Version, platform PlatformInfo, source ManifestItemSource) (BinaryManifestItem, error) {
	// Step 4 (validated before any I/O happens): every command path and the
	// output_dir must be relative and non-traversing.
	for _, c := range platform.Commands {
		if err := validateRelativePath(fmt.Sprintf("command %q path", c.Name), c.Path); err != nil {
			return BinaryManifestItem{}, err
		}
	}
	if platform.OutputDir != "" {
		if err := validateRelativePath("outputDir", platform.OutputDir); err != nil {
			return BinaryManifestItem{}, err
		}
	}

	installedDir, err := InstalledDir(env, name, version)
	if err != nil {
		return BinaryManifestItem{}, err
	}

	// Step 1: fetch the artifact and verify its checksum.
	artifactData, err := fetchArtifact(env, platform)
	if err != nil {
		return BinaryManifestItem{}, err
	}

	// Step 2: remove-then-create the installed directory; content-addressed,
	// so a half-finished previous attempt is simply wiped (§5 cancellation note).
	if env.PathExists(installedDir) {
		if err := env.RemoveDirAll(installedDir); err != nil {
			return BinaryManifestItem{}, err
		}
	}
	if err := env.MkdirAll(installedDir); err != nil {
		return BinaryManifestItem{}, err
	}

	// Step 3: pre-install hook.
	if platform.PreInstall != "" {
		if err := env.RunShellCommand(installedDir, platform.PreInstall); err != nil {
			return BinaryManifestItem{}, fmt.Errorf("preInstall script failed: %w", err)
		}
	}

	outputDir := installedDir
	if platform.OutputDir != "" {
		outputDir = path.Join(installedDir, platform.OutputDir)
		if err := env.MkdirAll(outputDir); err != nil {
			return BinaryManifestItem{}, err
		}
	}

	// Step 5: extract.
	archiveType := archive.ArchiveType(platform.Type)
	var binaryPath string
	if archiveType == archive.TypeBinary {
		if len(platform.Commands) != 1 {
			return BinaryManifestItem{}, fmt.Errorf("a \"binary\" type plugin must declare exactly one command, got %d", len(platform.Commands))
		}
		binaryPath = platform.Commands[0].Path
	}
	err = env.LogAction(fmt.Sprintf("extracting %s/%s %s", name.Owner, name.Name, version.Text), int64(len(artifactData)), func(progress bvmenv.ProgressReporter) error {
		return archive.Extract(env, archiveType, artifactData, outputDir, binaryPath, progress)
	})
	if err != nil {
		return BinaryManifestItem{}, err
	}
	if archiveType == archive.TypeBinary {
		if err := env.Chmod(path.Join(outputDir, binaryPath), true); err != nil {
			return BinaryManifestItem{}, err
		}
	}

	// Step 6: post-install hook.
	if platform.PostInstall != "" {
		if err := env.RunShellCommand(installedDir, platform.PostInstall); err != nil {
			return BinaryManifestItem{}, fmt.Errorf("postInstall script failed: %w", err)
		}
	}

	item := BinaryManifestItem{
		Name:            name,
		Version:         version,
		CreatedTimeSecs: env.NowSeconds(),
		Commands:        platform.Commands,
		Source:          source,
		Environment:     platform.Environment,
	}
	return item, nil
}

func fetchArtifact(env bvmenv.Environment, platform PlatformInfo) ([]byte, error) {
	data, err := bvmenv.FetchURL(env, platform.Path, bvmenv.NopProgress)
	if err != nil {
		return nil, fmt.Errorf("fetching artifact %s: %w", platform.Path, err)
	}
	if platform.Checksum != "" {
		actual := sha256Hex(data)
		if !equalFoldHex(platform.Checksum, actual) {
			return nil, fmt.Errorf("checksum mismatch for artifact %s: expected %s, got %s", platform.Path, platform.Checksum, actual)
		}
	}
	return data, nil
}
