// Copyright © 2019 Brian Shumate <brian@brianshumate.com>
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
//
// 1. Redistributions of source code must retain the above copyright notice,
//    this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright notice,
//    this list of conditions and the following disclaimer in the documentation
//    and/or other materials provided with the distribution.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/checksumurl"
	"bvm/internal/configuration"
	"bvm/internal/plugins"
	"bvm/internal/registry"
)

var (
	installUse   bool
	installForce bool
)

var installCmd = &cobra.Command{
	Use:   "install [url|name [version]]",
	Short: "Install binaries",
	Long:  "Installs binaries declared in this project's config file, or a single binary named or addressed directly by URL.",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		if len(args) == 0 {
			runInstallFromConfig(env, installForce, installUse)
			return
		}
		version, err := parseOptionalVersionArg(args, 1)
		if err != nil {
			fatal(err)
		}
		runInstallSingle(env, args[0], version, installForce, installUse)
	},
}

func init() {
	installCmd.Flags().BoolVar(&installUse, "use", false, "also select the installed binary as the global default for its commands")
	installCmd.Flags().BoolVar(&installForce, "force", false, "reinstall even if already installed")
	rootCmd.AddCommand(installCmd)
}

// runInstallFromConfig implements `install` with no arguments (§4.6's
// config-driven algorithm): every declared binary is brought up to date
// against its own idempotency rule, then the whole manifest is saved once.
func runInstallFromConfig(env bvmenv.Environment, force, use bool) {
	configPath, found := configuration.FindConfigFile(env)
	if !found {
		fatal(fmt.Errorf("no bvm.json or .bvm.json file found in this directory or any ancestor"))
	}
	text, err := env.ReadFile(configPath)
	if err != nil {
		fatal(err)
	}
	dir := filepath.Dir(configPath)
	base, err := checksumurl.FromDirectory(dir)
	if err != nil {
		fatal(err)
	}
	cfg, err := configuration.ReadConfigFile(string(text), base, configPath)
	if err != nil {
		fatal(err)
	}

	mut := plugins.NewPluginsMut(env, loadManifest(env), true)

	if cfg.OnPreInstall != "" {
		if err := env.RunShellCommand(dir, cfg.OnPreInstall); err != nil {
			fatal(fmt.Errorf("onPreInstall failed: %w", err))
		}
	}

	for _, binary := range cfg.Binaries {
		installConfigBinary(env, mut, binary, force, use)
	}

	if cfg.OnPostInstall != "" {
		if err := env.RunShellCommand(dir, cfg.OnPostInstall); err != nil {
			fatal(fmt.Errorf("onPostInstall failed: %w", err))
		}
	}

	saveManifestOrFatal(mut)
}

// installConfigBinary brings a single config-declared entry up to date,
// following §4.6's three short-circuit rules in order: already installed by
// identifier, already satisfied by some other installed version of the same
// name, or else a real install.
func installConfigBinary(env bvmenv.Environment, mut *plugins.PluginsMut, binary configuration.ConfigFileBinary, force, use bool) {
	url := binary.URL.URL.String()

	id, cached := mut.Manifest().GetIdentifierFromURL(url)
	var pluginFile plugins.PluginFile
	haveFetched := false
	if !cached {
		fetched, err := plugins.GetPluginFile(env, binary.URL)
		if err != nil {
			fatal(err)
		}
		pluginFile, haveFetched = fetched, true
		name, err := fetched.File.BinaryName()
		if err != nil {
			fatal(err)
		}
		version, err := bvmtypes.ParseVersion(fetched.File.Version)
		if err != nil {
			fatal(err)
		}
		id = plugins.NewBinaryIdentifier(name, version)
	}

	if !force && mut.Manifest().HasBinary(id) {
		if use {
			if item, ok := mut.Manifest().Binaries[id]; ok {
				if err := mut.UseGlobalVersion(item, false); err != nil {
					fatal(err)
				}
			}
		}
		return
	}

	name := id.BinaryName()
	version, err := id.Version()
	if err != nil {
		fatal(err)
	}

	if !force && binary.Version != nil {
		selector := bvmtypes.NameSelector{Owner: name.Owner, Name: name.Name}
		if _, err := plugins.ResolveInstalled(mut.Manifest(), selector, binary.Version); err == nil {
			return
		}
	}

	if binary.Version != nil && !binary.Version.Matches(version) {
		fatal(fmt.Errorf("%s: declared version constraint %s does not match plugin file version %s (VersionMismatchWithPath)", binary.RawPath, binary.Version, version.Text))
	}

	if !haveFetched {
		fetched, err := plugins.GetPluginFile(env, binary.URL)
		if err != nil {
			fatal(err)
		}
		pluginFile = fetched
	}

	item := installFromPluginFile(env, name, version, pluginFile)
	finishInstall(env, mut, item, url, use)
}

// runInstallSingle implements `install <url|name> [version]`.
func runInstallSingle(env bvmenv.Environment, nameOrURL string, version *bvmtypes.VersionSelector, force, use bool) {
	var (
		checksumURL checksumurl.ChecksumUrl
		name        bvmtypes.BinaryName
	)

	if looksLikeURL(nameOrURL) {
		cu, err := checksumurl.Parse(nameOrURL, nil)
		if err != nil {
			fatal(err)
		}
		checksumURL = cu
	} else {
		reg, err := registry.Load(env)
		if err != nil {
			fatal(err)
		}
		selector := parseNameArg(nameOrURL)
		resolvedName, cu, err := plugins.ResolveAcrossRegistries(env, reg, selector, version)
		if err != nil {
			fatal(err)
		}
		name, checksumURL = resolvedName, cu
	}

	url := checksumURL.URL.String()
	manifest := loadManifest(env)
	mut := plugins.NewPluginsMut(env, manifest, true)

	if id, ok := manifest.GetIdentifierFromURL(url); ok && manifest.HasBinary(id) && !force {
		if use {
			if item, ok := manifest.Binaries[id]; ok {
				if err := mut.UseGlobalVersion(item, false); err != nil {
					fatal(err)
				}
			}
		}
		saveManifestOrFatal(mut)
		return
	}

	pluginFile, err := plugins.GetPluginFile(env, checksumURL)
	if err != nil {
		fatal(err)
	}
	fileName, err := pluginFile.File.BinaryName()
	if err != nil {
		fatal(err)
	}
	if name.Name == "" {
		name = fileName
	}
	fileVersion, err := bvmtypes.ParseVersion(pluginFile.File.Version)
	if err != nil {
		fatal(err)
	}
	if version != nil && !version.Matches(fileVersion) {
		fatal(fmt.Errorf("%s: requested version %s does not match plugin file version %s (VersionMismatchWithPath)", nameOrURL, version, fileVersion.Text))
	}

	item := installFromPluginFile(env, name, fileVersion, pluginFile)
	finishInstall(env, mut, item, url, use)
	saveManifestOrFatal(mut)
}

// installFromPluginFile performs the §4.4 installer steps for an already
// fetched+validated plugin document.
func installFromPluginFile(env bvmenv.Environment, name bvmtypes.BinaryName, version bvmtypes.Version, pluginFile plugins.PluginFile) plugins.BinaryManifestItem {
	platform, err := pluginFile.File.Platform()
	if err != nil {
		fatal(err)
	}
	source := plugins.ManifestItemSource{Path: pluginFile.URL.URL.String(), Checksum: pluginFile.URL.Checksum}
	item, err := plugins.Install(env, name, version, platform, source)
	if err != nil {
		fatal(err)
	}
	return item
}

// finishInstall records item in the manifest and applies the supplemented
// "not currently on PATH" auto-global-selection (or an explicit --use).
func finishInstall(env bvmenv.Environment, mut *plugins.PluginsMut, item plugins.BinaryManifestItem, pluginFileURL string, use bool) {
	id := mut.SetupPlugin(item, pluginFileURL)
	if use {
		if err := mut.UseGlobalVersion(item, false); err != nil {
			fatal(err)
		}
		return
	}
	autoSelectGlobal(env, mut, id, item)
}

// autoSelectGlobal gives a freshly installed binary's unclaimed commands a
// sensible default: if the command already resolves on the OS PATH (some
// system install exists), the global selection is pinned to "path" rather
// than silently handing it to the new binary; otherwise the new binary
// becomes the default, since nothing else could have run it before. Commands
// that were already explicitly claimed by something else are left alone;
// those, and the commands just pinned to "path", are reported so the install
// doesn't look like it silently did nothing.
func autoSelectGlobal(env bvmenv.Environment, mut *plugins.PluginsMut, id plugins.BinaryIdentifier, item plugins.BinaryManifestItem) {
	var shadowed []string
	for _, command := range item.GetCommandNames() {
		if _, ok := mut.Manifest().GetGlobalBinaryLocation(command); ok {
			shadowed = append(shadowed, string(command))
			continue
		}
		if _, onPath := plugins.FindOnPath(env, command); onPath {
			mut.SetGlobalLocationIfNotSet(command, plugins.PathLocation())
			shadowed = append(shadowed, string(command))
		} else {
			mut.SetGlobalBinaryIfNotSet(command, id)
		}
	}
	if err := plugins.RecreateShims(env, mut.Manifest()); err != nil {
		fatal(err)
	}
	if len(shadowed) > 0 {
		env.LogError(fmt.Sprintf("%s %s also provides %s, which currently resolve elsewhere; run \"bvm use %s %s\" to select it", item.Name, item.Version.Text, sentenceJoin(shadowed), item.Name, item.Version.Text))
	}
}
