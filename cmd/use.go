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
)

var useCmd = &cobra.Command{
	Use:   "use [<name> [<version>|path]]",
	Short: "Select the global default version for a command",
	Long:  "With no arguments, re-applies the current project's config-declared selections as the global default. With a name (and optional version or the literal \"path\"), changes the persistent global selection.",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		if len(args) == 0 {
			reapplyConfigUse(env)
			return
		}
		useNamedBinary(env, args)
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}

// useNamedBinary implements `use <name> [<version>|path]`.
func useNamedBinary(env bvmenv.Environment, args []string) {
	selector := parseNameArg(args[0])
	manifest := loadManifest(env)
	mut := plugins.NewPluginsMut(env, manifest, true)

	if len(args) == 1 {
		item, err := plugins.ResolveInstalled(manifest, selector, nil)
		if err != nil {
			fatal(err)
		}
		if err := mut.UseGlobalVersion(item, false); err != nil {
			fatal(err)
		}
		saveManifestOrFatal(mut)
		return
	}

	target, err := bvmtypes.ParsePathOrVersionSelector(args[1])
	if err != nil {
		fatal(err)
	}
	var version *bvmtypes.VersionSelector
	if !target.IsPath {
		version = &target.Selector
	}
	item, err := plugins.ResolveInstalled(manifest, selector, version)
	if err != nil {
		fatal(err)
	}
	if err := mut.UseGlobalVersion(item, target.IsPath); err != nil {
		fatal(err)
	}
	saveManifestOrFatal(mut)
}

// reapplyConfigUse implements the no-argument `use`: every binary the
// current project's config file declares becomes (if installed) the global
// selection for its commands again, undoing any `use` done from a different
// directory in the meantime.
func reapplyConfigUse(env bvmenv.Environment) {
	configPath, found := configuration.FindConfigFile(env)
	if !found {
		fatal(fmt.Errorf("no bvm.json or .bvm.json file found in this directory or any ancestor"))
	}
	text, err := env.ReadFile(configPath)
	if err != nil {
		fatal(err)
	}
	base, err := checksumurl.FromDirectory(filepath.Dir(configPath))
	if err != nil {
		fatal(err)
	}
	cfg, err := configuration.ReadConfigFile(string(text), base, configPath)
	if err != nil {
		fatal(err)
	}

	manifest := loadManifest(env)
	mut := plugins.NewPluginsMut(env, manifest, true)

	for _, binary := range cfg.Binaries {
		url := binary.URL.URL.String()
		id, ok := manifest.GetIdentifierFromURL(url)
		if !ok {
			fetched, err := plugins.GetPluginFile(env, binary.URL)
			if err != nil {
				env.LogError(fmt.Sprintf("%s: %v", binary.RawPath, err))
				continue
			}
			name, err := fetched.File.BinaryName()
			if err != nil {
				env.LogError(fmt.Sprintf("%s: %v", binary.RawPath, err))
				continue
			}
			version, err := bvmtypes.ParseVersion(fetched.File.Version)
			if err != nil {
				env.LogError(fmt.Sprintf("%s: %v", binary.RawPath, err))
				continue
			}
			id = plugins.NewBinaryIdentifier(name, version)
		}
		item, ok := manifest.Binaries[id]
		if !ok {
			env.LogError(fmt.Sprintf("%s is declared in this project's config file but not installed; run `bvm install` first", id.BinaryName()))
			continue
		}
		if err := mut.UseGlobalVersion(item, false); err != nil {
			fatal(err)
		}
	}

	saveManifestOrFatal(mut)
}
