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

var addCmd = &cobra.Command{
	Use:   "add <url|name> [version]",
	Short: "Add a binary to this project's config file",
	Long:  "Resolves a plugin (by URL or registry name) and adds it to bvm.json/.bvm.json, replacing any existing entry for the same binary name.",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		version, err := parseOptionalVersionArg(args, 1)
		if err != nil {
			fatal(err)
		}
		runAdd(env, args[0], version)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(env bvmenv.Environment, nameOrURL string, version *bvmtypes.VersionSelector) {
	configPath, found := configuration.FindConfigFile(env)
	if !found {
		fatal(fmt.Errorf("no bvm.json or .bvm.json file found in this directory or any ancestor; run `bvm init` first"))
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

	var checksumURL checksumurl.ChecksumUrl
	if looksLikeURL(nameOrURL) {
		cu, err := checksumurl.Parse(nameOrURL, base)
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
		_, cu, err := plugins.ResolveAcrossRegistries(env, reg, selector, version)
		if err != nil {
			fatal(err)
		}
		checksumURL = cu
	}

	pluginFile, err := plugins.GetPluginFile(env, checksumURL)
	if err != nil {
		fatal(err)
	}
	name, err := pluginFile.File.BinaryName()
	if err != nil {
		fatal(err)
	}

	replaceIndex, err := findReplaceIndex(env, cfg, name)
	if err != nil {
		fatal(err)
	}

	newEntry := configuration.ConfigFileBinary{
		URL:         pluginFile.URL,
		RawPath:     pluginFile.URL.UnresolvedPath,
		RawChecksum: pluginFile.URL.Checksum,
	}
	if version != nil {
		sel := *version
		newEntry.Version = &sel
		newEntry.RawVersion = version.Text
	}

	updated, err := configuration.AddBinaryToConfigFile(string(text), newEntry, replaceIndex)
	if err != nil {
		fatal(err)
	}
	if err := env.WriteFile(configPath, []byte(updated)); err != nil {
		fatal(err)
	}
}

// findReplaceIndex looks for an existing config entry naming the same
// binary so `add` overwrites it in place (S6) rather than duplicating it.
// Cheaply resolved entries (already in the URL cache) avoid a network
// round-trip; anything else is fetched to learn its declared name.
func findReplaceIndex(env bvmenv.Environment, cfg *configuration.ConfigFile, name bvmtypes.BinaryName) (*int, error) {
	manifest, err := plugins.LoadManifest(env)
	if err != nil {
		return nil, err
	}
	for i, binary := range cfg.Binaries {
		url := binary.URL.URL.String()
		var existingName bvmtypes.BinaryName
		if id, ok := manifest.GetIdentifierFromURL(url); ok {
			existingName = id.BinaryName()
		} else {
			fetched, err := plugins.GetPluginFile(env, binary.URL)
			if err != nil {
				continue
			}
			existingName, err = fetched.File.BinaryName()
			if err != nil {
				continue
			}
		}
		if existingName.Owner == name.Owner && existingName.Name == name.Name {
			idx := i
			return &idx, nil
		}
	}
	return nil, nil
}
