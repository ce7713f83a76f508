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

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"bvm/internal/plugins"
	"bvm/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage registry URL associations",
}

var registryAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Associate a registry URL with every binary it describes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		url := args[0]
		file, err := registry.DownloadRegistryFile(env, url)
		if err != nil {
			fatal(err)
		}
		reg, err := registry.Load(env)
		if err != nil {
			fatal(err)
		}
		for _, binary := range file.Binaries {
			name, err := binary.BinaryName()
			if err != nil {
				fatal(err)
			}
			if existing := reg.GetURLs(parseNameArg(name.Name)); len(existing) > 0 && !containsString(existing, url) {
				env.LogError(fmt.Sprintf("%s is already associated with a different registry URL; keeping both", name))
			}
			reg.AddURL(name.Name, url)
		}
		if err := reg.Save(env); err != nil {
			fatal(err)
		}
	},
}

var registryRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Remove a registry URL from every binary it was associated with",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		reg, err := registry.Load(env)
		if err != nil {
			fatal(err)
		}
		reg.RemoveURL(args[0])
		if err := reg.Save(env); err != nil {
			fatal(err)
		}
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every (binary name, registry URL) association",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		reg, err := registry.Load(env)
		if err != nil {
			fatal(err)
		}
		items := reg.Items()
		if len(items) == 0 {
			fmt.Println("No registries configured.")
			return
		}
		rows := []string{"NAME | URL"}
		for _, item := range items {
			rows = append(rows, fmt.Sprintf("%s | %s", item.Name, item.URL))
		}
		fmt.Println(columnize.SimpleFormat(rows))
	},
}

var clearURLCacheCmd = &cobra.Command{
	Use:   "clear-url-cache",
	Short: "Forget every plugin URL to binary identifier association",
	Long:  "Clears urls_to_identifier, which bvm otherwise never prunes automatically; subsequent installs re-derive identifiers by re-fetching each plugin file.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		manifest.URLsToIdentifier = map[string]plugins.BinaryIdentifier{}
		mut := plugins.NewPluginsMut(env, manifest, true)
		saveManifestOrFatal(mut)
	},
}

func init() {
	registryCmd.AddCommand(registryAddCmd, registryRemoveCmd, registryListCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(clearURLCacheCmd)
}
